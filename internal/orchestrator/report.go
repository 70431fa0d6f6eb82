package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// timeRounding is the granularity durations are reported at.
const timeRounding = time.Millisecond

// FormatReport renders the results of one request into a human-readable
// summary. Every executed task gets a section headed by its worker name and
// an outcome marker, in execution order.
func FormatReport(request string, results []models.ExecutionResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Task execution report for: %s\n", request)
	fmt.Fprintf(&b, "Executed %d task(s)\n\n", len(results))

	for _, res := range results {
		marker := "✅"
		if !res.Success {
			marker = "❌"
		}
		fmt.Fprintf(&b, "%s [%s] (%s)\n", marker, strings.ToUpper(string(res.Agent)), res.Duration.Round(timeRounding))
		result := strings.TrimRight(res.Result, "\n")
		if result != "" {
			b.WriteString(result)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
