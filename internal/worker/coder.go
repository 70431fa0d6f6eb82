package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// CoderWorker produces implementation output for a task. The output is a
// deterministic template over the task description and shared context.
type CoderWorker struct{}

// NewCoder creates a new coder worker.
func NewCoder() *CoderWorker {
	return &CoderWorker{}
}

// Type returns the coder worker type.
func (w *CoderWorker) Type() models.WorkerType {
	return models.WorkerCoder
}

// Process generates the implementation summary for the task.
func (w *CoderWorker) Process(ctx context.Context, task *models.Task, wctx models.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generated implementation for: %s\n", task.Description)

	if projectType, ok := wctx[models.ContextKeyProjectType].(string); ok && projectType != "" {
		fmt.Fprintf(&b, "Target project type: %s\n", projectType)
	}
	if files := contextFiles(wctx); len(files) > 0 {
		fmt.Fprintf(&b, "Touched files under consideration: %s\n", strings.Join(files, ", "))
	}
	if findings, ok := wctx[models.ContextKeyResearchFindings].(string); ok && findings != "" {
		b.WriteString("Implementation informed by research findings.\n")
	}

	return b.String(), nil
}

// contextFiles extracts the current file list from the shared context.
// Both []string and []any element types are accepted since the context
// crosses a JSON boundary at the host.
func contextFiles(wctx models.Context) []string {
	switch v := wctx[models.ContextKeyCurrentFiles].(type) {
	case []string:
		return v
	case []any:
		files := make([]string, 0, len(v))
		for _, f := range v {
			if s, ok := f.(string); ok {
				files = append(files, s)
			}
		}
		return files
	default:
		return nil
	}
}
