package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// DocumenterWorker writes documentation output for a task.
type DocumenterWorker struct{}

// NewDocumenter creates a new documenter worker.
func NewDocumenter() *DocumenterWorker {
	return &DocumenterWorker{}
}

// Type returns the documenter worker type.
func (w *DocumenterWorker) Type() models.WorkerType {
	return models.WorkerDocumenter
}

// Process produces documentation for the task.
func (w *DocumenterWorker) Process(ctx context.Context, task *models.Task, wctx models.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Documentation for: %s\n", task.Description)
	b.WriteString("Sections: overview, usage, configuration, caveats.\n")

	if files := contextFiles(wctx); len(files) > 0 {
		fmt.Fprintf(&b, "Referenced files: %s\n", strings.Join(files, ", "))
	}

	return b.String(), nil
}
