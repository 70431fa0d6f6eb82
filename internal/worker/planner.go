package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// subtaskTemplate describes one subtask emitted by a planner template.
type subtaskTemplate struct {
	// Description is the subtask description format; %s receives the
	// original request text.
	Description string
	// Worker is the worker type the subtask is assigned to.
	Worker models.WorkerType
	// Priority is the subtask's scheduling priority.
	Priority models.TaskPriority
}

// planTemplates is the single source of truth for keyword-triggered plan
// expansion. Templates are checked in order; the first keyword match wins.
// The generic template applies when nothing matches.
var planTemplates = []struct {
	// Keywords trigger this template when the lower-cased description
	// contains any of them.
	Keywords []string
	// Subtasks is the fixed expansion, in insertion order.
	Subtasks []subtaskTemplate
}{
	{
		Keywords: []string{"implement", "create"},
		Subtasks: []subtaskTemplate{
			{"Research prior art and context for: %s", models.WorkerResearcher, models.PriorityHigh},
			{"Analyze requirements and design the approach for: %s", models.WorkerCoder, models.PriorityHigh},
			{"Implement: %s", models.WorkerCoder, models.PriorityHigh},
			{"Write unit tests for: %s", models.WorkerTester, models.PriorityMedium},
			{"Debug and resolve issues in: %s", models.WorkerDebugger, models.PriorityMedium},
			{"Write documentation for: %s", models.WorkerDocumenter, models.PriorityLow},
		},
	},
	{
		Keywords: []string{"debug", "fix"},
		Subtasks: []subtaskTemplate{
			{"Research known failure modes for: %s", models.WorkerResearcher, models.PriorityHigh},
			{"Identify the root cause of: %s", models.WorkerDebugger, models.PriorityHigh},
			{"Apply a fix for: %s", models.WorkerCoder, models.PriorityHigh},
			{"Test the fix for: %s", models.WorkerTester, models.PriorityHigh},
			{"Update documentation for: %s", models.WorkerDocumenter, models.PriorityLow},
		},
	},
	{
		Keywords: []string{"test"},
		Subtasks: []subtaskTemplate{
			{"Research testing strategies for: %s", models.WorkerResearcher, models.PriorityMedium},
			{"Design test cases for: %s", models.WorkerTester, models.PriorityHigh},
			{"Implement tests for: %s", models.WorkerTester, models.PriorityHigh},
			{"Run and validate tests for: %s", models.WorkerTester, models.PriorityMedium},
		},
	},
}

// genericSubtasks is the fallback expansion when no keyword matches.
var genericSubtasks = []subtaskTemplate{
	{"Research context for: %s", models.WorkerResearcher, models.PriorityMedium},
	{"Analyze: %s", models.WorkerCoder, models.PriorityMedium},
	{"Execute: %s", models.WorkerCoder, models.PriorityHigh},
	{"Validate the outcome of: %s", models.WorkerTester, models.PriorityMedium},
}

// PlannerWorker breaks a request down into typed subtasks using the
// keyword-triggered templates above. The expansion is deterministic: the
// same description always yields the same worker/priority sequence.
type PlannerWorker struct{}

// NewPlanner creates a new planner worker.
func NewPlanner() *PlannerWorker {
	return &PlannerWorker{}
}

// Type returns the planner worker type.
func (w *PlannerWorker) Type() models.WorkerType {
	return models.WorkerPlanner
}

// Process fills task.Subtasks from the first matching template and returns
// a summary of the plan. Subtasks share the parent task's context by
// reference.
func (w *PlannerWorker) Process(ctx context.Context, task *models.Task, wctx models.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	templates := selectTemplates(task.Description)

	subtasks := make([]*models.Task, 0, len(templates))
	for _, tpl := range templates {
		sub := models.NewTask(fmt.Sprintf(tpl.Description, task.Description), tpl.Worker, tpl.Priority)
		sub.Context = wctx
		subtasks = append(subtasks, sub)
	}
	task.Subtasks = subtasks

	var b strings.Builder
	fmt.Fprintf(&b, "Broke down %q into %d subtasks:\n", task.Description, len(subtasks))
	for i, sub := range subtasks {
		fmt.Fprintf(&b, "  %d. [%s/%s] %s\n", i+1, sub.AssignedTo, sub.Priority, sub.Description)
	}
	return b.String(), nil
}

// selectTemplates returns the subtask templates for a description.
func selectTemplates(description string) []subtaskTemplate {
	lower := strings.ToLower(description)
	for _, tpl := range planTemplates {
		for _, kw := range tpl.Keywords {
			if strings.Contains(lower, kw) {
				return tpl.Subtasks
			}
		}
	}
	return genericSubtasks
}
