package models

import "time"

// ExecutionResult records the outcome of one (task, worker) dispatch.
// Success, Result, Agent and Duration are immutable copies taken at the
// moment the dispatch finished. Task is a shared reference back to the
// dispatched task: later mutation of the task's Status or Result is visible
// through old results. Callers that need a stable view should use
// Task.Snapshot.
type ExecutionResult struct {
	// Success indicates whether the worker returned without error.
	Success bool `json:"success"`
	// Result is the worker's output text, or the error text on failure.
	Result string `json:"result"`
	// Agent is the worker type that performed the dispatch.
	Agent WorkerType `json:"agent"`
	// Task is the shared reference to the dispatched task.
	Task *Task `json:"-"`
	// TaskID is the dispatched task's ID, copied for persistence.
	TaskID string `json:"task_id"`
	// Duration is the wall-clock time of the dispatch.
	Duration time.Duration `json:"duration"`
	// FinishedAt is when the dispatch completed.
	FinishedAt time.Time `json:"finished_at"`
}
