package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from this status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskPriority controls subtask scheduling order. Root tasks ignore it.
type TaskPriority string

const (
	// PriorityLow is dispatched after medium and high subtasks.
	PriorityLow TaskPriority = "low"
	// PriorityMedium is the default priority.
	PriorityMedium TaskPriority = "medium"
	// PriorityHigh is dispatched first.
	PriorityHigh TaskPriority = "high"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Weight returns the numeric scheduling weight (high=3, medium=2, low=1).
// Unknown priorities weigh 0 and sort last.
func (p TaskPriority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// WorkerType identifies which specialized worker must process a task.
type WorkerType string

const (
	// WorkerPlanner breaks a request down into typed subtasks.
	WorkerPlanner WorkerType = "planner"
	// WorkerCoder produces implementation output.
	WorkerCoder WorkerType = "coder"
	// WorkerDebugger analyzes and resolves defects.
	WorkerDebugger WorkerType = "debugger"
	// WorkerTester designs and runs test work.
	WorkerTester WorkerType = "tester"
	// WorkerDocumenter writes documentation output.
	WorkerDocumenter WorkerType = "documenter"
	// WorkerResearcher gathers context and enriches other workers' tasks.
	WorkerResearcher WorkerType = "researcher"
)

// AllWorkerTypes lists every known worker type in registration order.
var AllWorkerTypes = []WorkerType{
	WorkerPlanner,
	WorkerCoder,
	WorkerDebugger,
	WorkerTester,
	WorkerDocumenter,
	WorkerResearcher,
}

// Valid returns true if the worker type is a known value.
func (w WorkerType) Valid() bool {
	switch w {
	case WorkerPlanner, WorkerCoder, WorkerDebugger, WorkerTester, WorkerDocumenter, WorkerResearcher:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-readable worker name used in reports.
func (w WorkerType) DisplayName() string {
	switch w {
	case WorkerPlanner:
		return "Planner"
	case WorkerCoder:
		return "Coder"
	case WorkerDebugger:
		return "Debugger"
	case WorkerTester:
		return "Tester"
	case WorkerDocumenter:
		return "Documenter"
	case WorkerResearcher:
		return "Researcher"
	default:
		return string(w)
	}
}

// Description returns a one-line summary of the worker's specialty.
func (w WorkerType) Description() string {
	switch w {
	case WorkerPlanner:
		return "Breaks down complex requests into subtasks"
	case WorkerCoder:
		return "Writes code for implementation"
	case WorkerDebugger:
		return "Identifies and fixes issues"
	case WorkerTester:
		return "Tests functionality and edge cases"
	case WorkerDocumenter:
		return "Creates documentation"
	case WorkerResearcher:
		return "Gathers context and prior art"
	default:
		return ""
	}
}

// Context is the mutable key/value map shared by reference between the
// orchestrator, each task, and every worker that touches it. It is never
// copied on dispatch; a write through one holder is visible to all others.
type Context map[string]any

// Task represents a unit of work in the system.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Description is the free-text request that drives worker selection.
	Description string `json:"description"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// AssignedTo names the worker type that must process this task.
	AssignedTo WorkerType `json:"assigned_to"`
	// Subtasks are child tasks owned by this task. Only meaningful after
	// a planner worker has processed the parent.
	Subtasks []*Task `json:"subtasks,omitempty"`
	// Result is the text produced by the worker that last processed this task.
	Result string `json:"result,omitempty"`
	// Priority orders subtask dispatch. Ignored for root tasks.
	Priority TaskPriority `json:"priority"`
	// Context is shared by reference with the orchestrator and workers.
	Context Context `json:"-"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewTask creates a pending task with a fresh ID.
func NewTask(description string, assignedTo WorkerType, priority TaskPriority) *Task {
	return &Task{
		ID:          NewTaskID(),
		Description: description,
		Status:      TaskStatusPending,
		AssignedTo:  assignedTo,
		Priority:    priority,
		CreatedAt:   time.Now(),
	}
}

// NewTaskID generates a task identifier from the current timestamp and a
// random suffix. IDs are unique across all tasks created by one process.
func NewTaskID() string {
	return fmt.Sprintf("task-%d-%s", time.Now().UnixMilli(), uuid.New().String()[:8])
}

// TaskSnapshot is a serializable view of a task for host consumption.
type TaskSnapshot struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	AssignedTo  WorkerType `json:"assigned_to"`
	Result      string     `json:"result,omitempty"`
	Subtasks    int        `json:"subtasks"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Snapshot returns a copy of the task's externally visible fields.
func (t *Task) Snapshot() TaskSnapshot {
	return TaskSnapshot{
		ID:          t.ID,
		Description: t.Description,
		Status:      t.Status,
		AssignedTo:  t.AssignedTo,
		Result:      t.Result,
		Subtasks:    len(t.Subtasks),
		CreatedAt:   t.CreatedAt,
	}
}
