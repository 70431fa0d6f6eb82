// Package worker provides the specialized workers that turn tasks into
// textual results: planner, coder, debugger, tester, documenter, researcher.
package worker

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// ErrWorkerNotFound is returned when an unknown worker type is requested.
var ErrWorkerNotFound = fmt.Errorf("worker not found")

// Worker turns a task into a textual result. Implementations are stateless
// except the researcher, which owns a private findings cache.
type Worker interface {
	// Type returns the worker type this implementation handles.
	Type() models.WorkerType
	// Process executes the task and returns its result text. The shared
	// context is aliased, not copied: writes are visible to all holders.
	Process(ctx context.Context, task *models.Task, wctx models.Context) (string, error)
}

// Supporter is implemented by workers that can produce a result tailored to
// another worker type. Only the researcher implements it.
type Supporter interface {
	// Support produces a research summary focused on the target worker's
	// specialty by rewriting the task description before processing it.
	Support(ctx context.Context, target models.WorkerType, task *models.Task, wctx models.Context) (string, error)
}

// ToolCaller is the slice of the capability provider gateway that workers
// need. Defined here so the worker package does not depend on the provider
// package directly.
type ToolCaller interface {
	// AllTools lists every known (server, tool) pair.
	AllTools() []models.ServerTool
	// CallTool invokes a named tool on a connected server.
	CallTool(ctx context.Context, server, tool string, args map[string]any) (any, error)
}

// New constructs the worker for the given type.
// Returns ErrWorkerNotFound for unknown types.
func New(t models.WorkerType) (Worker, error) {
	switch t {
	case models.WorkerPlanner:
		return NewPlanner(), nil
	case models.WorkerCoder:
		return NewCoder(), nil
	case models.WorkerDebugger:
		return NewDebugger(), nil
	case models.WorkerTester:
		return NewTester(), nil
	case models.WorkerDocumenter:
		return NewDocumenter(), nil
	case models.WorkerResearcher:
		return NewResearcher(nil, 0), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrWorkerNotFound, t)
	}
}

// Registry holds one worker per worker type.
type Registry struct {
	workers map[models.WorkerType]Worker
}

// NewRegistry creates a registry populated with one worker per known type.
// The researcher is constructed with the given tool caller and cache size so
// it can consult capability providers while researching.
func NewRegistry(tools ToolCaller, cacheSize int) *Registry {
	workers := map[models.WorkerType]Worker{
		models.WorkerPlanner:    NewPlanner(),
		models.WorkerCoder:      NewCoder(),
		models.WorkerDebugger:   NewDebugger(),
		models.WorkerTester:     NewTester(),
		models.WorkerDocumenter: NewDocumenter(),
		models.WorkerResearcher: NewResearcher(tools, cacheSize),
	}
	return &Registry{workers: workers}
}

// Get returns the worker for the given type.
// Returns ErrWorkerNotFound for unknown or unregistered types.
func (r *Registry) Get(t models.WorkerType) (Worker, error) {
	w, ok := r.workers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrWorkerNotFound, t)
	}
	return w, nil
}

// Researcher returns the registry's research worker, or nil if absent.
func (r *Registry) Researcher() *ResearchWorker {
	w, ok := r.workers[models.WorkerResearcher]
	if !ok {
		return nil
	}
	rw, ok := w.(*ResearchWorker)
	if !ok {
		return nil
	}
	return rw
}
