package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ShayCichocki/subagent/internal/worker"
	"github.com/ShayCichocki/subagent/pkg/models"
)

// DefaultHistoryLimit bounds the in-memory execution history when no limit
// is configured.
const DefaultHistoryLimit = 1000

// Gateway is the slice of the capability provider gateway the orchestrator
// drives. Satisfied by *provider.Gateway; faked in tests.
type Gateway interface {
	// AllTools lists every known (server, tool) pair.
	AllTools() []models.ServerTool
	// CallTool invokes a named tool on a connected server.
	CallTool(ctx context.Context, server, tool string, args map[string]any) (any, error)
	// ReadResource reads a resource by URI from a connected server.
	ReadResource(ctx context.Context, server, uri string) (any, error)
	// Disconnect terminates every provider process.
	Disconnect()
}

// HistoryStore persists execution results beyond the in-memory history.
// Satisfied by *state.DB. A nil store disables persistence.
type HistoryStore interface {
	RecordExecution(res models.ExecutionResult) error
}

// Config contains configuration options for the Orchestrator.
type Config struct {
	// Gateway brokers tool calls to capability providers. May be nil.
	Gateway Gateway
	// History persists execution results. May be nil.
	History HistoryStore
	// HistoryLimit bounds the in-memory execution history.
	// Zero selects DefaultHistoryLimit.
	HistoryLimit int
	// ResearchCacheSize bounds the researcher's findings cache.
	// Zero selects the worker package default.
	ResearchCacheSize int
	// Logger receives debug output. Nil selects a no-op logger.
	Logger *DebugLogger
	// Signals allows the host to interrupt queue processing. May be nil.
	Signals *SignalWatcher
}

// Orchestrator owns the task queue, dispatches tasks to workers, and records
// execution history. One orchestrator serves one workspace.
type Orchestrator struct {
	gateway  Gateway
	registry *worker.Registry
	store    HistoryStore
	signals  *SignalWatcher
	logger   *DebugLogger

	historyLimit int

	// mu protects everything below.
	mu          sync.RWMutex
	queue       []*models.Task
	activeTasks map[string]*models.Task
	rootTasks   []*models.Task
	history     []models.ExecutionResult
	context     models.Context
	disposed    bool
}

// New creates an orchestrator from the given configuration.
func New(cfg Config) *Orchestrator {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger()
	}
	setPackageLogger(logger)

	var tools worker.ToolCaller
	if cfg.Gateway != nil {
		tools = cfg.Gateway
	}

	return &Orchestrator{
		gateway:      cfg.Gateway,
		registry:     worker.NewRegistry(tools, cfg.ResearchCacheSize),
		store:        cfg.History,
		signals:      cfg.Signals,
		logger:       logger,
		historyLimit: limit,
		activeTasks:  make(map[string]*models.Task),
		context:      make(models.Context),
	}
}

// SetContext merges the given entries into the orchestrator's shared context.
// The underlying map object is never replaced: tasks created earlier observe
// the new entries because they hold the same map.
func (o *Orchestrator) SetContext(entries models.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for k, v := range entries {
		o.context[k] = v
	}
	debugLog("context updated, %d key(s) merged", len(entries))
}

// Context returns the shared context map itself, not a copy.
func (o *Orchestrator) Context() models.Context {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.context
}

// CreateTask creates a root task assigned to the planner, attaches the shared
// context, and enqueues it for processing. The priority is carried on the
// task but does not affect root task ordering, which stays FIFO.
func (o *Orchestrator) CreateTask(description string, priority models.TaskPriority) *models.Task {
	task := models.NewTask(description, models.WorkerPlanner, priority)

	o.mu.Lock()
	task.Context = o.context
	o.queue = append(o.queue, task)
	o.rootTasks = append(o.rootTasks, task)
	o.mu.Unlock()

	debugLog("created task %s: %s", task.ID, description)
	return task
}

// ExecuteTask runs a single task to completion. A planner task that produces
// subtasks has them dispatched sequentially in priority order; any other task
// is dispatched directly to its assigned worker. The returned slice holds one
// entry per executed task in execution order.
func (o *Orchestrator) ExecuteTask(ctx context.Context, task *models.Task) []models.ExecutionResult {
	result := o.executeAgentTask(ctx, task)
	results := []models.ExecutionResult{result}

	if result.Success && task.AssignedTo == models.WorkerPlanner && len(task.Subtasks) > 0 {
		results = append(results, o.executeSubtasks(ctx, task)...)
	}

	return results
}

// executeAgentTask dispatches one task to its assigned worker and records
// the outcome. The task moves pending -> in_progress -> completed/failed; a
// result entry is recorded in the history for both outcomes.
func (o *Orchestrator) executeAgentTask(ctx context.Context, task *models.Task) models.ExecutionResult {
	started := time.Now()

	o.mu.Lock()
	task.Status = models.TaskStatusInProgress
	o.activeTasks[task.ID] = task
	wctx := task.Context
	if wctx == nil {
		wctx = o.context
		task.Context = wctx
	}
	o.mu.Unlock()

	debugLog("dispatching task %s to %s", task.ID, task.AssignedTo)

	var output string
	w, err := o.registry.Get(task.AssignedTo)
	if err == nil {
		output, err = w.Process(ctx, task, wctx)
	}

	elapsed := time.Since(started)

	o.mu.Lock()
	delete(o.activeTasks, task.ID)
	if err != nil {
		task.Status = models.TaskStatusFailed
		task.Result = fmt.Sprintf("error: %v", err)
	} else {
		task.Status = models.TaskStatusCompleted
		task.Result = output
	}
	result := models.ExecutionResult{
		Success:    err == nil,
		Result:     task.Result,
		Agent:      task.AssignedTo,
		Task:       task,
		TaskID:     task.ID,
		Duration:   elapsed,
		FinishedAt: time.Now(),
	}
	o.recordResultLocked(result)
	o.mu.Unlock()

	if err != nil {
		debugLog("task %s failed after %s: %v", task.ID, elapsed, err)
	} else {
		debugLog("task %s completed in %s", task.ID, elapsed)
	}
	return result
}

// executeSubtasks dispatches a planner's subtasks one at a time, highest
// priority first. Before each non-researcher subtask runs, the researcher
// enhances it with findings focused on that subtask's worker. A failed
// subtask never aborts the sequence; a high-priority failure is logged as a
// warning and execution continues.
func (o *Orchestrator) executeSubtasks(ctx context.Context, parent *models.Task) []models.ExecutionResult {
	ordered := SortSubtasks(parent.Subtasks)
	results := make([]models.ExecutionResult, 0, len(ordered))

	for _, sub := range ordered {
		o.enhanceWithResearch(ctx, sub)

		res := o.executeAgentTask(ctx, sub)
		results = append(results, res)

		if !res.Success && sub.Priority == models.PriorityHigh {
			log.Printf("[orchestrator] high-priority subtask %s (%s) failed; continuing with remaining subtasks", sub.ID, sub.AssignedTo)
		}
	}

	return results
}

// enhanceWithResearch asks the researcher for findings focused on the
// subtask's worker and stores them in the subtask's context. Researcher
// subtasks are skipped; they produce findings themselves. Enhancement
// failures are swallowed, the subtask runs without findings.
func (o *Orchestrator) enhanceWithResearch(ctx context.Context, sub *models.Task) {
	if sub.AssignedTo == models.WorkerResearcher {
		return
	}
	researcher := o.registry.Researcher()
	if researcher == nil {
		return
	}

	wctx := sub.Context
	if wctx == nil {
		o.mu.RLock()
		wctx = o.context
		o.mu.RUnlock()
		sub.Context = wctx
	}

	findings, err := researcher.Support(ctx, sub.AssignedTo, sub, wctx)
	if err != nil {
		debugLog("research enhancement for task %s failed: %v", sub.ID, err)
		return
	}
	wctx[models.ContextKeyResearchFindings] = findings
	wctx[models.ContextKeyResearchEnhanced] = true
}

// ProcessQueue drains the task queue in FIFO order, executing each task to
// completion before taking the next. A stop signal from the host halts
// draining between tasks; remaining tasks stay queued.
func (o *Orchestrator) ProcessQueue(ctx context.Context) []models.ExecutionResult {
	var all []models.ExecutionResult

	for {
		if o.signals != nil {
			if o.signals.ShouldClearHistory() {
				o.ClearHistory()
				o.signals.ClearSignals()
			}
			if o.signals.ShouldStop() {
				debugLog("stop signal received, %d task(s) left queued", o.queuedCount())
				return all
			}
		}
		if err := ctx.Err(); err != nil {
			return all
		}

		o.mu.Lock()
		if len(o.queue) == 0 {
			o.mu.Unlock()
			return all
		}
		task := o.queue[0]
		o.queue = o.queue[1:]
		o.mu.Unlock()

		all = append(all, o.ExecuteTask(ctx, task)...)
	}
}

// ProcessUserRequest creates a task for the request, drains the queue, and
// returns a formatted report of everything that ran.
func (o *Orchestrator) ProcessUserRequest(ctx context.Context, request string) string {
	o.CreateTask(request, models.PriorityMedium)
	results := o.ProcessQueue(ctx)
	return FormatReport(request, results)
}

// TaskStatus reports the status of a task by ID, searching active tasks
// first and then the execution history. The second return is false when the
// ID is unknown.
func (o *Orchestrator) TaskStatus(id string) (models.TaskStatus, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if task, ok := o.activeTasks[id]; ok {
		return task.Status, true
	}
	for i := len(o.history) - 1; i >= 0; i-- {
		if o.history[i].TaskID == id {
			if o.history[i].Success {
				return models.TaskStatusCompleted, true
			}
			return models.TaskStatusFailed, true
		}
	}
	return "", false
}

// ActiveTasks returns the currently executing tasks, keyed by ID.
// The map is a copy; the tasks are shared.
func (o *Orchestrator) ActiveTasks() map[string]*models.Task {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]*models.Task, len(o.activeTasks))
	for id, task := range o.activeTasks {
		out[id] = task
	}
	return out
}

// ExecutionHistory returns a copy of the recorded execution results, oldest
// first.
func (o *Orchestrator) ExecutionHistory() []models.ExecutionResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]models.ExecutionResult(nil), o.history...)
}

// TaskHistory returns snapshots of every root task created so far, in
// creation order.
func (o *Orchestrator) TaskHistory() []models.TaskSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]models.TaskSnapshot, 0, len(o.rootTasks))
	for _, task := range o.rootTasks {
		out = append(out, task.Snapshot())
	}
	return out
}

// ClearHistory drops the in-memory execution history.
func (o *Orchestrator) ClearHistory() {
	o.mu.Lock()
	o.history = nil
	o.mu.Unlock()
	debugLog("execution history cleared")
}

// QueuedTasks returns the number of tasks waiting in the queue.
func (o *Orchestrator) QueuedTasks() int {
	return o.queuedCount()
}

func (o *Orchestrator) queuedCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.queue)
}

// Dispose releases everything the orchestrator owns: the queue, active task
// map, history, research cache, and every provider connection. Idempotent;
// the orchestrator must not be used afterwards.
func (o *Orchestrator) Dispose() {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}
	o.disposed = true
	o.queue = nil
	o.activeTasks = make(map[string]*models.Task)
	o.history = nil
	o.rootTasks = nil
	o.mu.Unlock()

	if researcher := o.registry.Researcher(); researcher != nil {
		researcher.ClearCache()
	}
	if o.gateway != nil {
		o.gateway.Disconnect()
	}
	if o.signals != nil {
		o.signals.Close()
	}
	debugLog("orchestrator disposed")
}

// recordResultLocked appends a result to the bounded history and hands it to
// the persistent store if one is configured. Caller holds o.mu.
func (o *Orchestrator) recordResultLocked(res models.ExecutionResult) {
	o.history = append(o.history, res)
	if len(o.history) > o.historyLimit {
		o.history = o.history[len(o.history)-o.historyLimit:]
	}

	if o.store != nil {
		if err := o.store.RecordExecution(res); err != nil {
			log.Printf("[orchestrator] failed to persist execution result for %s: %v", res.TaskID, err)
		}
	}
}
