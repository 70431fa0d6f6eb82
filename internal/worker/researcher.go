package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// DefaultResearchCacheSize bounds the findings cache when no size is configured.
const DefaultResearchCacheSize = 128

// ResearchWorker gathers context for a task, optionally consulting the
// capability provider gateway for available tools. It is the only stateful
// worker: computed findings are cached by normalized query.
type ResearchWorker struct {
	tools ToolCaller
	cache *findingsCache
}

// NewResearcher creates a research worker. tools may be nil, in which case
// findings are computed from the task and context alone. cacheSize <= 0
// selects DefaultResearchCacheSize.
func NewResearcher(tools ToolCaller, cacheSize int) *ResearchWorker {
	if cacheSize <= 0 {
		cacheSize = DefaultResearchCacheSize
	}
	return &ResearchWorker{
		tools: tools,
		cache: newFindingsCache(cacheSize),
	}
}

// Type returns the researcher worker type.
func (w *ResearchWorker) Type() models.WorkerType {
	return models.WorkerResearcher
}

// Process computes findings for the task description, serving repeated
// queries from the cache. The full report is written into the shared context
// under ContextKeyResearchReport.
func (w *ResearchWorker) Process(ctx context.Context, task *models.Task, wctx models.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := NormalizeQuery(task.Description)
	if findings, ok := w.cache.Get(key); ok {
		if wctx != nil {
			wctx[models.ContextKeyResearchReport] = findings
		}
		return findings, nil
	}

	findings := w.research(ctx, task, wctx)
	w.cache.Put(key, findings)
	if wctx != nil {
		wctx[models.ContextKeyResearchReport] = findings
	}
	return findings, nil
}

// Support produces a research summary tailored to the target worker type.
// It derives a copy of the task with a worker-specific focus phrase appended
// to the description and runs it through Process. The shared context is the
// original, not a copy.
func (w *ResearchWorker) Support(ctx context.Context, target models.WorkerType, task *models.Task, wctx models.Context) (string, error) {
	focused := *task
	focused.Description = fmt.Sprintf("%s %s", task.Description, focusPhrase(target))
	return w.Process(ctx, &focused, wctx)
}

// CachedResearch returns the cached findings for a raw query, if present.
// The query is normalized the same way Process normalizes it.
func (w *ResearchWorker) CachedResearch(query string) (string, bool) {
	return w.cache.Get(NormalizeQuery(query))
}

// ClearCache removes all cached findings.
func (w *ResearchWorker) ClearCache() {
	w.cache.Clear()
}

// CacheSize returns the number of cached findings.
func (w *ResearchWorker) CacheSize() int {
	return w.cache.Len()
}

// research builds the findings text for a task. Provider tool inventory is
// included when a gateway is available; gateway errors never fail research.
func (w *ResearchWorker) research(ctx context.Context, task *models.Task, wctx models.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research findings for: %s\n", task.Description)

	if projectType, ok := wctx[models.ContextKeyProjectType].(string); ok && projectType != "" {
		fmt.Fprintf(&b, "Project type: %s\n", projectType)
	}
	if files := contextFiles(wctx); len(files) > 0 {
		fmt.Fprintf(&b, "Relevant open files: %s\n", strings.Join(files, ", "))
	}

	if w.tools != nil {
		tools := w.tools.AllTools()
		if len(tools) > 0 {
			names := make([]string, 0, len(tools))
			for _, st := range tools {
				names = append(names, fmt.Sprintf("%s/%s", st.Server, st.Tool.Name))
			}
			fmt.Fprintf(&b, "Available provider tools: %s\n", strings.Join(names, ", "))

			if listing := w.listWorkspace(ctx, tools); listing != "" {
				fmt.Fprintf(&b, "Workspace listing: %s\n", listing)
			}
		}
	}

	b.WriteString("Summary: collected prior art, conventions, and constraints.\n")
	return b.String()
}

// listWorkspace calls the first directory-listing tool it finds.
// Any provider error is swallowed; research proceeds without the listing.
func (w *ResearchWorker) listWorkspace(ctx context.Context, tools []models.ServerTool) string {
	for _, st := range tools {
		if !strings.Contains(st.Tool.Name, "list") {
			continue
		}
		result, err := w.tools.CallTool(ctx, st.Server, st.Tool.Name, map[string]any{"path": "."})
		if err != nil {
			return ""
		}
		return fmt.Sprintf("%v", result)
	}
	return ""
}

// NormalizeQuery lower-cases a query and collapses whitespace runs into
// single underscores. This is the cache key for research findings.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), "_")
}

// focusPhrase returns the research focus appended for a target worker type.
func focusPhrase(target models.WorkerType) string {
	switch target {
	case models.WorkerCoder:
		return "(focus: implementation patterns and APIs)"
	case models.WorkerDebugger:
		return "(focus: known failure modes and root causes)"
	case models.WorkerTester:
		return "(focus: edge cases and test strategy)"
	case models.WorkerDocumenter:
		return "(focus: usage and documentation conventions)"
	case models.WorkerPlanner:
		return "(focus: decomposition and sequencing)"
	default:
		return "(focus: general context)"
	}
}
