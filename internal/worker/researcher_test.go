package worker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// stubToolCaller is a ToolCaller returning canned tools and results.
type stubToolCaller struct {
	tools     []models.ServerTool
	callCount int
	callErr   error
}

func (s *stubToolCaller) AllTools() []models.ServerTool {
	return s.tools
}

func (s *stubToolCaller) CallTool(ctx context.Context, server, tool string, args map[string]any) (any, error) {
	s.callCount++
	if s.callErr != nil {
		return nil, s.callErr
	}
	return []string{"main.go", "go.mod"}, nil
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fix Memory Leak", "fix_memory_leak"},
		{"  spaced   out\tquery ", "spaced_out_query"},
		{"already_normal", "already_normal"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeQuery(tt.in); got != tt.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResearcherCachesByNormalizedQuery(t *testing.T) {
	r := NewResearcher(nil, 0)
	wctx := models.Context{}

	task := models.NewTask("Fix Memory Leak", models.WorkerResearcher, models.PriorityHigh)
	first, err := r.Process(context.Background(), task, wctx)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// A differently cased and spaced query must hit the same entry.
	task2 := models.NewTask("fix   memory leak", models.WorkerResearcher, models.PriorityHigh)
	second, err := r.Process(context.Background(), task2, wctx)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if first != second {
		t.Error("expected cache hit for normalized-equal queries")
	}
	if r.CacheSize() != 1 {
		t.Errorf("expected 1 cache entry, got %d", r.CacheSize())
	}

	if _, ok := r.CachedResearch("FIX MEMORY LEAK"); !ok {
		t.Error("CachedResearch should find the normalized entry")
	}
}

func TestResearcherClearCache(t *testing.T) {
	r := NewResearcher(nil, 0)

	task := models.NewTask("investigate timeout handling", models.WorkerResearcher, models.PriorityMedium)
	if _, err := r.Process(context.Background(), task, models.Context{}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if _, ok := r.CachedResearch("investigate timeout handling"); !ok {
		t.Fatal("expected entry to be cached")
	}

	r.ClearCache()

	if findings, ok := r.CachedResearch("investigate timeout handling"); ok {
		t.Errorf("expected empty cache after clear, got %q", findings)
	}
	if r.CacheSize() != 0 {
		t.Errorf("expected empty cache, got %d entries", r.CacheSize())
	}
}

func TestResearcherCacheEvictsLeastRecentlyUsed(t *testing.T) {
	r := NewResearcher(nil, 2)

	for i := 0; i < 3; i++ {
		task := models.NewTask(fmt.Sprintf("query %d", i), models.WorkerResearcher, models.PriorityLow)
		if _, err := r.Process(context.Background(), task, models.Context{}); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}

	if r.CacheSize() != 2 {
		t.Fatalf("expected capacity-bounded cache of 2, got %d", r.CacheSize())
	}
	if _, ok := r.CachedResearch("query 0"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := r.CachedResearch("query 2"); !ok {
		t.Error("newest entry should be cached")
	}
}

func TestResearcherIncludesProviderTools(t *testing.T) {
	stub := &stubToolCaller{
		tools: []models.ServerTool{
			{Server: "filesystem", Tool: models.ToolDescriptor{Name: "list_directory"}},
		},
	}
	r := NewResearcher(stub, 0)

	task := models.NewTask("survey project layout", models.WorkerResearcher, models.PriorityMedium)
	findings, err := r.Process(context.Background(), task, models.Context{})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if !strings.Contains(findings, "filesystem/list_directory") {
		t.Errorf("findings missing provider tool inventory:\n%s", findings)
	}
	if stub.callCount != 1 {
		t.Errorf("expected one tool call, got %d", stub.callCount)
	}
}

func TestResearcherSwallowsProviderErrors(t *testing.T) {
	stub := &stubToolCaller{
		tools: []models.ServerTool{
			{Server: "filesystem", Tool: models.ToolDescriptor{Name: "list_directory"}},
		},
		callErr: fmt.Errorf("provider down"),
	}
	r := NewResearcher(stub, 0)

	task := models.NewTask("survey project layout", models.WorkerResearcher, models.PriorityMedium)
	findings, err := r.Process(context.Background(), task, models.Context{})
	if err != nil {
		t.Fatalf("expected provider errors to be swallowed, got %v", err)
	}
	if findings == "" {
		t.Fatal("expected findings despite provider failure")
	}
}

func TestResearcherSupportAppendsFocus(t *testing.T) {
	r := NewResearcher(nil, 0)
	task := models.NewTask("fix memory leak in service", models.WorkerResearcher, models.PriorityHigh)

	findings, err := r.Support(context.Background(), models.WorkerDebugger, task, models.Context{})
	if err != nil {
		t.Fatalf("Support failed: %v", err)
	}
	if !strings.Contains(findings, "known failure modes") {
		t.Errorf("expected debugger focus in findings:\n%s", findings)
	}

	// Support must not mutate the original task description.
	if task.Description != "fix memory leak in service" {
		t.Errorf("Support mutated the task description: %q", task.Description)
	}

	// Different targets are distinct cache entries.
	if _, err := r.Support(context.Background(), models.WorkerTester, task, models.Context{}); err != nil {
		t.Fatalf("Support failed: %v", err)
	}
	if r.CacheSize() != 2 {
		t.Errorf("expected 2 cache entries for 2 targets, got %d", r.CacheSize())
	}
}

func TestResearcherWritesReportIntoContext(t *testing.T) {
	r := NewResearcher(nil, 0)
	wctx := models.Context{}
	task := models.NewTask("document the API", models.WorkerResearcher, models.PriorityLow)

	findings, err := r.Process(context.Background(), task, wctx)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	report, ok := wctx[models.ContextKeyResearchReport].(string)
	if !ok || report != findings {
		t.Error("expected research report to be written into the shared context")
	}
}
