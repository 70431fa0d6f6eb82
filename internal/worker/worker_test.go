package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/ShayCichocki/subagent/pkg/models"
)

func TestNewCoversEveryWorkerType(t *testing.T) {
	for _, wt := range models.AllWorkerTypes {
		w, err := New(wt)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", wt, err)
		}
		if w.Type() != wt {
			t.Errorf("New(%s).Type() = %s", wt, w.Type())
		}
	}
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(models.WorkerType("wizard"))
	if !errors.Is(err, ErrWorkerNotFound) {
		t.Errorf("expected ErrWorkerNotFound, got %v", err)
	}
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry(nil, 0)

	for _, wt := range models.AllWorkerTypes {
		w, err := reg.Get(wt)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", wt, err)
		}
		if w.Type() != wt {
			t.Errorf("Get(%s).Type() = %s", wt, w.Type())
		}
	}

	if _, err := reg.Get(models.WorkerType("wizard")); !errors.Is(err, ErrWorkerNotFound) {
		t.Errorf("expected ErrWorkerNotFound for unknown type, got %v", err)
	}
}

func TestRegistryResearcher(t *testing.T) {
	reg := NewRegistry(nil, 0)

	r := reg.Researcher()
	if r == nil {
		t.Fatal("expected a researcher in a full registry")
	}
	if r.Type() != models.WorkerResearcher {
		t.Errorf("unexpected researcher type %s", r.Type())
	}
}

func TestWorkersHonorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := NewRegistry(nil, 0)
	for _, wt := range models.AllWorkerTypes {
		w, err := reg.Get(wt)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", wt, err)
		}
		task := models.NewTask("anything", wt, models.PriorityMedium)
		if _, err := w.Process(ctx, task, models.Context{}); err == nil {
			t.Errorf("%s.Process should fail on a cancelled context", wt)
		}
	}
}
