package orchestrator

import (
	"sort"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// SortSubtasks returns the subtasks in dispatch order: priority weight
// descending (high=3, medium=2, low=1), preserving the planner's relative
// order among equal priorities. The sort is stable; callers rely on equal
// priorities keeping their insertion order. The input slice is not modified.
func SortSubtasks(subtasks []*models.Task) []*models.Task {
	ordered := append([]*models.Task(nil), subtasks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority.Weight() > ordered[j].Priority.Weight()
	})
	return ordered
}
