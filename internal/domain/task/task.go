// Package task partitions tasks into ground-truth classes.
package task

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/crowdsynth/internal/domain/model"
	"github.com/okian/crowdsynth/internal/domain/partition"
)

// AssignClasses creates n tasks with ids 0..n-1, shuffles them with r and
// walks the permuted order giving class k to the next floor(n*proportion[k])
// tasks. The last class takes the rounding slack. Tasks are returned in the
// permuted order.
func AssignClasses(r *rand.Rand, n, k int, proportion []float64) ([]model.Task, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: task count %d", model.ErrInvalidArgument, n)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: class count %d", model.ErrInvalidArgument, k)
	}
	if err := partition.Validate(proportion, k); err != nil {
		return nil, fmt.Errorf("class proportion: %w", err)
	}

	tasks := make([]model.Task, n)
	for i := range tasks {
		tasks[i].ID = i
	}
	r.Shuffle(n, func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] })

	ends := partition.Boundaries(partition.Counts(n, proportion))
	class := 0
	for i := range tasks {
		for i >= ends[class] {
			class++
		}
		tasks[i].Class = class
	}
	return tasks, nil
}

// GroundTruth returns the true class of every task indexed by task id.
// Task ids must cover 0..len(tasks)-1, as AssignClasses produces.
func GroundTruth(tasks []model.Task) []int {
	truth := make([]int, len(tasks))
	for _, t := range tasks {
		truth[t.ID] = t.Class
	}
	return truth
}

// ClassCounts tallies tasks per class.
func ClassCounts(tasks []model.Task, k int) []int {
	counts := make([]int, k)
	for _, t := range tasks {
		counts[t.Class]++
	}
	return counts
}
