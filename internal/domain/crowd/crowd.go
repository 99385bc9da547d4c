// Package crowd builds simulated workers with archetypes, confusion matrices
// and optional power-law workloads.
package crowd

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/crowdsynth/internal/domain/confusion"
	"github.com/okian/crowdsynth/internal/domain/model"
	"github.com/okian/crowdsynth/internal/domain/partition"
)

// Builder creates crowds. Use NewBuilder.
type Builder struct {
	matrices *confusion.Factory
}

// NewBuilder creates a builder backed by the default confusion factory
// unless overridden.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{matrices: confusion.NewFactory()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var defaultBuilder = NewBuilder()

// BuildCrowd builds m workers with the default builder.
func BuildCrowd(r *rand.Rand, m, k int, proportion []float64) ([]model.Worker, error) {
	return defaultBuilder.Build(r, m, k, proportion)
}

// BuildCrowdWithLoad builds m workers with power-law workloads using the
// default builder.
func BuildCrowdWithLoad(r *rand.Rand, m, k, maxN int, proportion []float64) ([]model.Worker, error) {
	return defaultBuilder.BuildWithLoad(r, m, k, maxN, proportion)
}

// Build creates worker ids 0..m-1, shuffles them and splits the permuted
// order into honest, spammer and adversary groups by proportion. The
// adversary group absorbs the rounding remainder. Workers are returned in
// the permuted order.
func (b *Builder) Build(r *rand.Rand, m, k int, proportion []float64) ([]model.Worker, error) {
	if m < 1 {
		return nil, fmt.Errorf("%w: worker count %d", model.ErrInvalidArgument, m)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: class count %d", model.ErrInvalidArgument, k)
	}
	if err := partition.Validate(proportion, model.ArchetypeCount); err != nil {
		return nil, fmt.Errorf("archetype proportion: %w", err)
	}

	workers := make([]model.Worker, m)
	for i := range workers {
		workers[i].ID = i
	}
	r.Shuffle(m, func(i, j int) { workers[i], workers[j] = workers[j], workers[i] })

	ends := partition.Boundaries(partition.Counts(m, proportion))
	group := 0
	for i := range workers {
		for i >= ends[group] {
			group++
		}
		a := model.Archetypes[group]
		cm, err := b.matrices.Build(r, k, a)
		if err != nil {
			return nil, err
		}
		workers[i].Archetype = a
		workers[i].Confusion = cm
	}
	return workers, nil
}

// BuildWithLoad builds the crowd as Build does, reshuffles it and hands out
// workloads following the harmonic schedule of Workloads.
func (b *Builder) BuildWithLoad(r *rand.Rand, m, k, maxN int, proportion []float64) ([]model.Worker, error) {
	if maxN < 1 {
		return nil, fmt.Errorf("%w: max load %d", model.ErrInvalidArgument, maxN)
	}
	workers, err := b.Build(r, m, k, proportion)
	if err != nil {
		return nil, err
	}
	r.Shuffle(m, func(i, j int) { workers[i], workers[j] = workers[j], workers[i] })

	for i, load := range Workloads(m, maxN) {
		workers[i].Workload = load
	}
	return workers, nil
}

// Workloads returns the per-slot label counts for m workers with loads in
// 1..maxN. The number of workers with load k is floor(S/k) where
// S = m / H(maxN); a zero count still gives one worker load k while slots
// remain. Slots left over get load 1.
func Workloads(m, maxN int) []int {
	loads := make([]int, max(m, 0))
	if m < 1 || maxN < 1 {
		return loads
	}

	harmonic := 0.0
	for k := 1; k <= maxN; k++ {
		harmonic += 1 / float64(k)
	}
	s := float64(m) / harmonic

	i := 0
	for k := 1; k <= maxN && i < m; k++ {
		n := int(s / float64(k))
		if n < 1 {
			n = 1
		}
		end := min(i+n, m)
		for ; i < end; i++ {
			loads[i] = k
		}
	}
	for ; i < m; i++ {
		loads[i] = 1
	}
	return loads
}

// ArchetypeCounts tallies workers per archetype in proportion order.
func ArchetypeCounts(workers []model.Worker) [model.ArchetypeCount]int {
	var counts [model.ArchetypeCount]int
	for _, w := range workers {
		counts[w.Archetype]++
	}
	return counts
}

// TotalWorkload sums the workloads of the crowd.
func TotalWorkload(workers []model.Worker) int {
	total := 0
	for _, w := range workers {
		total += w.Workload
	}
	return total
}

// WorkloadHistogram maps each workload to the number of workers carrying it.
func WorkloadHistogram(workers []model.Worker) map[int]int {
	hist := make(map[int]int)
	for _, w := range workers {
		hist[w.Workload]++
	}
	return hist
}
