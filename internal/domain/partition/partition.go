// Package partition implements the floor-then-remainder rule used to split
// tasks into classes and workers into archetypes.
package partition

import (
	"fmt"
	"math"

	"github.com/okian/crowdsynth/internal/domain/model"
	"gonum.org/v1/gonum/floats"
)

// Tolerance bounds how far a proportion vector may sum away from 1.
const Tolerance = 1e-6

// Validate checks that p has the given length, holds finite non-negative
// entries and sums to 1 within Tolerance.
func Validate(p []float64, length int) error {
	if len(p) != length {
		return fmt.Errorf("%w: proportion has %d entries, want %d", model.ErrInvalidArgument, len(p), length)
	}
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: proportion[%d]=%v", model.ErrInvalidArgument, i, v)
		}
	}
	if sum := floats.Sum(p); math.Abs(sum-1) > Tolerance {
		return fmt.Errorf("%w: proportion sums to %v", model.ErrInvalidArgument, sum)
	}
	return nil
}

// Counts splits n items by p. Bucket k<len(p)-1 gets floor(n*p[k]); the last
// bucket absorbs whatever is left. Running totals are clamped to [0,n], so a
// vector summing slightly over 1 never yields a negative or oversized bucket.
func Counts(n int, p []float64) []int {
	counts := make([]int, len(p))
	if len(p) == 0 {
		return counts
	}
	assigned := 0
	last := len(p) - 1
	for k := 0; k < last; k++ {
		c := int(math.Floor(float64(n) * p[k]))
		c = max(0, min(c, n-assigned))
		counts[k] = c
		assigned += c
	}
	counts[last] = max(0, n-assigned)
	return counts
}

// Boundaries converts counts to exclusive end offsets: bucket k covers
// [ends[k-1], ends[k]).
func Boundaries(counts []int) []int {
	ends := make([]int, len(counts))
	total := 0
	for k, c := range counts {
		total += c
		ends[k] = total
	}
	return ends
}
