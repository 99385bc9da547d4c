package labeling

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// SampleCategorical draws an index from the distribution given by weights
// using a cumulative sum and a single uniform draw. weights must be non-empty
// and need not be normalized. Floating slack past the final cumulative value
// resolves to the last index with positive weight.
func SampleCategorical(r *rand.Rand, weights []float64) int {
	cum := floats.CumSum(make([]float64, len(weights)), weights)
	u := r.Float64() * cum[len(cum)-1]
	for i, c := range cum {
		if u < c {
			return i
		}
	}
	for i := len(weights) - 1; i > 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return 0
}
