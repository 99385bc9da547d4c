// Package confusion synthesizes per-worker confusion matrices from a worker
// archetype using a rotated Dirichlet scheme.
package confusion

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/crowdsynth/internal/domain/model"
	"gonum.org/v1/gonum/stat/distmv"
)

// Default Dirichlet constants.
const (
	DefaultBoost = 10 // a
	DefaultBase  = 10 // b
)

// Factory builds confusion matrices. The zero value is not usable; use
// NewFactory.
type Factory struct {
	boost float64
	base  float64
}

// NewFactory creates a factory with a=b=10 unless overridden.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		boost: DefaultBoost,
		base:  DefaultBase,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var defaultFactory = NewFactory()

// BuildMatrix builds a k×k matrix for archetype a with the default constants.
func BuildMatrix(r *rand.Rand, k int, a model.Archetype) (*model.ConfusionMatrix, error) {
	return defaultFactory.Build(r, k, a)
}

// Concentration returns the unrotated Dirichlet parameter for archetype a:
//
//	honest    (a*b, b, ..., b)
//	spammer   (b, b, ..., b)
//	adversary (b/a, b, ..., b)
func (f *Factory) Concentration(k int, a model.Archetype) ([]float64, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: class count %d", model.ErrInvalidArgument, k)
	}
	if !a.Valid() {
		return nil, fmt.Errorf("%w: unknown archetype %s", model.ErrInvalidArgument, a)
	}
	alpha := make([]float64, k)
	for j := range alpha {
		alpha[j] = f.base
	}
	switch a {
	case model.Honest:
		alpha[0] = f.boost * f.base
	case model.Spammer:
	case model.Adversary:
		alpha[0] = f.base / f.boost
	}
	return alpha, nil
}

// Build draws row i from Dirichlet(alpha rotated right by i). For honest
// workers the boosted entry follows the diagonal; for adversaries the
// depleted entry does, pushing mass onto wrong classes.
func (f *Factory) Build(r *rand.Rand, k int, a model.Archetype) (*model.ConfusionMatrix, error) {
	base, err := f.Concentration(k, a)
	if err != nil {
		return nil, err
	}

	m := model.NewConfusionMatrix(k)
	alpha := make([]float64, k)
	row := make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			alpha[j] = base[(j-i+k)%k]
		}
		distmv.NewDirichlet(alpha, r).Rand(row)
		m.SetRow(i, row)
	}
	return m, nil
}
