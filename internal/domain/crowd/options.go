package crowd

import "github.com/okian/crowdsynth/internal/domain/confusion"

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithMatrixFactory sets the factory used for worker confusion matrices.
func WithMatrixFactory(f *confusion.Factory) Option {
	return func(b *Builder) {
		if f != nil {
			b.matrices = f
		}
	}
}
