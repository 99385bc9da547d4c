package confusion

// Option applies a configuration option to the Factory.
type Option func(*Factory)

// WithConcentration overrides the Dirichlet constants. boost is the factor a
// applied to the favored entry, base is the common concentration b.
// Non-positive values are ignored.
func WithConcentration(boost, base float64) Option {
	return func(f *Factory) {
		if boost > 0 && base > 0 {
			f.boost = boost
			f.base = base
		}
	}
}
