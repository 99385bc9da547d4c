// Package config defines generator configuration structures and loading hooks.
//
// Conventions:
// - New builds a Config with defaults; Load layers a YAML file and env on top.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"
	"slices"
)

// Policies accepted by the policy field.
var Policies = []string{"fixed", "power_law", "bonald"}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Seed is the seed of the first replicate; replicate i uses Seed+i.
	Seed uint64 `koanf:"seed"`

	// Policy selects the labeling policy: fixed, power_law or bonald.
	Policy string `koanf:"policy"`

	// Tasks, Workers and Classes size the dataset (n, m and K).
	Tasks   int `koanf:"tasks"`
	Workers int `koanf:"workers"`
	Classes int `koanf:"classes"`

	// ClassProportion has one entry per class; uniform when unset.
	ClassProportion []float64 `koanf:"class_proportion"`

	// ArchetypeProportion splits workers into honest, spammer, adversary.
	ArchetypeProportion []float64 `koanf:"archetype_proportion"`

	// QueriesPerTask is N for the fixed policy.
	QueriesPerTask int `koanf:"queries_per_task"`

	// MaxLoad is the largest per-worker workload for the power_law policy.
	MaxLoad int `koanf:"max_load"`

	// RatingRate is the one-coin alpha.
	RatingRate float64 `koanf:"rating_rate"`

	// Reliability is the one-coin theta per worker. A single value applies
	// to every worker.
	Reliability []float64 `koanf:"reliability"`

	// ConcentrationBoost and ConcentrationBase are the Dirichlet a and b.
	ConcentrationBoost float64 `koanf:"concentration_boost"`
	ConcentrationBase  float64 `koanf:"concentration_base"`

	// Replicates is the number of independent datasets to generate.
	Replicates int `koanf:"replicates"`

	// Parallelism bounds how many replicates are generated at once.
	Parallelism int `koanf:"parallelism"`

	// OutputDir receives the CSV files; empty writes triplets to stdout.
	OutputDir string `koanf:"output_dir"`

	// MetricsFile, when set, receives a Prometheus textfile after the run.
	MetricsFile string `koanf:"metrics_file"`
}

// New creates a Config with defaults.
func New() *Config {
	c := &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Seed:                1,
		Policy:              "fixed",
		Tasks:               100,
		Workers:             30,
		Classes:             2,
		ArchetypeProportion: []float64{0.6, 0.2, 0.2},
		QueriesPerTask:      5,
		MaxLoad:             10,
		RatingRate:          1,
		ConcentrationBoost:  10,
		ConcentrationBase:   10,
		Replicates:          1,
		Parallelism:         runtime.NumCPU(),
	}
	c.fillDefaults()
	return c
}

// fillDefaults derives values that depend on other fields.
func (c *Config) fillDefaults() {
	if len(c.ClassProportion) == 0 && c.Classes > 0 {
		c.ClassProportion = make([]float64, c.Classes)
		for i := range c.ClassProportion {
			c.ClassProportion[i] = 1 / float64(c.Classes)
		}
	}
	if len(c.ArchetypeProportion) == 0 {
		c.ArchetypeProportion = []float64{0.6, 0.2, 0.2}
	}
}

// ReliabilityFor expands Reliability to one entry per worker.
func (c *Config) ReliabilityFor(workers int) []float64 {
	if len(c.Reliability) == 1 && workers > 1 {
		out := make([]float64, workers)
		for i := range out {
			out[i] = c.Reliability[0]
		}
		return out
	}
	return slices.Clone(c.Reliability)
}

// Validate checks structural constraints. Numeric constraints on
// proportions and probabilities are enforced again by the generators.
func (c *Config) Validate() error {
	if !slices.Contains(Policies, c.Policy) {
		return fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, c.Policy)
	}
	if c.Tasks < 1 || c.Workers < 1 || c.Classes < 1 {
		return fmt.Errorf("%w: tasks, workers and classes must be positive", ErrInvalidConfig)
	}
	if c.Replicates < 1 {
		return fmt.Errorf("%w: replicates must be positive", ErrInvalidConfig)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be positive", ErrInvalidConfig)
	}
	if len(c.ClassProportion) != c.Classes {
		return fmt.Errorf("%w: class_proportion has %d entries for %d classes", ErrInvalidConfig, len(c.ClassProportion), c.Classes)
	}
	switch c.Policy {
	case "fixed":
		if c.QueriesPerTask < 1 {
			return fmt.Errorf("%w: queries_per_task must be positive", ErrInvalidConfig)
		}
	case "power_law":
		if c.MaxLoad < 1 {
			return fmt.Errorf("%w: max_load must be positive", ErrInvalidConfig)
		}
	case "bonald":
		if c.Classes != 2 {
			return fmt.Errorf("%w: bonald policy is binary, got %d classes", ErrInvalidConfig, c.Classes)
		}
		if n := len(c.Reliability); n != 1 && n != c.Workers {
			return fmt.Errorf("%w: reliability has %d entries for %d workers", ErrInvalidConfig, n, c.Workers)
		}
	}
	return nil
}
