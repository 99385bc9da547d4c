package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/okian/crowdsynth/internal/config"
	"github.com/okian/crowdsynth/internal/domain/model"
)

// Policy selects how labels are queried from the crowd.
type Policy string

// Labeling policies.
const (
	PolicyFixed    Policy = "fixed"     // N uniform queries per task
	PolicyPowerLaw Policy = "power_law" // harmonic per-worker workloads plus coverage
	PolicyBonald   Policy = "bonald"    // binary one-coin model with abstention
)

// ParsePolicy converts a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyFixed, PolicyPowerLaw, PolicyBonald:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Scenario describes one dataset to generate.
type Scenario struct {
	Policy Policy
	Seed   uint64

	Tasks   int // n
	Workers int // m
	Classes int // K

	ClassProportion     []float64
	ArchetypeProportion []float64

	QueriesPerTask int       // fixed
	MaxLoad        int       // power_law
	RatingRate     float64   // bonald alpha
	Reliability    []float64 // bonald theta, one per worker
}

// ScenarioFromConfig maps configuration onto a scenario.
func ScenarioFromConfig(cfg *config.Config) (Scenario, error) {
	p, err := ParsePolicy(cfg.Policy)
	if err != nil {
		return Scenario{}, err
	}
	return Scenario{
		Policy:              p,
		Seed:                cfg.Seed,
		Tasks:               cfg.Tasks,
		Workers:             cfg.Workers,
		Classes:             cfg.Classes,
		ClassProportion:     cfg.ClassProportion,
		ArchetypeProportion: cfg.ArchetypeProportion,
		QueriesPerTask:      cfg.QueriesPerTask,
		MaxLoad:             cfg.MaxLoad,
		RatingRate:          cfg.RatingRate,
		Reliability:         cfg.ReliabilityFor(cfg.Workers),
	}, nil
}

// Dataset is the output of one scenario run.
type Dataset struct {
	RunID     uuid.UUID
	Replicate int
	Seed      uint64
	Policy    Policy
	Classes   int

	// Tasks in generation order; GroundTruth is indexed by task id.
	Tasks       []model.Task
	GroundTruth []int

	// Crowd is nil for the one-coin policy, whose workers are described by
	// reliability alone.
	Crowd  []model.Worker
	Labels []model.Label
}
