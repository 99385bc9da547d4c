// Package service runs dataset generation scenarios on top of the domain
// generators and reports what it produced.
package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/okian/crowdsynth/internal/domain/crowd"
	"github.com/okian/crowdsynth/internal/domain/labeling"
	"github.com/okian/crowdsynth/internal/domain/model"
	"github.com/okian/crowdsynth/internal/domain/task"
	"github.com/okian/crowdsynth/pkg/logger"
	"github.com/okian/crowdsynth/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

const nanosecondsPerMillisecond = 1e6

// Service generates synthetic crowdsourcing datasets.
type Service struct {
	crowds      *crowd.Builder
	parallelism int
	metrics     *metrics.Manager
	logger      logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics manager. Defaults to the global manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithCrowdBuilder sets the builder used for crowds, e.g. one with custom
// Dirichlet constants.
func WithCrowdBuilder(b *crowd.Builder) Option {
	return func(s *Service) {
		if b != nil {
			s.crowds = b
		}
	}
}

// WithParallelism bounds how many replicates are generated concurrently.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		crowds:      crowd.NewBuilder(),
		parallelism: runtime.NumCPU(),
		metrics:     metrics.Default(),
		logger:      nil, // resolved on first use
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s.logger
}

// NewRand returns the random source used for a given seed. Every generator
// call for one dataset draws from the same source.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // reproducible simulation, not security
}

// Run generates a single dataset from sc.
func (s *Service) Run(ctx context.Context, sc Scenario) (*Dataset, error) {
	return s.generate(ctx, sc, 0)
}

// RunReplicates generates count datasets concurrently. Replicate i uses seed
// sc.Seed+i and its own random source, so results do not depend on
// scheduling. Datasets are returned in replicate order.
func (s *Service) RunReplicates(ctx context.Context, sc Scenario, count int) ([]*Dataset, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: replicate count %d", model.ErrInvalidArgument, count)
	}
	s.log() // resolve before fan-out

	out := make([]*Dataset, count)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rep := sc
			rep.Seed = sc.Seed + uint64(i)
			ds, err := s.generate(ctx, rep, i)
			if err != nil {
				return fmt.Errorf("replicate %d: %w", i, err)
			}
			out[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) generate(ctx context.Context, sc Scenario, replicate int) (*Dataset, error) {
	start := time.Now()
	r := NewRand(sc.Seed)
	ds := &Dataset{
		RunID:     uuid.New(),
		Replicate: replicate,
		Seed:      sc.Seed,
		Policy:    sc.Policy,
		Classes:   sc.Classes,
	}

	var err error
	switch sc.Policy {
	case PolicyFixed:
		err = s.generateFixed(r, sc, ds)
	case PolicyPowerLaw:
		err = s.generatePowerLaw(ctx, r, sc, ds)
	case PolicyBonald:
		err = s.generateBonald(r, sc, ds)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownPolicy, sc.Policy)
	}
	if err != nil {
		s.metrics.RecordError(string(sc.Policy))
		s.log().Error(ctx, "dataset generation failed",
			logger.String("policy", string(sc.Policy)),
			logger.Int("replicate", replicate),
			logger.Error(err))
		return nil, err
	}

	elapsed := time.Since(start)
	s.record(ds)
	s.metrics.RecordDataset(string(sc.Policy), len(ds.Tasks), len(ds.Labels), float64(elapsed.Nanoseconds())/nanosecondsPerMillisecond)
	s.log().Info(ctx, "generated dataset",
		logger.String("runID", ds.RunID.String()),
		logger.String("policy", string(sc.Policy)),
		logger.Int("replicate", replicate),
		logger.Any("seed", sc.Seed),
		logger.Int("tasks", len(ds.Tasks)),
		logger.Int("labels", len(ds.Labels)),
		logger.Float64("labelsPerTask", float64(len(ds.Labels))/float64(len(ds.Tasks))),
		logger.Duration("elapsed", elapsed))
	return ds, nil
}

func (s *Service) generateFixed(r *rand.Rand, sc Scenario, ds *Dataset) error {
	tasks, err := task.AssignClasses(r, sc.Tasks, sc.Classes, sc.ClassProportion)
	if err != nil {
		return err
	}
	workers, err := s.crowds.Build(r, sc.Workers, sc.Classes, sc.ArchetypeProportion)
	if err != nil {
		return err
	}
	labels, err := labeling.LabelFixed(r, tasks, workers, sc.QueriesPerTask)
	if err != nil {
		return err
	}
	ds.Tasks, ds.GroundTruth, ds.Crowd, ds.Labels = tasks, task.GroundTruth(tasks), workers, labels
	return nil
}

func (s *Service) generatePowerLaw(ctx context.Context, r *rand.Rand, sc Scenario, ds *Dataset) error {
	tasks, err := task.AssignClasses(r, sc.Tasks, sc.Classes, sc.ClassProportion)
	if err != nil {
		return err
	}
	workers, err := s.crowds.BuildWithLoad(r, sc.Workers, sc.Classes, sc.MaxLoad, sc.ArchetypeProportion)
	if err != nil {
		return err
	}
	s.logWorkloads(ctx, workers)
	labels, err := labeling.LabelPowerLaw(r, tasks, workers)
	if err != nil {
		return err
	}
	s.metrics.UpdateTotalWorkload(crowd.TotalWorkload(workers))
	ds.Tasks, ds.GroundTruth, ds.Crowd, ds.Labels = tasks, task.GroundTruth(tasks), workers, labels
	return nil
}

func (s *Service) generateBonald(r *rand.Rand, sc Scenario, ds *Dataset) error {
	labels, truth, err := labeling.LabelBonald(r, sc.Workers, sc.Tasks, sc.RatingRate, sc.Reliability, sc.ClassProportion)
	if err != nil {
		return err
	}
	tasks := make([]model.Task, len(truth))
	for id, class := range truth {
		tasks[id] = model.Task{ID: id, Class: class}
	}
	ds.Classes = 2
	ds.Tasks, ds.GroundTruth, ds.Labels = tasks, truth, labels
	s.metrics.RecordAbstentions(string(PolicyBonald), sc.Workers*sc.Tasks-len(labels))
	return nil
}

// record feeds the dataset's shape into the metrics manager.
func (s *Service) record(ds *Dataset) {
	for class, n := range task.ClassCounts(ds.Tasks, ds.Classes) {
		s.metrics.RecordTasks(class, n)
	}
	if ds.Crowd == nil {
		return
	}
	counts := crowd.ArchetypeCounts(ds.Crowd)
	for i, a := range model.Archetypes {
		s.metrics.RecordWorkers(a.String(), counts[i])
	}
}

// logWorkloads reports how many workers carry each workload.
func (s *Service) logWorkloads(ctx context.Context, workers []model.Worker) {
	hist := crowd.WorkloadHistogram(workers)
	loads := make([]int, 0, len(hist))
	for l := range hist {
		loads = append(loads, l)
	}
	sort.Ints(loads)
	fields := make([]logger.Field, 0, len(loads)+1)
	fields = append(fields, logger.Int("totalWorkload", crowd.TotalWorkload(workers)))
	for _, l := range loads {
		fields = append(fields, logger.Int(fmt.Sprintf("load_%d", l), hist[l]))
	}
	s.log().Debug(ctx, "power-law workload distribution", fields...)
}
