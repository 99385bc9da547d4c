// Package metrics provides Prometheus metrics for the crowdsynth generator.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the generator.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	// Generation output
	datasetsGenerated *prometheus.CounterVec
	labelsEmitted     *prometheus.CounterVec
	abstentions       *prometheus.CounterVec
	tasksGenerated    *prometheus.CounterVec
	workersBuilt      *prometheus.CounterVec

	// Generation cost and failures
	generationDuration *prometheus.HistogramVec
	generationErrors   *prometheus.CounterVec

	// Last run shape
	lastLabelsPerTask *prometheus.GaugeVec
	lastTotalWorkload prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager. Without WithPrometheusRegistry it
// registers on a fresh private registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "crowdsynth",
		subsystem:        "generator",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

// Default returns the process-wide manager backing the package-level helpers.
func Default() *Manager {
	return globalManager
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.datasetsGenerated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "datasets_generated_total",
		Help:      "Total number of datasets generated by labeling policy",
	}, []string{"policy"})

	m.labelsEmitted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "labels_emitted_total",
		Help:      "Total number of (task, worker, class) triplets emitted by labeling policy",
	}, []string{"policy"})

	m.abstentions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "abstentions_total",
		Help:      "Total number of (worker, task) pairs dropped because the worker abstained",
	}, []string{"policy"})

	m.tasksGenerated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tasks_generated_total",
		Help:      "Total number of tasks generated by true class",
	}, []string{"class"})

	m.workersBuilt = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "workers_built_total",
		Help:      "Total number of simulated workers built by archetype",
	}, []string{"archetype"})

	m.generationDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "generation_duration_milliseconds",
		Help:      "Time spent generating one dataset in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"policy"})

	m.generationErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "generation_errors_total",
		Help:      "Total number of rejected generation requests by policy",
	}, []string{"policy"})

	m.lastLabelsPerTask = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_labels_per_task",
		Help:      "Mean labels per task in the most recent dataset by policy",
	}, []string{"policy"})

	m.lastTotalWorkload = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_total_workload",
		Help:      "Sum of worker workloads in the most recent power-law crowd",
	})
}

// RecordDataset records a finished dataset.
func (m *Manager) RecordDataset(policy string, tasks, labels int, durationMs float64) {
	if !m.enabled {
		return
	}
	m.datasetsGenerated.WithLabelValues(policy).Inc()
	m.labelsEmitted.WithLabelValues(policy).Add(float64(labels))
	m.generationDuration.WithLabelValues(policy).Observe(durationMs)
	if tasks > 0 {
		m.lastLabelsPerTask.WithLabelValues(policy).Set(float64(labels) / float64(tasks))
	}
}

// RecordAbstentions adds dropped (worker, task) pairs.
func (m *Manager) RecordAbstentions(policy string, count int) {
	if !m.enabled || count <= 0 {
		return
	}
	m.abstentions.WithLabelValues(policy).Add(float64(count))
}

// RecordTasks adds count tasks of the given class.
func (m *Manager) RecordTasks(class, count int) {
	if !m.enabled {
		return
	}
	m.tasksGenerated.WithLabelValues(fmt.Sprint(class)).Add(float64(count))
}

// RecordWorkers adds count workers of the given archetype.
func (m *Manager) RecordWorkers(archetype string, count int) {
	if !m.enabled {
		return
	}
	m.workersBuilt.WithLabelValues(archetype).Add(float64(count))
}

// RecordError increments the generation errors counter.
func (m *Manager) RecordError(policy string) {
	if !m.enabled {
		return
	}
	m.generationErrors.WithLabelValues(policy).Inc()
}

// UpdateTotalWorkload sets the total workload of the latest power-law crowd.
func (m *Manager) UpdateTotalWorkload(total int) {
	if !m.enabled {
		return
	}
	m.lastTotalWorkload.Set(float64(total))
}

// Registry returns the registry the manager's metrics live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the manager's metrics in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}
