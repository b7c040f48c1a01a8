// Package metrics exposes writer, rotation and retention counters through Prometheus.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cutlog"

// Rotation outcomes.
const (
	RotationRenamed     = "renamed"
	RotationSkipped     = "skipped"
	RotationPlaceholder = "placeholder"
	RotationFailed      = "failed"
)

// Metrics holds the collectors of one factory.
type Metrics struct {
	registry prometheus.Gatherer

	flushes        *prometheus.CounterVec
	flushedBytes   *prometheus.CounterVec
	backpressure   *prometheus.CounterVec
	sinkErrors     *prometheus.CounterVec
	rotations      *prometheus.CounterVec
	duplicateOwner *prometheus.CounterVec
	deleted        *prometheus.CounterVec
	cleanErrors    *prometheus.CounterVec
}

// New registers the collectors with registerer. A nil registerer uses a private registry.
// Collectors already registered by an earlier New on the same registerer are reused, so
// several factories can share prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{}

	if registerer == nil {
		registry := prometheus.NewRegistry()
		registerer = registry
		m.registry = registry
	} else if g, ok := registerer.(prometheus.Gatherer); ok {
		m.registry = g
	}

	m.flushes = counterVec(
		registerer,
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writer_flushes_total",
			Help:      "Total number of buffer flushes handed to a sink",
		},
		[]string{"level", "component"},
	)
	m.flushedBytes = counterVec(
		registerer,
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writer_flushed_bytes_total",
			Help:      "Total bytes handed to sinks",
		},
		[]string{"level", "component"},
	)
	m.backpressure = counterVec(
		registerer,
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writer_backpressure_total",
			Help:      "Total number of times a sink asked the writer to wait for a drain",
		},
		[]string{"level", "component"},
	)
	m.sinkErrors = counterVec(
		registerer,
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writer_errors_total",
			Help:      "Total sink and formatter errors",
		},
		[]string{"level", "component"},
	)
	m.rotations = counterVec(
		registerer,
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rotations_total",
			Help:      "Total rotation ticks by outcome",
		},
		[]string{"dir", "result"},
	)
	m.duplicateOwner = counterVec(
		registerer,
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rotation_duplicate_owner_total",
			Help:      "Ticks where a dated file existed that this process did not create",
		},
		[]string{"dir"},
	)
	m.deleted = counterVec(
		registerer,
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deleted_total",
			Help:      "Total expired files deleted",
		},
		[]string{"dir"},
	)
	m.cleanErrors = counterVec(
		registerer,
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_errors_total",
			Help:      "Total retention listing and deletion errors",
		},
		[]string{"dir"},
	)

	return m
}

// counterVec registers a new CounterVec or returns the one registered under the same name.
// Conflicting descriptors panic, as MustRegister does.
func counterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(opts, labels)

	err := registerer.Register(vec)
	if err == nil {
		return vec
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
	}

	panic(err)
}

// Gatherer returns the registry the collectors were registered with, if it can be gathered.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}

	return m.registry
}

// Flush records one flush of n bytes.
func (m *Metrics) Flush(level, component string, n int) {
	if m == nil {
		return
	}

	m.flushes.WithLabelValues(level, component).Inc()
	m.flushedBytes.WithLabelValues(level, component).Add(float64(n))
}

// Backpressure records one backpressure signal.
func (m *Metrics) Backpressure(level, component string) {
	if m == nil {
		return
	}

	m.backpressure.WithLabelValues(level, component).Inc()
}

// WriteError records one sink or formatter error.
func (m *Metrics) WriteError(level, component string) {
	if m == nil {
		return
	}

	m.sinkErrors.WithLabelValues(level, component).Inc()
}

// Rotation records the outcome of one rotation tick.
func (m *Metrics) Rotation(dir, result string) {
	if m == nil {
		return
	}

	m.rotations.WithLabelValues(dir, result).Inc()
}

// DuplicateOwner records a suspected second rotation owner.
func (m *Metrics) DuplicateOwner(dir string) {
	if m == nil {
		return
	}

	m.duplicateOwner.WithLabelValues(dir).Inc()
}

// Deleted records one expired file removal.
func (m *Metrics) Deleted(dir string) {
	if m == nil {
		return
	}

	m.deleted.WithLabelValues(dir).Inc()
}

// CleanError records one retention failure.
func (m *Metrics) CleanError(dir string) {
	if m == nil {
		return
	}

	m.cleanErrors.WithLabelValues(dir).Inc()
}
