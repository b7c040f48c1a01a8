package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()

	families, err := g.Gather()
	require.NoError(t, err)

	var total float64

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}

		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}

	return total
}

func TestMetricsRecord(t *testing.T) {
	m := New(nil)
	g := m.Gatherer()
	require.NotNil(t, g)

	m.Flush("info", "application", 10)
	m.Flush("info", "application", 5)
	m.Backpressure("info", "application")
	m.WriteError("error", "db")
	m.Rotation("/logs", RotationRenamed)
	m.Rotation("/logs", RotationSkipped)
	m.DuplicateOwner("/logs")
	m.Deleted("/logs")
	m.Deleted("/logs")
	m.CleanError("/logs")

	assert.InDelta(t, 2, counterValue(t, g, "cutlog_writer_flushes_total"), 0)
	assert.InDelta(t, 15, counterValue(t, g, "cutlog_writer_flushed_bytes_total"), 0)
	assert.InDelta(t, 1, counterValue(t, g, "cutlog_writer_backpressure_total"), 0)
	assert.InDelta(t, 1, counterValue(t, g, "cutlog_writer_errors_total"), 0)
	assert.InDelta(t, 2, counterValue(t, g, "cutlog_rotations_total"), 0)
	assert.InDelta(t, 1, counterValue(t, g, "cutlog_rotation_duplicate_owner_total"), 0)
	assert.InDelta(t, 2, counterValue(t, g, "cutlog_retention_deleted_total"), 0)
	assert.InDelta(t, 1, counterValue(t, g, "cutlog_retention_errors_total"), 0)
}

func TestMetricsCustomRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.Deleted("/x")
	assert.InDelta(t, 1, counterValue(t, registry, "cutlog_retention_deleted_total"), 0)

	var second *Metrics

	require.NotPanics(t, func() { second = New(registry) })

	second.Deleted("/x")
	assert.InDelta(t, 2, counterValue(t, registry, "cutlog_retention_deleted_total"), 0,
		"a second factory on the same registerer shares the collectors")
}

func TestMetricsConflictingCollectorPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "retention_deleted_total",
		Help:      "Total expired files deleted",
	}))

	assert.Panics(t, func() { New(registry) })
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Flush("info", "application", 1)
		m.Backpressure("info", "application")
		m.WriteError("info", "application")
		m.Rotation("/logs", RotationFailed)
		m.DuplicateOwner("/logs")
		m.Deleted("/logs")
		m.CleanError("/logs")
	})
	assert.Nil(t, m.Gatherer())
}
