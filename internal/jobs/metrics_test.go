package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("lease-expiry").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("lease-expiry").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("lease-expiry", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("lease-expiry", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("lease-expiry")))
}

func TestRecordsAndSkips(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddRecords("late-fees", 3)
	m.AddRecords("late-fees", 0)
	m.Skipped("late-fees")

	require.Equal(t, 3.0, testutil.ToFloat64(m.records.WithLabelValues("late-fees")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("late-fees")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddRecords("x", 1)
	m.Skipped("x")
	require.NoError(t, m.Track("x").End(nil))
}
