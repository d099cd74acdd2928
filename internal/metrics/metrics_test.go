package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSession_CountsByEventAndOutcome(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Session(EventLogin, OutcomeSuccess)
	m.Session(EventLogin, OutcomeSuccess)
	m.Session(EventLogin, OutcomeRejected)
	m.Session(EventRefresh, OutcomeError)

	require.Equal(t, 2.0, testutil.ToFloat64(m.sessionEvents.WithLabelValues(EventLogin, OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sessionEvents.WithLabelValues(EventLogin, OutcomeRejected)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sessionEvents.WithLabelValues(EventRefresh, OutcomeError)))
	require.Equal(t, 3, testutil.CollectAndCount(m.sessionEvents))
}

func TestObserveHTTP(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHTTP("POST", "/api/v1/users/login", "200", 15*time.Millisecond)
	m.ObserveHTTP("GET", "/api/v1/users/current-user", "401", time.Millisecond)

	require.Equal(t, 2, testutil.CollectAndCount(m.httpDuration))
}

func TestNilMetrics_NoPanic(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.Session(EventLogout, OutcomeSuccess)
		m.ObserveHTTP("GET", "/", "200", time.Second)
	})
}

func TestNew_DoubleRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
}
