package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterCollectors(reg) })
	// registering twice on the same registry is a programming error
	require.Panics(t, func() { RegisterCollectors(reg) })
}

func TestObserveBackend(t *testing.T) {
	before := testutil.ToFloat64(BackendRequests.WithLabelValues("redis", "incr", OutcomeError))
	ObserveBackend("redis", "incr", OutcomeError)
	ObserveBackend("redis", "incr", OutcomeError)
	require.Equal(t, before+2, testutil.ToFloat64(BackendRequests.WithLabelValues("redis", "incr", OutcomeError)))
}
