package instrument

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFit("optimized")
	m.ObserveFit("optimized")
	m.ObserveFit("fallback")
	m.ObserveBacktest(OutcomeOK, 20*time.Millisecond)
	m.ObserveBacktest(OutcomeTimeout, time.Second)
	m.ObserveCache(CacheHit)
	m.ObserveCache(CacheMiss)
	m.ObserveCache(CacheMiss)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Fits.WithLabelValues("optimized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fits.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BacktestRuns.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BacktestRuns.WithLabelValues(OutcomeTimeout)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues(CacheMiss)))

	expected := `
# HELP backcast_cache_requests_total Number of cache lookups by result
# TYPE backcast_cache_requests_total counter
backcast_cache_requests_total{result="hit"} 1
backcast_cache_requests_total{result="miss"} 2
`
	require.Nil(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "backcast_cache_requests_total"))

	count, err := testutil.GatherAndCount(reg, "backcast_backtest_duration_seconds")
	require.Nil(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFit("optimized")
		m.ObserveBacktest(OutcomeError, time.Second)
		m.ObserveCache(CacheError)
	})
}

func TestUnregistered(t *testing.T) {
	// collectors without a registry still count
	m := New(nil)
	m.ObserveCache(CacheHit)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues(CacheHit)))
}
