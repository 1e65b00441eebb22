// Package instrument exposes Prometheus counters for fits, backtest runs and cache lookups
package instrument

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backtest run outcomes
const (
	OutcomeOK           = "ok"
	OutcomeInsufficient = "insufficient_data"
	OutcomeEmpty        = "empty_backtest"
	OutcomeTimeout      = "timeout"
	OutcomeError        = "error"
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics holds the engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	Fits             *prometheus.CounterVec
	BacktestRuns     *prometheus.CounterVec
	BacktestDuration prometheus.Histogram
	CacheRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg registers nothing, which
// suits tests that build several engines.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Fits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backcast_fits_total",
				Help: "Number of smoothing model fits by how the parameters were obtained",
			},
			[]string{"reason"},
		),
		BacktestRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backcast_backtest_runs_total",
				Help: "Number of backtest runs by outcome",
			},
			[]string{"outcome"},
		),
		BacktestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "backcast_backtest_duration_seconds",
			Help:    "Wall time of the rolling backtest loop",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		CacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backcast_cache_requests_total",
				Help: "Number of cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) ObserveFit(reason string) {
	if m == nil {
		return
	}
	m.Fits.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveBacktest(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BacktestRuns.WithLabelValues(outcome).Inc()
	m.BacktestDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}
