// Package backcast runs rolling-origin backtests and forecasts of annual series with a
// damped trend smoothing model. The Engine ties the leaf packages together with logging,
// caching of fits and reports, instrumentation and a bounded run time.
package backcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/aouyang1/go-backcast/backtest"
	"github.com/aouyang1/go-backcast/cache"
	"github.com/aouyang1/go-backcast/ets"
	"github.com/aouyang1/go-backcast/forecast"
	"github.com/aouyang1/go-backcast/instrument"
	"github.com/aouyang1/go-backcast/provider"
	"github.com/aouyang1/go-backcast/series"
	"github.com/aouyang1/go-backcast/stats"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrGappedSeries = errors.New("series has missing years")
	ErrTimeout      = errors.New("backtest did not finish in time")
	ErrNilSeries    = errors.New("no series provided")
)

// Remediation returns a short hint for the user about how to resolve err, or an empty string
// when there is none
func Remediation(err error) string {
	switch {
	case errors.Is(err, backtest.ErrInsufficientData):
		return fmt.Sprintf(
			"provide at least %d observed years, before the first test year when backtesting",
			backtest.MinTrain,
		)
	case errors.Is(err, backtest.ErrEmptyBacktest):
		return "widen the test range so it covers observed years"
	case errors.Is(err, backtest.ErrInvalidRange):
		return "choose a start year that is not after the end year"
	case errors.Is(err, ErrGappedSeries):
		return "fill the missing years or disable engine.reject_gaps"
	case errors.Is(err, ErrTimeout):
		return "shorten the test range or raise engine.timeout"
	case errors.Is(err, provider.ErrUnknownMetric):
		return "choose one of the listed metrics"
	}
	return ""
}

// Range is an inclusive backtest year range. A zero Range selects the default range of the
// series being tested.
type Range struct {
	Start int `json:"start_year"`
	End   int `json:"end_year"`
}

func (r Range) resolve(s *series.Series) (int, int, error) {
	if r.Start == 0 && r.End == 0 {
		return backtest.DefaultRange(s)
	}
	start, end := r.Start, r.End
	if start == 0 {
		start = s.FirstYear()
	}
	if end == 0 {
		end = s.LastYear()
	}
	return start, end, nil
}

// EngineOption customizes an Engine
type EngineOption func(*Engine)

// WithLogger sets the logger. A nil logger discards everything.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCache stores fitted models and backtest reports in c
func WithCache(c cache.Store) EngineOption {
	return func(e *Engine) {
		e.cache = c
	}
}

func WithMetrics(m *instrument.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithFitter replaces the smoothing model fitter built from the ETS options
func WithFitter(f backtest.Fitter) EngineOption {
	return func(e *Engine) {
		e.fitter = f
	}
}

// Engine is safe for concurrent use once constructed
type Engine struct {
	opt     *Options
	logger  *slog.Logger
	cache   cache.Store
	metrics *instrument.Metrics
	fitter  backtest.Fitter

	// optKey identifies the options in cache keys
	optKey string
}

// New creates an engine. If no options are provided, a default is used.
func New(opt *Options, opts ...EngineOption) (*Engine, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	e := &Engine{opt: opt}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.fitter == nil {
		fitter, err := ets.New(opt.ETS)
		if err != nil {
			return nil, err
		}
		e.fitter = fitter
	}
	e.fitter = &observedFitter{Fitter: e.fitter, metrics: e.metrics}

	b, err := json.Marshal(opt)
	if err != nil {
		return nil, fmt.Errorf("unable to encode options, %w", err)
	}
	e.optKey = cache.Key(string(b))
	return e, nil
}

// Options returns a copy of the validated engine options
func (e *Engine) Options() Options {
	return *e.opt
}

type observedFitter struct {
	backtest.Fitter
	metrics *instrument.Metrics
}

func (f *observedFitter) Fit(y []float64) (*ets.Model, error) {
	m, err := f.Fitter.Fit(y)
	if err == nil {
		f.metrics.ObserveFit(string(m.Reason))
	}
	return m, err
}

// checkSeries logs the data quality warnings of s, rejects gapped series when configured and
// returns the years flagged as outliers
func (e *Engine) checkSeries(s *series.Series) ([]int, error) {
	if s == nil {
		return nil, ErrNilSeries
	}
	if gaps := s.Gaps(); len(gaps) > 0 {
		if e.opt.RejectGaps {
			return nil, fmt.Errorf("%d missing years starting at %d, %w", len(gaps), gaps[0], ErrGappedSeries)
		}
		e.logger.Warn("series has missing years, positions are used as time steps",
			"series", s.Name, "missing", len(gaps), "first_missing", gaps[0])
	}
	if s.Len() < e.opt.RecommendedPoints {
		e.logger.Warn("series is shorter than recommended",
			"series", s.Name, "points", s.Len(), "recommended", e.opt.RecommendedPoints)
	}

	if e.opt.Outliers == nil {
		return nil, nil
	}
	var outliers []int
	for _, idx := range stats.DetectOutliers(s.Values, e.opt.Outliers) {
		outliers = append(outliers, s.Years[idx])
	}
	if len(outliers) > 0 {
		e.logger.Warn("series has outlying years", "series", s.Name, "years", outliers)
	}
	return outliers, nil
}

// Backtest runs the rolling backtest of s over rng, then calibrates and scores the rows.
// The rolling loop is abandoned once Options.Timeout elapses and ErrTimeout is returned.
func (e *Engine) Backtest(ctx context.Context, s *series.Series, rng Range) (*Report, error) {
	outliers, err := e.checkSeries(s)
	if err != nil {
		return nil, err
	}
	start, end, err := rng.resolve(s)
	if err != nil {
		e.metrics.ObserveBacktest(outcome(err), 0)
		return nil, err
	}

	key := e.reportKey(s, start, end)
	var cached Report
	if e.load(ctx, key, &cached) {
		cached.RunID = uuid.New()
		cached.Name = s.Name
		cached.Cached = true
		e.logger.Debug("backtest served from cache", "series", s.Name, "run_id", cached.RunID)
		return &cached, nil
	}

	t0 := time.Now()
	rows, err := e.runBounded(ctx, s, start, end)
	if err != nil {
		e.metrics.ObserveBacktest(outcome(err), time.Since(t0))
		if errors.Is(err, ErrTimeout) {
			e.logger.Warn("backtest timed out", "series", s.Name, "timeout", e.opt.Timeout)
		}
		return nil, err
	}

	rows, cal, err := backtest.Calibrate(rows, e.opt.Backtest)
	if err != nil {
		e.metrics.ObserveBacktest(outcome(err), time.Since(t0))
		return nil, fmt.Errorf("unable to calibrate backtest, %w", err)
	}
	scores, err := backtest.NewScores(rows)
	if err != nil {
		e.metrics.ObserveBacktest(outcome(err), time.Since(t0))
		return nil, fmt.Errorf("unable to score backtest, %w", err)
	}
	e.metrics.ObserveBacktest(instrument.OutcomeOK, time.Since(t0))

	r := &Report{
		RunID:       uuid.New(),
		Name:        s.Name,
		Start:       start,
		End:         end,
		Rows:        rows,
		Calibration: cal,
		Scores:      scores,
		Outliers:    outliers,
	}
	for _, row := range rows {
		if row.Fit == ets.ReasonFallback {
			r.FitFallbacks++
		}
	}
	if r.FitFallbacks > 0 {
		e.logger.Warn("smoothing fit fell back to heuristic parameters",
			"series", s.Name, "years", r.FitFallbacks)
	}
	e.logger.Info("backtest complete",
		"series", s.Name, "run_id", r.RunID, "rows", len(rows),
		"wape", scores.WAPE, "elapsed", time.Since(t0))

	e.store(ctx, key, r)
	return r, nil
}

// runBounded runs the rolling loop on its own goroutine so a stalled fit cannot hold the
// caller past the timeout. The abandoned goroutine stops at its next context check.
func (e *Engine) runBounded(ctx context.Context, s *series.Series, start, end int) ([]backtest.Row, error) {
	if e.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opt.Timeout)
		defer cancel()
	}

	type result struct {
		rows []backtest.Row
		err  error
	}
	done := make(chan result, 1)
	go func() {
		rows, err := backtest.RunContext(ctx, s, start, end, e.fitter, e.opt.Backtest)
		done <- result{rows: rows, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, contextErr(ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, contextErr(res.err)
		}
		return res.rows, nil
	}
}

func contextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w, %w", ErrTimeout, err)
	}
	return err
}

func outcome(err error) string {
	switch {
	case errors.Is(err, backtest.ErrInsufficientData):
		return instrument.OutcomeInsufficient
	case errors.Is(err, backtest.ErrEmptyBacktest):
		return instrument.OutcomeEmpty
	case errors.Is(err, ErrTimeout):
		return instrument.OutcomeTimeout
	}
	return instrument.OutcomeError
}

// Forecast fits the full series, or reuses a cached fit of identical observations, and
// forecasts horizon years past its last year
func (e *Engine) Forecast(ctx context.Context, s *series.Series, horizon int) (*ForecastResult, error) {
	if _, err := e.checkSeries(s); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := e.modelKey(s)
	m := &forecast.Model{}
	cached := e.load(ctx, key, m)
	if !cached {
		var err error
		m, err = forecast.Fit(s, e.fitter)
		if err != nil {
			return nil, err
		}
		if m.ETS.Degraded() {
			e.logger.Warn("smoothing fit fell back to heuristic parameters", "series", s.Name)
		}
		e.store(ctx, key, m)
	}
	m.Name = s.Name

	rows, err := m.Forecast(horizon)
	if err != nil {
		return nil, err
	}
	res := &ForecastResult{
		RunID:  uuid.New(),
		Name:   s.Name,
		Model:  m,
		Rows:   rows,
		Cached: cached,
	}
	e.logger.Info("forecast complete",
		"series", s.Name, "run_id", res.RunID, "horizon", horizon, "cached", cached)
	return res, nil
}

// Sweep backtests and forecasts every named series of p, running up to Options.Concurrency
// series at once. An empty names list sweeps every series p offers. Failures are recorded
// per series and do not stop the others. Results keep the order of names.
func (e *Engine) Sweep(ctx context.Context, p provider.Provider, names []string, rng Range, horizon int) ([]SweepResult, error) {
	if len(names) == 0 {
		var err error
		names, err = p.Names(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to list series, %w", err)
		}
	}

	res := make([]SweepResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opt.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			res[i] = e.sweepOne(gctx, p, name, rng, horizon)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) sweepOne(ctx context.Context, p provider.Provider, name string, rng Range, horizon int) SweepResult {
	res := SweepResult{Name: name}
	s, err := p.Series(ctx, name)
	if err != nil {
		res.setErr(fmt.Errorf("unable to load series, %w", err))
		return res
	}
	if res.Report, err = e.Backtest(ctx, s, rng); err != nil {
		e.logger.Warn("sweep backtest failed", "series", name, "error", err)
		res.setErr(err)
		return res
	}
	if res.Forecast, err = e.Forecast(ctx, s, horizon); err != nil {
		e.logger.Warn("sweep forecast failed", "series", name, "error", err)
		res.setErr(err)
	}
	return res
}

func (e *Engine) reportKey(s *series.Series, start, end int) string {
	return cache.Key("report", e.optKey, strconv.FormatUint(s.Fingerprint(), 16),
		strconv.Itoa(start), strconv.Itoa(end))
}

func (e *Engine) modelKey(s *series.Series) string {
	return cache.Key("model", e.optKey, strconv.FormatUint(s.Fingerprint(), 16))
}

// load decodes the cached value under key into v. Cache failures are logged and treated as
// a miss.
func (e *Engine) load(ctx context.Context, key string, v any) bool {
	if e.cache == nil {
		return false
	}
	b, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.metrics.ObserveCache(instrument.CacheError)
		e.logger.Warn("cache lookup failed", "key", key, "error", err)
		return false
	}
	if !ok {
		e.metrics.ObserveCache(instrument.CacheMiss)
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		e.metrics.ObserveCache(instrument.CacheError)
		e.logger.Warn("dropping undecodable cache entry", "key", key, "error", err)
		if err := e.cache.Delete(ctx, key); err != nil {
			e.logger.Warn("cache delete failed", "key", key, "error", err)
		}
		return false
	}
	e.metrics.ObserveCache(instrument.CacheHit)
	return true
}

func (e *Engine) store(ctx context.Context, key string, v any) {
	if e.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		e.logger.Warn("unable to encode cache entry", "key", key, "error", err)
		return
	}
	if err := e.cache.Set(ctx, key, b); err != nil {
		e.logger.Warn("cache store failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached fit and report
func (e *Engine) Invalidate(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Purge(ctx)
}
