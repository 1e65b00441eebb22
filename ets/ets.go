// Package ets fits a damped additive trend exponential smoothing model to a short
// non-seasonal series and produces multi-step point forecasts.
//
//	level(t) = alpha*y(t) + (1-alpha)*(level(t-1) + phi*trend(t-1))
//	trend(t) = beta*(level(t) - level(t-1)) + (1-beta)*phi*trend(t-1)
//
// Parameters minimize the sum of squared one-step-ahead residuals over the training values.
package ets

import (
	"errors"
	"fmt"
	"math"
)

// MinObservations is the structural minimum for a fit. The heuristic initial trend needs
// two values.
const MinObservations = 2

var (
	ErrInsufficientObservations = errors.New("insufficient observations to fit")
	ErrNonFiniteObservation     = errors.New("observation is not finite")
)

// ETS fits damped trend models with a fixed set of search options. It holds no fit state
// and is safe for concurrent use.
type ETS struct {
	opt *Options
}

// New creates a new smoothing model fitter with the given options. If none are provided, a
// default is used.
func New(opt *Options) (*ETS, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid smoothing options, %w", err)
	}
	return &ETS{opt: opt}, nil
}

// Options returns the search options used by the fitter
func (e *ETS) Options() Options {
	return *e.opt
}

// Fit estimates the model parameters for the input values. Values are floored at zero
// before fitting. Fit never fails on numerical grounds: a search that does not produce a
// finite in-range fit falls back to alpha=beta=phi=1, flagged with ReasonFallback.
func (e *ETS) Fit(y []float64) (*Model, error) {
	if len(y) < MinObservations {
		return nil, fmt.Errorf("got %d observations, need %d, %w", len(y), MinObservations, ErrInsufficientObservations)
	}

	obs := make([]float64, len(y))
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("at index %d, %w", i, ErrNonFiniteObservation)
		}
		obs[i] = math.Max(v, 0.0)
	}

	best, ok := e.search(obs)
	if !ok {
		return fallback(obs), nil
	}
	return newModel(obs, best.params, ReasonOptimized), nil
}

func newModel(y []float64, p Params, reason Reason) *Model {
	level, trend, sse := filter(y, p)
	if !finite(sse) {
		// keep the model serializable
		sse = math.MaxFloat64
	}
	return &Model{
		Params: p,
		Level:  level,
		Trend:  trend,
		SSE:    sse,
		N:      len(y),
		Reason: reason,
	}
}

// fallback extrapolates the last value plus the last difference
func fallback(y []float64) *Model {
	p := Params{
		Alpha:        1,
		Beta:         1,
		Phi:          1,
		InitialLevel: y[0],
		InitialTrend: y[1] - y[0],
	}
	return newModel(y, p, ReasonFallback)
}

// heuristicState seeds the initial level and trend from the first two values
func heuristicState(y []float64) (float64, float64) {
	return y[0], y[1] - y[0]
}

// filter runs the smoothing recursion and returns the final state along with the sum of
// squared one-step-ahead residuals
func filter(y []float64, p Params) (float64, float64, float64) {
	level, trend := p.InitialLevel, p.InitialTrend

	var sse float64
	for _, yt := range y {
		pred := level + p.Phi*trend
		resid := yt - pred
		sse += resid * resid

		prevLevel := level
		level = p.Alpha*yt + (1-p.Alpha)*pred
		trend = p.Beta*(level-prevLevel) + (1-p.Beta)*p.Phi*trend
	}
	return level, trend, sse
}

// Residuals returns the one-step-ahead residuals of the fitted parameters over y
func Residuals(y []float64, p Params) []float64 {
	level, trend := p.InitialLevel, p.InitialTrend

	res := make([]float64, len(y))
	for i, yt := range y {
		pred := level + p.Phi*trend
		res[i] = yt - pred

		prevLevel := level
		level = p.Alpha*yt + (1-p.Alpha)*pred
		trend = p.Beta*(level-prevLevel) + (1-p.Beta)*p.Phi*trend
	}
	return res
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
