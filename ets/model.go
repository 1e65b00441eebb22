package ets

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/aouyang1/go-backcast/util"
)

var (
	ErrUntrainedModel = errors.New("model has not been fit yet")
	ErrInvalidHorizon = errors.New("horizon must be at least 1")
)

// Reason records how the parameters of a fit were obtained
type Reason string

const (
	// ReasonOptimized means the multi-start search converged to a finite in-range fit
	ReasonOptimized Reason = "optimized"

	// ReasonFallback means the search failed and the last-value plus last-difference
	// heuristic was used instead
	ReasonFallback Reason = "fallback"
)

// Params are the smoothing coefficients and the initial state seeding the recursion
type Params struct {
	Alpha        float64 `json:"alpha"`
	Beta         float64 `json:"beta"`
	Phi          float64 `json:"phi"`
	InitialLevel float64 `json:"initial_level"`
	InitialTrend float64 `json:"initial_trend"`
}

// Model is a fitted damped additive trend model. It is serializeable so a caller can cache
// it and forecast again without refitting.
type Model struct {
	Params Params  `json:"params"`
	Level  float64 `json:"level"`
	Trend  float64 `json:"trend"`
	SSE    float64 `json:"sse"`
	N      int     `json:"n"`
	Reason Reason  `json:"reason"`
}

// Degraded reports whether the fit fell back to the heuristic parameters
func (m *Model) Degraded() bool {
	return m != nil && m.Reason == ReasonFallback
}

// Forecast returns h point forecasts from the final state using
// y(T+h) = level + (phi + phi^2 + ... + phi^h) * trend, each floored at zero.
func (m *Model) Forecast(h int) ([]float64, error) {
	if m == nil || m.N == 0 {
		return nil, ErrUntrainedModel
	}
	if h < 1 {
		return nil, fmt.Errorf("got horizon %d, %w", h, ErrInvalidHorizon)
	}

	res := make([]float64, h)
	for i := 1; i <= h; i++ {
		res[i-1] = math.Max(m.Level+DampedSum(m.Params.Phi, i)*m.Trend, 0.0)
	}
	return res, nil
}

// DampedSum computes phi + phi^2 + ... + phi^h
func DampedSum(phi float64, h int) float64 {
	if h < 1 {
		return 0
	}
	if phi == 1 {
		return float64(h)
	}
	return phi * (1 - math.Pow(phi, float64(h))) / (1 - phi)
}

func (m Model) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(w, "%s%sModel:\n", prefix, util.IndentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sFit: %s    Observations: %d    SSE: %.3f\n",
		prefix, util.IndentExpand(indent, indentGrowth+1),
		m.Reason, m.N, m.SSE,
	); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sAlpha: %.3f    Beta: %.3f    Phi: %.3f\n",
		prefix, util.IndentExpand(indent, indentGrowth+1),
		m.Params.Alpha, m.Params.Beta, m.Params.Phi,
	); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s%sLevel: %.3f    Trend: %.3f\n",
		prefix, util.IndentExpand(indent, indentGrowth+1),
		m.Level, m.Trend,
	)
	return err
}
