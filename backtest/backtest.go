// Package backtest evaluates a smoothing model with an expanding window. Every test year is
// forecast one step ahead by a model refit on all strictly earlier years, the predictions are
// calibrated against the observed totals and scored.
package backtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/aouyang1/go-backcast/ets"
	"github.com/aouyang1/go-backcast/series"
)

// MinTrain is the fewest training years a test year needs before a row is emitted
const MinTrain = 4

var (
	ErrInsufficientData = errors.New("insufficient history before the test range")
	ErrEmptyBacktest    = errors.New("test range produced no eligible years")
	ErrInvalidRange     = errors.New("start year is after end year")
	ErrNoFitter         = errors.New("no model fitter provided")
	ErrInvalidMinTrain  = errors.New("minimum training size is below the fit floor")
)

// Fitter fits a model to a training series. *ets.ETS satisfies it.
type Fitter interface {
	Fit(y []float64) (*ets.Model, error)
}

type Options struct {
	MinTrain          int  `json:"min_train"`
	BiasCorrection    bool `json:"bias_correction"`
	LinearCalibration bool `json:"linear_calibration"`
}

func NewDefaultOptions() *Options {
	return &Options{
		MinTrain:       MinTrain,
		BiasCorrection: true,
	}
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if o.MinTrain < ets.MinObservations {
		return nil, fmt.Errorf("got %d, need at least %d, %w", o.MinTrain, ets.MinObservations, ErrInvalidMinTrain)
	}
	return o, nil
}

// DefaultRange returns the test range used when none is requested: the year at the middle
// position through the last year
func DefaultRange(s *series.Series) (int, int, error) {
	if s.Len() < 2 {
		return 0, 0, fmt.Errorf("got %d observations, %w", s.Len(), ErrInsufficientData)
	}
	return s.Years[s.Len()/2], s.LastYear(), nil
}

// Run produces one row per year t in [start, end] that has an observation and at least
// MinTrain earlier observations. Rows are ordered by year.
func Run(s *series.Series, start, end int, fitter Fitter, opt *Options) ([]Row, error) {
	return RunContext(context.Background(), s, start, end, fitter, opt)
}

// RunContext is Run with the context checked between fits. A cancelled context stops the
// loop and returns the context error with no rows.
func RunContext(ctx context.Context, s *series.Series, start, end int, fitter Fitter, opt *Options) ([]Row, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if fitter == nil {
		return nil, ErrNoFitter
	}
	if start > end {
		return nil, fmt.Errorf("range [%d, %d], %w", start, end, ErrInvalidRange)
	}
	if s.Empty() {
		return nil, fmt.Errorf("empty series, %w", ErrInsufficientData)
	}
	first := s.CountBefore(start)
	if first == 0 {
		return nil, fmt.Errorf("no observation before %d, %w", start, ErrInsufficientData)
	}
	last := s.CountBefore(end + 1)
	if last <= first {
		return nil, fmt.Errorf("no observation within [%d, %d], %w", start, end, ErrEmptyBacktest)
	}

	// every index in [first, last) is an observed test year and its index is the number of
	// earlier training years
	rows := make([]Row, 0, last-first)
	for i := first; i < last; i++ {
		if i < opt.MinTrain {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		model, err := fitter.Fit(s.Values[:i])
		if err != nil {
			return nil, fmt.Errorf("unable to fit training years before %d, %w", s.Years[i], err)
		}
		fc, err := model.Forecast(1)
		if err != nil {
			return nil, fmt.Errorf("unable to forecast %d, %w", s.Years[i], err)
		}

		raw := max(fc[0], 0.0)
		rows = append(rows, Row{
			Year:       s.Years[i],
			Actual:     s.Values[i],
			Raw:        raw,
			Calibrated: raw,
			Fit:        model.Reason,
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf(
			"latest test year %d has %d training years, need %d, %w",
			s.Years[last-1], last-1, opt.MinTrain, ErrInsufficientData,
		)
	}
	return rows, nil
}
