package backcast

import (
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-backcast/backtest"
	"github.com/aouyang1/go-backcast/ets"
	"github.com/aouyang1/go-backcast/stats"
)

const (
	// DefaultRecommendedPoints is the series length below which a warning is logged
	DefaultRecommendedPoints = 8

	DefaultConcurrency = 4
	DefaultTimeout     = 30 * time.Second
)

var ErrInvalidConcurrency = errors.New("concurrency must be at least 1")

// Options configures the engine. A zero Timeout leaves the backtest bounded by the caller
// context only.
type Options struct {
	Backtest *backtest.Options `json:"backtest"`
	ETS      *ets.Options      `json:"ets"`

	// Outliers configures the fences used to flag suspicious years. Nil disables the check.
	Outliers *stats.OutlierOptions `json:"outliers"`

	Timeout           time.Duration `json:"timeout"`
	RejectGaps        bool          `json:"reject_gaps"`
	RecommendedPoints int           `json:"recommended_points"`
	Concurrency       int           `json:"concurrency"`
}

func NewDefaultOptions() *Options {
	return &Options{
		Backtest:          backtest.NewDefaultOptions(),
		ETS:               ets.NewDefaultOptions(),
		Outliers:          stats.NewDefaultOutlierOptions(),
		Timeout:           DefaultTimeout,
		RecommendedPoints: DefaultRecommendedPoints,
		Concurrency:       DefaultConcurrency,
	}
}

// Validate fills nil sections with their defaults and checks the remaining values. The
// receiver is not modified.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	res := *o

	bt, err := res.Backtest.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid backtest options, %w", err)
	}
	res.Backtest = bt

	if res.ETS == nil {
		res.ETS = ets.NewDefaultOptions()
	}
	if err := res.ETS.Validate(); err != nil {
		return nil, fmt.Errorf("invalid smoothing options, %w", err)
	}

	if res.Outliers != nil {
		if err := res.Outliers.Validate(); err != nil {
			return nil, fmt.Errorf("invalid outlier options, %w", err)
		}
	}

	if res.Concurrency < 1 {
		return nil, fmt.Errorf("got %d, %w", res.Concurrency, ErrInvalidConcurrency)
	}
	if res.Timeout < 0 {
		res.Timeout = 0
	}
	return &res, nil
}
