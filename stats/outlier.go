// Package stats holds robust summaries used to flag suspicious observations before fitting
package stats

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MinOutlierPoints is the fewest values a fence can be computed from
const MinOutlierPoints = 4

var ErrInvalidPercentiles = errors.New("percentiles must satisfy 0 <= lower < upper <= 1")

// OutlierOptions configures the Tukey fences. Values outside
// [q(lower) - k*(q(upper)-q(lower)), q(upper) + k*(q(upper)-q(lower))] are outliers.
type OutlierOptions struct {
	LowerPercentile float64 `json:"lower_percentile"`
	UpperPercentile float64 `json:"upper_percentile"`
	TukeyFactor     float64 `json:"tukey_factor"`
}

func NewDefaultOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		LowerPercentile: 0.25,
		UpperPercentile: 0.75,
		TukeyFactor:     1.5,
	}
}

func (o *OutlierOptions) Validate() error {
	if o.LowerPercentile < 0 || o.UpperPercentile > 1 || o.LowerPercentile >= o.UpperPercentile {
		return fmt.Errorf("got [%g, %g], %w", o.LowerPercentile, o.UpperPercentile, ErrInvalidPercentiles)
	}
	if o.TukeyFactor < 0 {
		return fmt.Errorf("tukey factor %g must not be negative", o.TukeyFactor)
	}
	return nil
}

// Fences returns the lower and upper Tukey fences of y
func Fences(y []float64, opt *OutlierOptions) (float64, float64) {
	if opt == nil {
		opt = NewDefaultOutlierOptions()
	}
	sorted := make([]float64, len(y))
	copy(sorted, y)
	sort.Float64s(sorted)

	lower := stat.Quantile(opt.LowerPercentile, stat.LinInterp, sorted, nil)
	upper := stat.Quantile(opt.UpperPercentile, stat.LinInterp, sorted, nil)
	innerRange := upper - lower
	return lower - innerRange*opt.TukeyFactor, upper + innerRange*opt.TukeyFactor
}

// DetectOutliers returns the indices of the values strictly outside the Tukey fences of y.
// Fewer than MinOutlierPoints values yield no outliers.
func DetectOutliers(y []float64, opt *OutlierOptions) []int {
	if len(y) < MinOutlierPoints {
		return nil
	}
	lower, upper := Fences(y, opt)

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if y[i] > upper || y[i] < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}
