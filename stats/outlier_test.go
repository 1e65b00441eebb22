package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectOutliers(t *testing.T) {
	testData := map[string]struct {
		y        []float64
		opt      *OutlierOptions
		expected []int
	}{
		"none": {
			y: []float64{100, 110, 105, 120, 130, 125, 140},
		},
		"spike": {
			y:        []float64{100, 110, 105, 900, 130, 125, 140},
			expected: []int{3},
		},
		"drop and spike": {
			y:        []float64{100, 102, 0, 101, 99, 103, 500, 100},
			expected: []int{2, 6},
		},
		"constant": {
			y: []float64{5, 5, 5, 5, 5},
		},
		"too short": {
			y: []float64{1, 1000, 1},
		},
		"zero factor": {
			y:        []float64{1, 2, 3, 4, 5},
			opt:      &OutlierOptions{LowerPercentile: 0.25, UpperPercentile: 0.75, TukeyFactor: 0},
			expected: []int{0, 3, 4},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, DetectOutliers(td.y, td.opt))
		})
	}
}

func TestFences(t *testing.T) {
	lower, upper := Fences([]float64{4, 1, 3, 2}, &OutlierOptions{LowerPercentile: 0, UpperPercentile: 1, TukeyFactor: 1})
	assert.InDelta(t, -2.0, lower, 1e-12)
	assert.InDelta(t, 7.0, upper, 1e-12)
}

func TestOutlierOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt OutlierOptions
		ok  bool
	}{
		"default":        {*NewDefaultOutlierOptions(), true},
		"inverted":       {OutlierOptions{LowerPercentile: 0.8, UpperPercentile: 0.2}, false},
		"above one":      {OutlierOptions{LowerPercentile: 0.1, UpperPercentile: 1.5}, false},
		"negative tukey": {OutlierOptions{LowerPercentile: 0.1, UpperPercentile: 0.9, TukeyFactor: -1}, false},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := td.opt.Validate()
			if td.ok {
				assert.Nil(t, err)
				return
			}
			assert.NotNil(t, err)
		})
	}
}
