package backtest

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isNaNOrInf(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func TestNewScores(t *testing.T) {
	testData := map[string]struct {
		actual    []float64
		predicted []float64
		expected  Scores
	}{
		"perfect": {
			actual:    []float64{100, 200, 300},
			predicted: []float64{100, 200, 300},
			expected:  Scores{},
		},
		"perfect zeros": {
			actual:    []float64{0, 0},
			predicted: []float64{0, 0},
			expected:  Scores{},
		},
		"constant offset": {
			actual:    []float64{100, 200},
			predicted: []float64{110, 190},
			expected: Scores{
				MAE:   10,
				WAPE:  20.0 / 300.0,
				SMAPE: (20.0/210.0 + 20.0/390.0) / 2,
			},
		},
		"one zero row": {
			actual:    []float64{0, 100},
			predicted: []float64{0, 50},
			expected: Scores{
				MAE:   25,
				WAPE:  0.5,
				SMAPE: (0 + 100.0/150.0) / 2,
			},
		},
		"actuals all zero": {
			actual:    []float64{0, 0},
			predicted: []float64{1, 1},
			expected: Scores{
				MAE:   1,
				WAPE:  2 / Epsilon,
				SMAPE: 2,
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rows := make([]Row, len(td.actual))
			for i := range td.actual {
				rows[i] = Row{Year: 2000 + i, Actual: td.actual[i], Calibrated: td.predicted[i]}
			}
			scores, err := NewScores(rows)
			require.Nil(t, err)

			assert.InDelta(t, td.expected.MAE, scores.MAE, 1e-9)
			assert.InDelta(t, td.expected.WAPE, scores.WAPE, 1e-9*math.Max(1, td.expected.WAPE))
			assert.InDelta(t, td.expected.SMAPE, scores.SMAPE, 1e-9)
			assert.False(t, isNaNOrInf(scores.WAPE))
		})
	}
}

func TestNewScoresEmpty(t *testing.T) {
	_, err := NewScores(nil)
	assert.ErrorIs(t, err, ErrEmptyBacktest)
}

func TestWAPEScaleFree(t *testing.T) {
	actual := []float64{120, 95, 143, 160}
	predicted := []float64{110, 100, 150, 149}

	base, err := WAPE(predicted, actual)
	require.Nil(t, err)

	for _, k := range []float64{1e-3, 2, 1e6} {
		sa := make([]float64, len(actual))
		sp := make([]float64, len(predicted))
		for i := range actual {
			sa[i] = actual[i] * k
			sp[i] = predicted[i] * k
		}
		scaled, err := WAPE(sp, sa)
		require.Nil(t, err)
		assert.InDelta(t, base, scaled, 1e-12)
	}
}

func TestScoreLenMismatch(t *testing.T) {
	_, err := MAE([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrResLenMismatch)

	_, err = WAPE([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrResLenMismatch)

	_, err = SMAPE([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrResLenMismatch)
}

func TestScoresTablePrint(t *testing.T) {
	var buf bytes.Buffer
	s := Scores{MAE: 12.5, WAPE: 0.0425, SMAPE: 0.05}
	require.Nil(t, s.TablePrint(&buf, "", "  ", 0))
	expected := `Scores:
  MAE: 12.500    WAPE: 4.25%    sMAPE: 5.00%
`
	assert.Equal(t, expected, buf.String())
}
