package backtest

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/aouyang1/go-backcast/util"
)

// Epsilon floors the denominators of the relative error metrics
const Epsilon = 1e-9

var ErrResLenMismatch = errors.New("predicted and actual have different lengths")

// Scores tracks the accuracy of the calibrated backtest predictions
type Scores struct {
	MAE   float64 `json:"mae"`
	WAPE  float64 `json:"wape"`
	SMAPE float64 `json:"smape"`
}

// NewScores calculates the scores of the calibrated predictions of the input rows. Every row
// contributes to every score.
func NewScores(rows []Row) (*Scores, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyBacktest
	}
	predicted, actual := Predictions(rows), Actuals(rows)

	mae, err := MAE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}
	wape, err := WAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute weighted absolute percent error, %w", err)
	}
	smape, err := SMAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute symmetric mean absolute percent error, %w", err)
	}

	return &Scores{
		MAE:   mae,
		WAPE:  wape,
		SMAPE: smape,
	}, nil
}

// MAE computes the mean absolute error, mean(|y-yhat|). A score of 0 means a perfect match.
func MAE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	if len(actual) == 0 {
		return 0, nil
	}

	mae := 0.0
	for i := 0; i < len(actual); i++ {
		mae += math.Abs(actual[i] - predicted[i])
	}
	mae /= float64(len(actual))
	return mae, nil
}

// WAPE computes sum(|y-yhat|) / sum(|y|) with the denominator floored at Epsilon. The ratio
// is unchanged by a uniform rescaling of both inputs.
func WAPE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}

	var num, denom float64
	for i := 0; i < len(actual); i++ {
		num += math.Abs(actual[i] - predicted[i])
		denom += math.Abs(actual[i])
	}
	return num / math.Max(denom, Epsilon), nil
}

// SMAPE computes mean(2*|y-yhat| / (|y|+|yhat|)). A row where both values are zero has its
// denominator set to Epsilon and contributes zero.
func SMAPE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	if len(actual) == 0 {
		return 0, nil
	}

	smape := 0.0
	for i := 0; i < len(actual); i++ {
		denom := math.Abs(actual[i]) + math.Abs(predicted[i])
		if denom == 0 {
			denom = Epsilon
		}
		smape += 2 * math.Abs(actual[i]-predicted[i]) / denom
	}
	smape /= float64(len(actual))
	return smape, nil
}

func (s Scores) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(w, "%s%sScores:\n", prefix, util.IndentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s%sMAE: %.3f    WAPE: %.2f%%    sMAPE: %.2f%%\n",
		prefix, util.IndentExpand(indent, indentGrowth+1),
		s.MAE, s.WAPE*100, s.SMAPE*100,
	)
	return err
}
