package backtest

import (
	"math"

	"github.com/aouyang1/go-backcast/ets"
)

// Row is one evaluated test year. Raw is the one-step forecast of the model fit on every
// earlier year and Calibrated is the prediction after calibration.
type Row struct {
	Year       int        `json:"ano"`
	Actual     float64    `json:"real"`
	Raw        float64    `json:"previsto_bruto"`
	Calibrated float64    `json:"previsto"`
	AbsError   float64    `json:"erro_abs"`
	PctError   float64    `json:"erro_pct"`
	Fit        ets.Reason `json:"fit"`
}

// Actuals returns the observed values of each row
func Actuals(rows []Row) []float64 {
	res := make([]float64, len(rows))
	for i, r := range rows {
		res[i] = r.Actual
	}
	return res
}

// RawPredictions returns the uncalibrated prediction of each row
func RawPredictions(rows []Row) []float64 {
	res := make([]float64, len(rows))
	for i, r := range rows {
		res[i] = r.Raw
	}
	return res
}

// Predictions returns the calibrated prediction of each row
func Predictions(rows []Row) []float64 {
	res := make([]float64, len(rows))
	for i, r := range rows {
		res[i] = r.Calibrated
	}
	return res
}

func (r *Row) setErrors() {
	diff := r.Actual - r.Calibrated
	r.AbsError = math.Abs(diff)

	denom := r.Actual
	if denom == 0 {
		denom = Epsilon
	}
	r.PctError = diff / denom * 100
}
