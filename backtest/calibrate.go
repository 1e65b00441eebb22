package backtest

import (
	"fmt"
	"io"
	"math"

	"github.com/aouyang1/go-backcast/models"
	"github.com/aouyang1/go-backcast/util"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Calibration holds the corrections applied to every raw prediction of a backtest run
type Calibration struct {
	BiasFactor float64 `json:"bias_factor"`
	Linear     bool    `json:"linear"`
	Intercept  float64 `json:"linear_intercept"`
	Slope      float64 `json:"linear_slope"`
}

// Calibrate scales every raw prediction by sum(actual)/sum(raw) and, when enabled, replaces
// the scaled prediction with the least squares fit actual ~ a + b*scaled. A near zero raw
// total leaves the factor at 1. With bias correction disabled the factor is reported as 1.
// The input rows are not modified.
func Calibrate(rows []Row, opt *Options) ([]Row, *Calibration, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptyBacktest
	}

	cal := &Calibration{BiasFactor: 1.0}
	if opt.BiasCorrection {
		cal.BiasFactor = BiasFactor(Actuals(rows), RawPredictions(rows))
	}

	out := make([]Row, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].Calibrated = out[i].Raw * cal.BiasFactor
	}

	if opt.LinearCalibration {
		intercept, slope, err := linearFit(Predictions(out), Actuals(out))
		if err != nil {
			return nil, nil, fmt.Errorf("unable to fit linear calibration, %w", err)
		}
		cal.Linear = true
		cal.Intercept = intercept
		cal.Slope = slope
		for i := range out {
			out[i].Calibrated = intercept + slope*out[i].Calibrated
		}
	}

	for i := range out {
		out[i].setErrors()
	}
	return out, cal, nil
}

// BiasFactor is sum(actual)/sum(predicted), or 1 when the predicted total is near zero
func BiasFactor(actual, predicted []float64) float64 {
	denom := floats.Sum(predicted)
	if math.Abs(denom) < Epsilon {
		return 1.0
	}
	return floats.Sum(actual) / denom
}

// linearFit regresses y on x with an intercept. A single row or a constant x carries no
// slope information so the fit is the mean of y.
func linearFit(x, y []float64) (float64, float64, error) {
	if len(x) < 2 {
		return stat.Mean(y, nil), 0, nil
	}

	model, err := models.NewOLSRegression(models.NewDefaultOLSOptions())
	if err != nil {
		return 0, 0, err
	}
	if err := model.Fit(models.Column(x), models.Column(y)); err != nil {
		return 0, 0, err
	}
	return model.Intercept(), model.Coef()[0], nil
}

func (c Calibration) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(w, "%s%sCalibration:\n", prefix, util.IndentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sBias Factor: %.3f\n",
		prefix, util.IndentExpand(indent, indentGrowth+1), c.BiasFactor,
	); err != nil {
		return err
	}
	if !c.Linear {
		return nil
	}
	_, err := fmt.Fprintf(w, "%s%sLinear: previsto = %.2f + %.3f x previsto_corrigido\n",
		prefix, util.IndentExpand(indent, indentGrowth+1), c.Intercept, c.Slope,
	)
	return err
}
