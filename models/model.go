// Package models holds the linear regressions used to recalibrate backtest predictions
package models

import (
	"gonum.org/v1/gonum/mat"
)

type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}

// Column builds a single feature design matrix with one row per value
func Column(x []float64) *mat.Dense {
	data := make([]float64, len(x))
	copy(data, x)
	return mat.NewDense(len(x), 1, data)
}
