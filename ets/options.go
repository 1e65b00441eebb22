package ets

import (
	"errors"
	"fmt"
	"io"

	"github.com/aouyang1/go-backcast/util"
)

const (
	DefaultGridAlpha      = 10
	DefaultGridBeta       = 10
	DefaultGridPhi        = 5
	DefaultNumStarts      = 3
	DefaultMaxEvaluations = 2000
	DefaultSimplexSize    = 0.5
)

var (
	ErrInvalidBounds = errors.New("lower bound must not exceed upper bound")
	ErrInvalidGrid   = errors.New("grid size must be at least 1")
	ErrInvalidStarts = errors.New("number of starts must be at least 1")
)

// Bounds is an inclusive admissible range for a smoothing coefficient
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

func (b Bounds) contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// Options configures the multi-start search for the smoothing coefficients. Every grid
// point is evaluated with the heuristic initial state and the NumStarts best points seed a
// Nelder-Mead refinement over all five parameters.
type Options struct {
	Alpha Bounds `json:"alpha"`
	Beta  Bounds `json:"beta"`
	Phi   Bounds `json:"phi"`

	GridAlpha int `json:"grid_alpha"`
	GridBeta  int `json:"grid_beta"`
	GridPhi   int `json:"grid_phi"`

	NumStarts      int     `json:"num_starts"`
	MaxEvaluations int     `json:"max_evaluations"`
	SimplexSize    float64 `json:"simplex_size"`
}

// NewDefaultOptions returns the default search options. The damping range follows the
// usual [0.8, 0.98] convention for damped trend models.
func NewDefaultOptions() *Options {
	return &Options{
		Alpha:          Bounds{Lower: 0, Upper: 1},
		Beta:           Bounds{Lower: 0, Upper: 1},
		Phi:            Bounds{Lower: 0.8, Upper: 0.98},
		GridAlpha:      DefaultGridAlpha,
		GridBeta:       DefaultGridBeta,
		GridPhi:        DefaultGridPhi,
		NumStarts:      DefaultNumStarts,
		MaxEvaluations: DefaultMaxEvaluations,
		SimplexSize:    DefaultSimplexSize,
	}
}

// Validate checks that the bounds and search sizes are usable
func (o *Options) Validate() error {
	for name, b := range map[string]Bounds{"alpha": o.Alpha, "beta": o.Beta, "phi": o.Phi} {
		if b.Lower > b.Upper {
			return fmt.Errorf("%s [%.3f, %.3f], %w", name, b.Lower, b.Upper, ErrInvalidBounds)
		}
	}
	if o.Alpha.Lower < 0 || o.Alpha.Upper > 1 || o.Beta.Lower < 0 || o.Beta.Upper > 1 {
		return fmt.Errorf("alpha and beta must lie within [0, 1], %w", ErrInvalidBounds)
	}
	if o.Phi.Lower <= 0 || o.Phi.Upper > 1 {
		return fmt.Errorf("phi must lie within (0, 1], %w", ErrInvalidBounds)
	}
	if o.GridAlpha < 1 || o.GridBeta < 1 || o.GridPhi < 1 {
		return ErrInvalidGrid
	}
	if o.NumStarts < 1 {
		return ErrInvalidStarts
	}
	return nil
}

func (o *Options) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(w, "%s%sSearch:\n", prefix, util.IndentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sAlpha: [%.3f, %.3f]    Beta: [%.3f, %.3f]    Phi: [%.3f, %.3f]\n",
		prefix, util.IndentExpand(indent, indentGrowth+1),
		o.Alpha.Lower, o.Alpha.Upper,
		o.Beta.Lower, o.Beta.Upper,
		o.Phi.Lower, o.Phi.Upper,
	); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s%sGrid: %dx%dx%d    Starts: %d\n",
		prefix, util.IndentExpand(indent, indentGrowth+1),
		o.GridAlpha, o.GridBeta, o.GridPhi, o.NumStarts,
	)
	return err
}
