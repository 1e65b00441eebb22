package ets

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

type candidate struct {
	params Params
	sse    float64
}

// search evaluates the coarse grid, refines the best grid points and returns the refined
// candidate with the lowest error. Ties keep the earlier candidate so fits are reproducible.
func (e *ETS) search(y []float64) (candidate, bool) {
	starts := e.grid(y)
	if len(starts) > e.opt.NumStarts {
		starts = starts[:e.opt.NumStarts]
	}

	var best candidate
	found := false
	for _, start := range starts {
		c, ok := e.refine(y, start.params)
		if !ok {
			continue
		}
		if !found || c.sse < best.sse {
			best = c
			found = true
		}
	}
	return best, found
}

// grid evaluates interior points spanning the admissible ranges of alpha, beta and phi with
// the heuristic initial state and returns the finite candidates ordered by error
func (e *ETS) grid(y []float64) []candidate {
	l0, b0 := heuristicState(y)

	alphas := gridPoints(e.opt.Alpha, e.opt.GridAlpha)
	betas := gridPoints(e.opt.Beta, e.opt.GridBeta)
	phis := gridPoints(e.opt.Phi, e.opt.GridPhi)

	cands := make([]candidate, 0, len(alphas)*len(betas)*len(phis))
	for _, alpha := range alphas {
		for _, beta := range betas {
			for _, phi := range phis {
				p := Params{
					Alpha:        alpha,
					Beta:         beta,
					Phi:          phi,
					InitialLevel: l0,
					InitialTrend: b0,
				}
				_, _, sse := filter(y, p)
				if !finite(sse) {
					continue
				}
				cands = append(cands, candidate{params: p, sse: sse})
			}
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].sse < cands[j].sse
	})
	return cands
}

func gridPoints(b Bounds, n int) []float64 {
	if b.Lower == b.Upper {
		return []float64{b.Lower}
	}
	pnts := make([]float64, n)
	for i := 0; i < n; i++ {
		pnts[i] = b.Lower + (b.Upper-b.Lower)*(float64(i)+0.5)/float64(n)
	}
	return pnts
}

// refine runs Nelder-Mead from the start over all five parameters. The bounded coefficients
// are searched through a logistic transform and the initial state through an offset scaled
// to the spread of the data.
func (e *ETS) refine(y []float64, start Params) (candidate, bool) {
	t := newTransform(e.opt, y, start)

	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			_, _, sse := filter(y, t.decode(u))
			if !finite(sse) {
				return math.MaxFloat64
			}
			return sse
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: e.opt.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-10,
			Iterations: 100,
		},
	}

	res, err := optimize.Minimize(problem, t.encode(start), settings, &optimize.NelderMead{SimplexSize: e.opt.SimplexSize})
	if res == nil {
		return candidate{}, false
	}
	if err != nil && !finite(res.F) {
		return candidate{}, false
	}

	p := t.decode(res.X)
	if !finite(res.F, p.Alpha, p.Beta, p.Phi, p.InitialLevel, p.InitialTrend) || res.F == math.MaxFloat64 {
		return candidate{}, false
	}
	if !e.opt.Alpha.contains(p.Alpha) || !e.opt.Beta.contains(p.Beta) || !e.opt.Phi.contains(p.Phi) {
		return candidate{}, false
	}

	// never return something worse than where the refinement started
	_, _, startSSE := filter(y, start)
	_, _, sse := filter(y, p)
	if startSSE <= sse {
		return candidate{params: start, sse: startSSE}, true
	}
	return candidate{params: p, sse: sse}, true
}

// transform maps between the bounded parameter space and the unconstrained search space
type transform struct {
	alpha, beta, phi Bounds

	level0, trend0 float64
	scale          float64
}

func newTransform(opt *Options, y []float64, start Params) transform {
	return transform{
		alpha:  opt.Alpha,
		beta:   opt.Beta,
		phi:    opt.Phi,
		level0: start.InitialLevel,
		trend0: start.InitialTrend,
		scale:  stateScale(y),
	}
}

// stateScale sizes the initial state steps to the data so the simplex is well conditioned
// for series in the millions as well as near zero
func stateScale(y []float64) float64 {
	scale := 1.0
	if len(y) > 1 {
		scale = math.Max(scale, stat.StdDev(y, nil))
	}
	var absMean float64
	for _, v := range y {
		absMean += math.Abs(v)
	}
	absMean /= float64(len(y))
	return math.Max(scale, 0.1*absMean)
}

func (t transform) encode(p Params) []float64 {
	return []float64{
		toUnbounded(p.Alpha, t.alpha),
		toUnbounded(p.Beta, t.beta),
		toUnbounded(p.Phi, t.phi),
		(p.InitialLevel - t.level0) / t.scale,
		(p.InitialTrend - t.trend0) / t.scale,
	}
}

func (t transform) decode(u []float64) Params {
	return Params{
		Alpha:        fromUnbounded(u[0], t.alpha),
		Beta:         fromUnbounded(u[1], t.beta),
		Phi:          fromUnbounded(u[2], t.phi),
		InitialLevel: t.level0 + t.scale*u[3],
		InitialTrend: t.trend0 + t.scale*u[4],
	}
}

func toUnbounded(v float64, b Bounds) float64 {
	if b.Upper == b.Lower {
		return 0
	}
	frac := (v - b.Lower) / (b.Upper - b.Lower)
	// keep the logit finite for values on the boundary
	frac = math.Min(math.Max(frac, 1e-9), 1-1e-9)
	return math.Log(frac / (1 - frac))
}

func fromUnbounded(u float64, b Bounds) float64 {
	if b.Upper == b.Lower {
		return b.Lower
	}
	v := b.Lower + (b.Upper-b.Lower)/(1+math.Exp(-u))
	return math.Min(math.Max(v, b.Lower), b.Upper)
}
