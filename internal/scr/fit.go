package scr

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// ErrNotConverged marks a fit whose optimizer failed or whose estimates are
// degenerate. Such fits must be excluded from bias averages, never blended in.
var ErrNotConverged = errors.New("scr: fit did not converge")

// Result holds the four point estimates of one maximum-likelihood fit.
// Density is per unit area (Abundance ÷ state-space area); Abundance is the
// per-pixel density times the usable cell count.
type Result struct {
	Density   float64
	Abundance float64
	P0        float64
	Sigma     float64

	DensityPerPixel float64
	LogLik          float64
	Converged       bool
	Status          string
}

// Fit maximizes the SCR likelihood by Nelder-Mead from data-driven start
// values. A non-nil error is only returned for structurally unusable input;
// numerical failure is reported through Result.Converged so callers can count
// exclusions.
func Fit(d *Data) (Result, error) {
	if d == nil || d.Individuals() == 0 {
		return Result{}, errors.New("scr: nothing to fit")
	}

	x0 := d.startValues()
	problem := optimize.Problem{Func: d.NegLogLik}
	res, err := optimize.Minimize(problem, x0, &optimize.Settings{
		FuncEvaluations: 20000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-8,
			Iterations: 100,
		},
	}, &optimize.NelderMead{})
	if err != nil {
		return Result{Converged: false, Status: fmt.Sprintf("optimizer error: %v", err)}, nil
	}

	out := Result{
		P0:              invLogit(res.X[0]),
		Sigma:           math.Exp(res.X[1]),
		DensityPerPixel: math.Exp(res.X[2]),
		LogLik:          -res.F,
		Status:          res.Status.String(),
	}
	out.Abundance = out.DensityPerPixel * float64(d.SS.NumPixels())
	out.Density = out.Abundance / d.SS.Area()
	out.Converged = convergedStatus(res.Status) && !out.degenerate(d.SS)
	return out, nil
}

func convergedStatus(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.StepConvergence, optimize.FunctionThreshold, optimize.MethodConverge:
		return true
	}
	return false
}

// degenerate flags boundary or non-finite estimates: a sigma collapsed below
// a quarter pixel or blown past ten times the state-space extent, or a p0
// pinned to 0 or 1, is an optimizer artifact rather than an estimate.
func (r Result) degenerate(ss *StateSpace) bool {
	for _, v := range []float64{r.Density, r.Abundance, r.P0, r.Sigma, r.LogLik} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	extent := math.Max(
		ss.X[len(ss.X)-1]-ss.X[0],
		ss.Y[len(ss.Y)-1]-ss.Y[0],
	)
	if r.Sigma < ss.Res/4 || r.Sigma > 10*extent {
		return true
	}
	if r.P0 < 1e-6 || r.P0 > 1-1e-6 {
		return true
	}
	return false
}

// startValues seeds the optimizer from the data: naive detection frequency
// for p0, the spread of each individual's capture locations for sigma, and a
// detected-fraction guess for density.
func (d *Data) startValues() []float64 {
	n := d.Individuals()

	var totalEffort float64
	for _, e := range d.Effort {
		totalEffort += e
	}
	pNaive := d.Detections() / (float64(n) * math.Max(totalEffort, 1))
	pNaive = math.Min(math.Max(pNaive, 1e-3), 0.5)

	sigma0 := d.captureSpread()

	// Assume roughly half the population was seen.
	lam0 := 2 * float64(n) / float64(d.SS.NumPixels())

	return []float64{logit(pNaive), math.Log(sigma0), math.Log(lam0)}
}

// captureSpread estimates sigma as the mean distance between the distinct
// traps at which the same individual was caught, falling back to the pixel
// diagonal when every individual was caught at a single trap.
func (d *Data) captureSpread() float64 {
	var sum float64
	var cnt int
	for _, caps := range d.caps {
		for a := 0; a < len(caps); a++ {
			for b := a + 1; b < len(caps); b++ {
				ta, tb := d.Traps[caps[a].trap], d.Traps[caps[b].trap]
				dx, dy := ta.X-tb.X, ta.Y-tb.Y
				sum += math.Hypot(dx, dy)
				cnt++
			}
		}
	}
	if cnt == 0 {
		return d.SS.Res * math.Sqrt2
	}
	// Mean inter-trap capture distance overestimates sigma for a
	// half-normal kernel; halving it lands close enough for a start value.
	return math.Max(sum/float64(cnt)/2, d.SS.Res/2)
}
