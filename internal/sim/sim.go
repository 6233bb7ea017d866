// Package sim generates synthetic spatial capture-recapture surveys: a
// Poisson population of activity centers, a fixed trap grid, half-normal
// detection, and per-occasion Bernoulli encounters gated by the true
// operating status of each trap.
package sim

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrNoCaptures is returned when a simulated survey detects no individual at
// all. Callers redraw or record the trial as missing; such a survey cannot be
// fitted.
var ErrNoCaptures = errors.New("sim: no individual captured")

// Params are the generating parameters of one simulated survey.
type Params struct {
	PopMean   float64 // Poisson mean of the realized population size
	P0        float64 // baseline detection probability at distance zero
	Sigma     float64 // half-normal spatial scale
	Occasions int     // number of sampling occasions K
	XMax      float64 // state-space upper bound, x (lower bound is 0)
	YMax      float64 // state-space upper bound, y
	TrapInset float64 // distance from the state-space boundary to the trap grid
}

// Area returns the area of the simulation region.
func (p Params) Area() float64 { return p.XMax * p.YMax }

func (p Params) validate() error {
	switch {
	case p.PopMean <= 0:
		return fmt.Errorf("sim: pop mean %v must be positive", p.PopMean)
	case p.P0 <= 0 || p.P0 >= 1:
		return fmt.Errorf("sim: p0 %v must be in (0,1)", p.P0)
	case p.Sigma <= 0:
		return fmt.Errorf("sim: sigma %v must be positive", p.Sigma)
	case p.Occasions < 1:
		return fmt.Errorf("sim: occasions %d must be at least 1", p.Occasions)
	case p.XMax <= 0 || p.YMax <= 0:
		return fmt.Errorf("sim: state-space bounds (%v, %v) must be positive", p.XMax, p.YMax)
	case p.XMax-2*p.TrapInset < 0 || p.YMax-2*p.TrapInset < 0:
		return fmt.Errorf("sim: trap inset %v leaves no room inside (%v, %v)", p.TrapInset, p.XMax, p.YMax)
	}
	return nil
}

// Trap is a fixed detector location.
type Trap struct {
	X, Y float64
}

// TrapGrid lays traps on the integer grid inset from each boundary of the
// [0,xMax]×[0,yMax] rectangle. With the study defaults (bounds 13, inset 3)
// this is the 8×8 grid of 64 traps.
func TrapGrid(xMax, yMax, inset float64) []Trap {
	var traps []Trap
	for x := inset; x <= xMax-inset+1e-9; x++ {
		for y := inset; y <= yMax-inset+1e-9; y++ {
			traps = append(traps, Trap{X: x, Y: y})
		}
	}
	return traps
}

// Encounter is one positive detection. Session is always 1 in this study;
// Individual numbers captured animals 1..n; Trap indexes the trap list
// 0-based; Occasion is 1-based.
type Encounter struct {
	Session    int
	Individual int
	Trap       int
	Occasion   int
}

// Realization is the outcome of one simulated survey.
type Realization struct {
	N          int          // realized population size
	Captured   int          // individuals with at least one detection
	Encounters []Encounter  // sparse positive detections
	Centers    [][2]float64 // activity centers of captured individuals
	Traps      []Trap

	NominalDensity  float64 // PopMean / area
	RealizedDensity float64 // N / area
}

// Simulate draws one survey. Detection draws are gated by ops, the true
// operating status: a dead trap-occasion can never produce an encounter.
func Simulate(p Params, traps []Trap, ops *OpMatrix, rng *rand.Rand) (*Realization, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(traps) == 0 {
		return nil, errors.New("sim: empty trap list")
	}
	if ops.J != len(traps) || ops.K != p.Occasions {
		return nil, fmt.Errorf("sim: operation matrix is %d×%d, want %d×%d", ops.J, ops.K, len(traps), p.Occasions)
	}

	pois := distuv.Poisson{Lambda: p.PopMean, Src: rng}
	n := int(pois.Rand())
	if n == 0 {
		return nil, ErrNoCaptures
	}

	centers := make([][2]float64, n)
	for i := range centers {
		centers[i] = [2]float64{rng.Float64() * p.XMax, rng.Float64() * p.YMax}
	}

	// Detection probability for each individual at each trap.
	prob := mat.NewDense(n, len(traps), nil)
	twoSigma2 := 2 * p.Sigma * p.Sigma
	for i := 0; i < n; i++ {
		for j, t := range traps {
			dx := centers[i][0] - t.X
			dy := centers[i][1] - t.Y
			prob.Set(i, j, p.P0*math.Exp(-(dx*dx+dy*dy)/twoSigma2))
		}
	}

	var raw []Encounter
	captured := make([]bool, n)
	for i := 0; i < n; i++ {
		for j := range traps {
			pij := prob.At(i, j)
			for k := 1; k <= p.Occasions; k++ {
				if !ops.Active(j, k-1) {
					continue
				}
				if rng.Float64() < pij {
					raw = append(raw, Encounter{Session: 1, Individual: i, Trap: j, Occasion: k})
					captured[i] = true
				}
			}
		}
	}
	if len(raw) == 0 {
		return nil, ErrNoCaptures
	}

	// Renumber captured individuals 1..n and drop the rest.
	id := make([]int, n)
	var kept [][2]float64
	next := 1
	for i := 0; i < n; i++ {
		if captured[i] {
			id[i] = next
			kept = append(kept, centers[i])
			next++
		}
	}
	encs := make([]Encounter, 0, len(raw))
	for _, e := range raw {
		e.Individual = id[e.Individual]
		encs = append(encs, e)
	}

	return &Realization{
		N:               n,
		Captured:        next - 1,
		Encounters:      encs,
		Centers:         kept,
		Traps:           traps,
		NominalDensity:  p.PopMean / p.Area(),
		RealizedDensity: float64(n) / p.Area(),
	}, nil
}
