package scr

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/oliviergimenez/SCRtrapactivity/internal/sim"
)

// Data is a fit-ready bundle: encounter histories collapsed to per-trap
// detection counts, the declared per-trap effort, and the discretized state
// space. Because detection probability is constant across occasions, the
// per-occasion Bernoulli histories collapse to binomial counts against each
// trap's declared active-occasion total without loss.
type Data struct {
	Traps  []sim.Trap
	Counts *mat.Dense // n × J detections of individual i at trap j
	Effort []float64  // J declared active occasions per trap
	SS     *StateSpace

	caps []capList   // per individual, traps with at least one detection
	d2   *mat.Dense  // J × G squared trap-pixel distances
}

type capture struct {
	trap  int
	count float64
}

type capList []capture

// NewData packages encounters with one declared operating-status matrix.
// The encounter list is shared between the two bundles of a trial; only the
// declared status differs, which is what isolates the bias to the activity
// assumption.
func NewData(encs []sim.Encounter, traps []sim.Trap, ops *sim.OpMatrix, ss *StateSpace) (*Data, error) {
	if len(encs) == 0 {
		return nil, errors.New("scr: empty encounter list")
	}
	if ops.J != len(traps) {
		return nil, fmt.Errorf("scr: operation matrix has %d traps, want %d", ops.J, len(traps))
	}

	n := 0
	for _, e := range encs {
		if e.Individual < 1 {
			return nil, fmt.Errorf("scr: individual id %d out of range", e.Individual)
		}
		if e.Trap < 0 || e.Trap >= len(traps) {
			return nil, fmt.Errorf("scr: trap index %d out of range", e.Trap)
		}
		if e.Occasion < 1 || e.Occasion > ops.K {
			return nil, fmt.Errorf("scr: occasion %d out of range [1,%d]", e.Occasion, ops.K)
		}
		if e.Individual > n {
			n = e.Individual
		}
	}

	counts := mat.NewDense(n, len(traps), nil)
	for _, e := range encs {
		i, j := e.Individual-1, e.Trap
		counts.Set(i, j, counts.At(i, j)+1)
	}

	effort := ops.Effort()
	for i := 0; i < n; i++ {
		row := false
		for j := range traps {
			c := counts.At(i, j)
			if c > 0 {
				row = true
			}
			if c > effort[j]+1e-9 {
				return nil, fmt.Errorf("scr: individual %d has %v detections at trap %d but only %v declared active occasions", i+1, c, j, effort[j])
			}
		}
		if !row {
			return nil, fmt.Errorf("scr: individual %d has no detections", i+1)
		}
	}

	d := &Data{Traps: traps, Counts: counts, Effort: effort, SS: ss}
	d.index()
	return d, nil
}

func (d *Data) index() {
	n, j := d.Counts.Dims()
	d.caps = make([]capList, n)
	for i := 0; i < n; i++ {
		for t := 0; t < j; t++ {
			if c := d.Counts.At(i, t); c > 0 {
				d.caps[i] = append(d.caps[i], capture{trap: t, count: c})
			}
		}
	}

	g := d.SS.NumPixels()
	d.d2 = mat.NewDense(j, g, nil)
	for t := 0; t < j; t++ {
		for p := 0; p < g; p++ {
			x, y := d.SS.Center(p)
			dx := d.Traps[t].X - x
			dy := d.Traps[t].Y - y
			d.d2.Set(t, p, dx*dx+dy*dy)
		}
	}
}

// Individuals is the number of captured individuals in the bundle.
func (d *Data) Individuals() int {
	n, _ := d.Counts.Dims()
	return n
}

// Detections is the total number of positive trap-occasion cells.
func (d *Data) Detections() float64 {
	var s float64
	n, j := d.Counts.Dims()
	for i := 0; i < n; i++ {
		for t := 0; t < j; t++ {
			s += d.Counts.At(i, t)
		}
	}
	return s
}
