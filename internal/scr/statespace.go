// Package scr fits a spatial capture-recapture model by maximum likelihood:
// a full Poisson SCR likelihood with intercept-only predictors for density,
// baseline detection and spatial scale, maximized over a discretized state
// space.
package scr

import (
	"errors"
	"fmt"
	"math"

	"github.com/oliviergimenez/SCRtrapactivity/internal/sim"
)

// StateSpace is a rectangular pixel grid of candidate activity centers.
// Pixels are indexed g = ix*len(Y)+iy; X and Y hold pixel-center
// coordinates per axis.
type StateSpace struct {
	X, Y []float64
	Res  float64
}

// Discretize covers the trap bounding box, buffered on every side, with
// square pixels of the given resolution.
func Discretize(traps []sim.Trap, buffer, res float64) (*StateSpace, error) {
	if len(traps) == 0 {
		return nil, errors.New("scr: no traps to buffer")
	}
	if res <= 0 || buffer < 0 {
		return nil, fmt.Errorf("scr: invalid buffer %v / resolution %v", buffer, res)
	}
	xmin, xmax := traps[0].X, traps[0].X
	ymin, ymax := traps[0].Y, traps[0].Y
	for _, t := range traps[1:] {
		xmin = math.Min(xmin, t.X)
		xmax = math.Max(xmax, t.X)
		ymin = math.Min(ymin, t.Y)
		ymax = math.Max(ymax, t.Y)
	}
	return &StateSpace{
		X:   axis(xmin-buffer, xmax+buffer, res),
		Y:   axis(ymin-buffer, ymax+buffer, res),
		Res: res,
	}, nil
}

func axis(lo, hi, res float64) []float64 {
	n := int(math.Round((hi - lo) / res))
	if n < 1 {
		n = 1
	}
	cs := make([]float64, n)
	for i := range cs {
		cs[i] = lo + res/2 + float64(i)*res
	}
	return cs
}

// NumPixels is the usable state-space cell count.
func (s *StateSpace) NumPixels() int { return len(s.X) * len(s.Y) }

// PixelArea is the area of one cell.
func (s *StateSpace) PixelArea() float64 { return s.Res * s.Res }

// Area is the total discretized area.
func (s *StateSpace) Area() float64 { return float64(s.NumPixels()) * s.PixelArea() }

// Center returns the coordinates of pixel g.
func (s *StateSpace) Center(g int) (x, y float64) {
	return s.X[g/len(s.Y)], s.Y[g%len(s.Y)]
}
