package report

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/oliviergimenez/SCRtrapactivity/internal/bias"
)

// biasGrid adapts one parameter's bias values over the scenario grid to
// plotter.GridXYZ: columns are onset occasions, rows inactive percentages.
type biasGrid struct {
	onsets []int
	pcts   []float64
	z      map[[2]int]float64 // keyed by (column, row)
}

func (g *biasGrid) Dims() (c, r int)   { return len(g.onsets), len(g.pcts) }
func (g *biasGrid) X(c int) float64    { return float64(g.onsets[c]) }
func (g *biasGrid) Y(r int) float64    { return g.pcts[r] }
func (g *biasGrid) Z(c, r int) float64 { return g.z[[2]int{c, r}] }

func (g *biasGrid) maxAbs() float64 {
	var m float64
	for _, v := range g.z {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

// newBiasGrid collects one (parameter, assumption) slice of the table.
func newBiasGrid(rows []bias.Row, parameter string, asm bias.Assumption) (*biasGrid, error) {
	onsetSet := map[int]bool{}
	pctSet := map[float64]bool{}
	vals := map[[2]float64]float64{}
	for _, r := range rows {
		if r.Parameter != parameter || r.Assumption != asm {
			continue
		}
		onsetSet[r.Onset] = true
		pctSet[r.PctInactive] = true
		vals[[2]float64{float64(r.Onset), r.PctInactive}] = r.BiasPct
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("report: no rows for parameter %q, assumption %q", parameter, asm)
	}

	g := &biasGrid{z: map[[2]int]float64{}}
	for on := range onsetSet {
		g.onsets = append(g.onsets, on)
	}
	for pct := range pctSet {
		g.pcts = append(g.pcts, pct)
	}
	sort.Ints(g.onsets)
	sort.Float64s(g.pcts)
	for c, on := range g.onsets {
		for r, pct := range g.pcts {
			g.z[[2]int{c, r}] = vals[[2]float64{float64(on), pct}]
		}
	}
	return g, nil
}

// Heatmap renders one parameter's relative bias over the scenario grid,
// diverging blue/white/red centered on zero, and saves it as PNG.
func Heatmap(rows []bias.Row, parameter string, asm bias.Assumption, path string) error {
	grid, err := newBiasGrid(rows, parameter, asm)
	if err != nil {
		return err
	}

	cm := moreland.SmoothBlueRed()
	lim := grid.maxAbs()
	if lim == 0 {
		lim = 1 // flat grid, keep the colormap range valid
	}
	cm.SetMin(-lim)
	cm.SetMax(lim)

	h := plotter.NewHeatMap(grid, cm.Palette(255))
	h.Min = -lim
	h.Max = lim

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Relative bias of %s (%%), %s activity assumption", parameter, asm)
	p.X.Label.Text = "onset occasion of trap inactivity"
	p.Y.Label.Text = "inactive traps (%)"
	p.X.Tick.Marker = intTicker{}
	p.Add(h)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save heatmap %s: %w", path, err)
	}
	return nil
}

// intTicker puts a tick on every integer of the axis range.
type intTicker struct{}

func (intTicker) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for v := math.Ceil(min); v <= max; v++ {
		ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf("%d", int(v))})
	}
	return ticks
}
