package report

import (
	"fmt"
	"os"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/oliviergimenez/SCRtrapactivity/internal/bias"
)

// LineChart renders one parameter's relative bias against onset occasion,
// one series per inactive-trap percentage, and saves it as PNG.
func LineChart(rows []bias.Row, parameter string, asm bias.Assumption, path string) error {
	byPct := map[float64]map[int]float64{}
	onsetSet := map[int]bool{}
	for _, r := range rows {
		if r.Parameter != parameter || r.Assumption != asm {
			continue
		}
		if byPct[r.PctInactive] == nil {
			byPct[r.PctInactive] = map[int]float64{}
		}
		byPct[r.PctInactive][r.Onset] = r.BiasPct
		onsetSet[r.Onset] = true
	}
	if len(byPct) == 0 {
		return fmt.Errorf("report: no rows for parameter %q, assumption %q", parameter, asm)
	}

	var onsets []int
	for on := range onsetSet {
		onsets = append(onsets, on)
	}
	sort.Ints(onsets)
	var pcts []float64
	for pct := range byPct {
		pcts = append(pcts, pct)
	}
	sort.Float64s(pcts)

	var series []chart.Series
	for i, pct := range pcts {
		xs := make([]float64, 0, len(onsets))
		ys := make([]float64, 0, len(onsets))
		for _, on := range onsets {
			if v, ok := byPct[pct][on]; ok {
				xs = append(xs, float64(on))
				ys = append(ys, v)
			}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%g%% inactive", pct),
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: chart.GetDefaultColor(i),
				StrokeWidth: 2,
			},
		})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Relative bias of %s (%%), %s activity assumption", parameter, asm),
		Width:  900,
		Height: 500,
		XAxis: chart.XAxis{
			Name:  "onset occasion of trap inactivity",
			Ticks: onsetTicks(onsets),
		},
		YAxis: chart.YAxis{
			Name: "relative bias (%)",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()
	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("report: render line chart %s: %w", path, err)
	}
	return nil
}

func onsetTicks(onsets []int) []chart.Tick {
	var ticks []chart.Tick
	for _, on := range onsets {
		ticks = append(ticks, chart.Tick{Value: float64(on), Label: fmt.Sprintf("%d", on)})
	}
	return ticks
}
