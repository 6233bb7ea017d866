// Package sweep drives the bias aggregator over the cartesian grid of
// (onset occasion, percent inactive) scenarios, in parallel, with
// scenario-granularity checkpointing through the results store.
package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oliviergimenez/SCRtrapactivity/internal/bias"
	"github.com/oliviergimenez/SCRtrapactivity/internal/store"
)

// Grid returns the cartesian product of onsets and inactive percentages,
// onset-major.
func Grid(onsets []int, pcts []float64) []bias.Scenario {
	var out []bias.Scenario
	for _, on := range onsets {
		for _, pct := range pcts {
			out = append(out, bias.Scenario{Onset: on, PctInactive: pct})
		}
	}
	return out
}

// Driver runs one sweep.
type Driver struct {
	Params  bias.Params
	Onsets  []int
	Pcts    []float64
	Seed    uint64
	Workers int
	Resume  bool

	Store *store.Store
	Log   *zap.Logger
}

// Summary describes how a sweep went.
type Summary struct {
	Scenarios int
	Skipped   int // already complete, left untouched under --resume
	Failed    int
	Elapsed   time.Duration
}

// Run executes every scenario of the grid. Scenario failures are isolated:
// the failed grid point is logged and counted, the rest of the sweep
// continues. The returned table is loaded back from the store so resumed
// scenarios are included.
func (d *Driver) Run(ctx context.Context) ([]bias.Row, Summary, error) {
	scenarios := Grid(d.Onsets, d.Pcts)
	if len(scenarios) == 0 {
		return nil, Summary{}, fmt.Errorf("sweep: empty scenario grid")
	}
	workers := d.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		summary = Summary{Scenarios: len(scenarios)}
		start   = time.Now()
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, sc := range scenarios {
		sc := sc
		if d.Resume {
			done, err := d.Store.HasScenario(sc)
			if err != nil {
				return nil, summary, err
			}
			if done {
				d.Log.Info("scenario already complete, skipping", zap.String("scenario", sc.String()))
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				continue
			}
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d.Log.Info("scenario start", zap.String("scenario", sc.String()))
			agg, err := bias.Run(d.Params, sc, sc.Seed(d.Seed), d.Log)
			if err != nil {
				// A structurally bad grid point aborts this scenario only.
				d.Log.Error("scenario failed", zap.String("scenario", sc.String()), zap.Error(err))
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			if err := d.Store.SaveAggregate(agg); err != nil {
				return fmt.Errorf("sweep: saving %v: %w", sc, err)
			}
			d.Log.Info("scenario done",
				zap.String("scenario", sc.String()),
				zap.Duration("elapsed", agg.Elapsed),
				zap.Int("skippedEmpty", agg.SkippedEmpty),
				zap.Int("excludedCorrect", agg.Excluded[bias.Correct]),
				zap.Int("excludedIncorrect", agg.Excluded[bias.Incorrect]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, summary, err
	}

	summary.Elapsed = time.Since(start)
	if err := d.Store.SetMeta("seed", fmt.Sprintf("%d", d.Seed)); err != nil {
		return nil, summary, err
	}
	if err := d.Store.SetMeta("sweep_elapsed", summary.Elapsed.String()); err != nil {
		return nil, summary, err
	}

	table, err := d.Store.BiasTable()
	if err != nil {
		return nil, summary, err
	}
	return table, summary, nil
}
