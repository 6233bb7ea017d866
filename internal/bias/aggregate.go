// Package bias runs simulate→fit→extract trials at one scenario and turns
// the accumulated estimates into relative-bias summaries against ground
// truth.
package bias

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/oliviergimenez/SCRtrapactivity/internal/scr"
	"github.com/oliviergimenez/SCRtrapactivity/internal/sim"
)

// Assumption tags which declared operating-status matrix a fit used:
// "correct" declares the real inactivity periods, "incorrect" assumes every
// trap ran the whole survey.
type Assumption string

const (
	Correct   Assumption = "correct"
	Incorrect Assumption = "incorrect"
)

// Assumptions in fixed reporting order.
var Assumptions = []Assumption{Correct, Incorrect}

// Parameters of interest, in fixed reporting order.
var Parameters = []string{"density", "abundance", "p0", "sigma"}

// Reference selects the ground-truth values bias is measured against.
type Reference string

const (
	// RefNominal compares against the configured generating parameters.
	RefNominal Reference = "nominal"
	// RefRealized compares density and abundance against the mean realized
	// population over the scenario's own trials.
	RefRealized Reference = "realized"
)

// Scenario is one grid point of the sweep.
type Scenario struct {
	Onset       int     // 1-based occasion at which selected traps go dark
	PctInactive float64 // percentage of traps selected for failure
}

func (s Scenario) String() string {
	return fmt.Sprintf("onset=%d pct=%g", s.Onset, s.PctInactive)
}

// Seed derives a scenario-specific RNG seed from the sweep's base seed, so
// results do not depend on worker scheduling.
func (s Scenario) Seed(base uint64) uint64 {
	return base + uint64(s.Onset)*1000003 + uint64(s.PctInactive*10)*7000037
}

// Params configures one aggregation run.
type Params struct {
	Sim        sim.Params
	Buffer     float64 // state-space buffer around the trap grid
	Resolution float64 // state-space pixel size
	Trials     int
	MaxRetries int // redraw attempts for zero-capture simulations
	Reference  Reference
}

// Estimates is one 4-tuple of parameter values, fitted or true.
type Estimates struct {
	Density   float64
	Abundance float64
	P0        float64
	Sigma     float64
}

// Get returns the named component; parameter names follow Parameters.
func (e Estimates) Get(param string) (float64, error) {
	switch param {
	case "density":
		return e.Density, nil
	case "abundance":
		return e.Abundance, nil
	case "p0":
		return e.P0, nil
	case "sigma":
		return e.Sigma, nil
	}
	return 0, fmt.Errorf("bias: unknown parameter %q", param)
}

// Trial records both fits of one simulated survey.
type Trial struct {
	Index     int
	RealizedN int
	Fits      map[Assumption]scr.Result
}

// Aggregate is the outcome of one scenario: raw per-trial estimates for both
// assumptions plus the two relative-bias vectors.
type Aggregate struct {
	Scenario Scenario
	Params   Params

	Trials       []Trial
	SkippedEmpty int                // trials lost to zero captures after retries
	Excluded     map[Assumption]int // non-converged fits excluded from means

	Truth Estimates
	Mean  map[Assumption]Estimates
	Bias  map[Assumption]Estimates // relative bias, percent

	Elapsed time.Duration
}

// Converged returns the converged results for one assumption.
func (a *Aggregate) Converged(asm Assumption) []scr.Result {
	var out []scr.Result
	for _, t := range a.Trials {
		if r, ok := t.Fits[asm]; ok && r.Converged {
			out = append(out, r)
		}
	}
	return out
}

// Run executes the scenario: each trial simulates one survey with the true
// operating status, packages the identical encounter data against both
// declared statuses, fits both, and accumulates the estimates. Trial-level
// failures are recorded and skipped; they never abort the scenario.
func Run(p Params, sc Scenario, seed uint64, log *zap.Logger) (*Aggregate, error) {
	if p.Trials < 1 {
		return nil, fmt.Errorf("bias: trial count %d must be at least 1", p.Trials)
	}
	if p.MaxRetries < 1 {
		p.MaxRetries = 1
	}

	traps := sim.TrapGrid(p.Sim.XMax, p.Sim.YMax, p.Sim.TrapInset)
	ss, err := scr.Discretize(traps, p.Buffer, p.Resolution)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	agg := &Aggregate{
		Scenario: sc,
		Params:   p,
		Excluded: map[Assumption]int{},
	}
	start := time.Now()

	for t := 0; t < p.Trials; t++ {
		trueOps, selected, err := sim.Deactivated(len(traps), p.Sim.Occasions, sc.Onset, sc.PctInactive, rng)
		if err != nil {
			return nil, fmt.Errorf("bias: scenario %v: %w", sc, err)
		}
		assumedOps := sim.AllActive(len(traps), p.Sim.Occasions)

		survey, err := simulateWithRetry(p, traps, trueOps, rng)
		if err != nil {
			agg.SkippedEmpty++
			log.Warn("trial skipped: no captures after retries",
				zap.Int("trial", t),
				zap.String("scenario", sc.String()))
			continue
		}

		trial := Trial{Index: t, RealizedN: survey.N, Fits: map[Assumption]scr.Result{}}
		declared := map[Assumption]*sim.OpMatrix{Correct: trueOps, Incorrect: assumedOps}
		for _, asm := range Assumptions {
			ops := declared[asm]
			data, err := scr.NewData(survey.Encounters, traps, ops, ss)
			if err != nil {
				return nil, fmt.Errorf("bias: packaging trial %d (%s): %w", t, asm, err)
			}
			res, err := scr.Fit(data)
			if err != nil {
				return nil, fmt.Errorf("bias: fitting trial %d (%s): %w", t, asm, err)
			}
			if !res.Converged {
				agg.Excluded[asm]++
				log.Debug("fit excluded",
					zap.Int("trial", t),
					zap.String("assumption", string(asm)),
					zap.String("status", res.Status))
			}
			trial.Fits[asm] = res
		}
		agg.Trials = append(agg.Trials, trial)

		log.Debug("trial done",
			zap.Int("trial", t),
			zap.Int("realizedN", survey.N),
			zap.Int("captured", survey.Captured),
			zap.Ints("inactiveTraps", selected))
	}

	agg.Elapsed = time.Since(start)
	if len(agg.Trials) == 0 {
		return nil, fmt.Errorf("bias: scenario %v: every trial was empty", sc)
	}
	agg.summarize(ss.Area())
	return agg, nil
}

func simulateWithRetry(p Params, traps []sim.Trap, ops *sim.OpMatrix, rng *rand.Rand) (*sim.Realization, error) {
	var err error
	for attempt := 0; attempt < p.MaxRetries; attempt++ {
		var survey *sim.Realization
		survey, err = sim.Simulate(p.Sim, traps, ops, rng)
		if err == nil {
			return survey, nil
		}
		if err != sim.ErrNoCaptures {
			return nil, err
		}
	}
	return nil, err
}

// summarize computes per-assumption means over converged fits and relative
// bias against the chosen ground truth. Truth density is taken over the same
// state-space area the estimates are scaled by.
func (a *Aggregate) summarize(area float64) {
	truth := Estimates{
		Density:   a.Params.Sim.PopMean / area,
		Abundance: a.Params.Sim.PopMean,
		P0:        a.Params.Sim.P0,
		Sigma:     a.Params.Sim.Sigma,
	}
	if a.Params.Reference == RefRealized {
		var n float64
		for _, t := range a.Trials {
			n += float64(t.RealizedN)
		}
		n /= float64(len(a.Trials))
		truth.Abundance = n
		truth.Density = n / area
	}
	a.Truth = truth

	a.Mean = map[Assumption]Estimates{}
	a.Bias = map[Assumption]Estimates{}
	for _, asm := range Assumptions {
		results := a.Converged(asm)
		if len(results) == 0 {
			continue
		}
		d := make([]float64, len(results))
		n := make([]float64, len(results))
		p0 := make([]float64, len(results))
		sg := make([]float64, len(results))
		for i, r := range results {
			d[i], n[i], p0[i], sg[i] = r.Density, r.Abundance, r.P0, r.Sigma
		}
		mean := Estimates{
			Density:   stat.Mean(d, nil),
			Abundance: stat.Mean(n, nil),
			P0:        stat.Mean(p0, nil),
			Sigma:     stat.Mean(sg, nil),
		}
		a.Mean[asm] = mean
		a.Bias[asm] = Estimates{
			Density:   relBias(mean.Density, truth.Density),
			Abundance: relBias(mean.Abundance, truth.Abundance),
			P0:        relBias(mean.P0, truth.P0),
			Sigma:     relBias(mean.Sigma, truth.Sigma),
		}
	}
}

func relBias(est, truth float64) float64 {
	return (est - truth) / truth * 100
}
