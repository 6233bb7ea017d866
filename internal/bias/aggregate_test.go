package bias

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oliviergimenez/SCRtrapactivity/internal/sim"
)

// A compact configuration that keeps the state space small enough for fast
// test fits: a 4×4 trap grid over 324 pixels.
func testParams(trials int) Params {
	return Params{
		Sim: sim.Params{
			PopMean:   30,
			P0:        0.25,
			Sigma:     0.6,
			Occasions: 5,
			XMax:      9,
			YMax:      9,
			TrapInset: 3,
		},
		Buffer:     3,
		Resolution: 0.5,
		Trials:     trials,
		MaxRetries: 25,
		Reference:  RefNominal,
	}
}

func TestRunSingleTrialEqualsItsOwnDeviation(t *testing.T) {
	p := testParams(1)
	sc := Scenario{Onset: 3, PctInactive: 50}

	agg, err := Run(p, sc, 42, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, agg.Trials, 1)

	for _, asm := range Assumptions {
		fit, ok := agg.Trials[0].Fits[asm]
		require.True(t, ok)
		require.True(t, fit.Converged, "status: %s", fit.Status)

		// Mean of a single trial is the trial itself, so the aggregate
		// bias must equal the trial's own relative deviation exactly.
		assert.InDelta(t, (fit.Density-agg.Truth.Density)/agg.Truth.Density*100,
			agg.Bias[asm].Density, 1e-9)
		assert.InDelta(t, (fit.Abundance-agg.Truth.Abundance)/agg.Truth.Abundance*100,
			agg.Bias[asm].Abundance, 1e-9)
		assert.InDelta(t, (fit.P0-agg.Truth.P0)/agg.Truth.P0*100,
			agg.Bias[asm].P0, 1e-9)
		assert.InDelta(t, (fit.Sigma-agg.Truth.Sigma)/agg.Truth.Sigma*100,
			agg.Bias[asm].Sigma, 1e-9)
	}
}

// With no trap selected for failure the two bundles are identical, so both
// assumptions must produce the same fit, trial by trial.
func TestRunZeroPctAssumptionsAgree(t *testing.T) {
	p := testParams(2)
	sc := Scenario{Onset: 3, PctInactive: 0}

	agg, err := Run(p, sc, 7, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, agg.Trials, 2)

	for _, trial := range agg.Trials {
		c, ok := trial.Fits[Correct]
		require.True(t, ok)
		w, ok := trial.Fits[Incorrect]
		require.True(t, ok)
		assert.InDelta(t, c.Density, w.Density, 1e-12)
		assert.InDelta(t, c.Abundance, w.Abundance, 1e-12)
		assert.InDelta(t, c.P0, w.P0, 1e-12)
		assert.InDelta(t, c.Sigma, w.Sigma, 1e-12)
	}
	assert.Equal(t, agg.Bias[Correct], agg.Bias[Incorrect])
}

func TestRunTruthReferences(t *testing.T) {
	p := testParams(1)
	sc := Scenario{Onset: 3, PctInactive: 40}

	agg, err := Run(p, sc, 11, zap.NewNop())
	require.NoError(t, err)
	assert.InDelta(t, 30.0/81.0, agg.Truth.Density, 1e-12)
	assert.InDelta(t, 30.0, agg.Truth.Abundance, 1e-12)

	p.Reference = RefRealized
	agg2, err := Run(p, sc, 11, zap.NewNop())
	require.NoError(t, err)
	n := float64(agg2.Trials[0].RealizedN)
	assert.InDelta(t, n, agg2.Truth.Abundance, 1e-12)
	assert.InDelta(t, n/81.0, agg2.Truth.Density, 1e-12)
	// Detection parameters keep their nominal truth either way.
	assert.InDelta(t, 0.25, agg2.Truth.P0, 1e-12)
	assert.InDelta(t, 0.6, agg2.Truth.Sigma, 1e-12)
}

func TestRunAllTrialsEmptyIsAnError(t *testing.T) {
	p := testParams(2)
	p.Sim.P0 = 1e-12
	p.Sim.PopMean = 2
	p.MaxRetries = 3
	sc := Scenario{Onset: 3, PctInactive: 50}

	_, err := Run(p, sc, 9, zap.NewNop())
	assert.Error(t, err)
}

func TestRunRejectsBadScenario(t *testing.T) {
	p := testParams(1)
	_, err := Run(p, Scenario{Onset: 0, PctInactive: 50}, 1, zap.NewNop())
	assert.Error(t, err)
	_, err = Run(p, Scenario{Onset: 3, PctInactive: 130}, 1, zap.NewNop())
	assert.Error(t, err)
}

func TestScenarioSeedDerivation(t *testing.T) {
	a := Scenario{Onset: 5, PctInactive: 30}
	b := Scenario{Onset: 6, PctInactive: 30}
	c := Scenario{Onset: 5, PctInactive: 40}
	assert.Equal(t, a.Seed(1234), a.Seed(1234))
	assert.NotEqual(t, a.Seed(1234), b.Seed(1234))
	assert.NotEqual(t, a.Seed(1234), c.Seed(1234))
	assert.NotEqual(t, a.Seed(1234), a.Seed(1235))
}

func TestRowsLongForm(t *testing.T) {
	p := testParams(1)
	sc := Scenario{Onset: 3, PctInactive: 50}
	agg, err := Run(p, sc, 42, zap.NewNop())
	require.NoError(t, err)

	rows := agg.Rows()
	require.Len(t, rows, len(Assumptions)*len(Parameters))
	assert.Equal(t, Row{
		Onset:       3,
		PctInactive: 50,
		Assumption:  Correct,
		Parameter:   "density",
		BiasPct:     agg.Bias[Correct].Density,
	}, rows[0])
}
