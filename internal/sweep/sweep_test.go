package sweep

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oliviergimenez/SCRtrapactivity/internal/bias"
	"github.com/oliviergimenez/SCRtrapactivity/internal/sim"
	"github.com/oliviergimenez/SCRtrapactivity/internal/store"
)

func TestGridIsCartesianOnsetMajor(t *testing.T) {
	g := Grid([]int{5, 6, 7, 8}, []float64{30, 40, 50, 60, 70, 80})
	require.Len(t, g, 24)
	assert.Equal(t, bias.Scenario{Onset: 5, PctInactive: 30}, g[0])
	assert.Equal(t, bias.Scenario{Onset: 5, PctInactive: 40}, g[1])
	assert.Equal(t, bias.Scenario{Onset: 6, PctInactive: 30}, g[6])
	assert.Equal(t, bias.Scenario{Onset: 8, PctInactive: 80}, g[23])
}

func TestGridEmpty(t *testing.T) {
	assert.Empty(t, Grid(nil, []float64{30}))
	assert.Empty(t, Grid([]int{5}, nil))
}

func testDriver(t *testing.T, st *store.Store, resume bool) *Driver {
	t.Helper()
	return &Driver{
		Params: bias.Params{
			Sim: sim.Params{
				PopMean:   30,
				P0:        0.25,
				Sigma:     0.6,
				Occasions: 4,
				XMax:      9,
				YMax:      9,
				TrapInset: 3,
			},
			Buffer:     3,
			Resolution: 0.5,
			Trials:     1,
			MaxRetries: 25,
			Reference:  bias.RefNominal,
		},
		Onsets:  []int{3},
		Pcts:    []float64{0, 50},
		Seed:    1234,
		Workers: 2,
		Resume:  resume,
		Store:   st,
		Log:     zap.NewNop(),
	}
}

func TestDriverRunsAndResumes(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer st.Close()

	d := testDriver(t, st, false)
	table, summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scenarios)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.NotEmpty(t, table)
	// Every scenario contributes rows for both assumptions and all four
	// parameters when fits converge.
	assert.LessOrEqual(t, len(table), 2*len(bias.Assumptions)*len(bias.Parameters))

	// A second run with --resume touches nothing and returns the same table.
	d2 := testDriver(t, st, true)
	table2, summary2, err := d2.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary2.Skipped)
	assert.Equal(t, table, table2)

	elapsed, ok, err := st.GetMeta("sweep_elapsed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, elapsed)
}

func TestDriverIsolatesScenarioFailure(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer st.Close()

	d := testDriver(t, st, false)
	// Onset 9 is outside [1, K+1] for K=4: that grid point must fail alone.
	d.Onsets = []int{3, 9}
	d.Pcts = []float64{50}

	table, summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scenarios)
	assert.Equal(t, 1, summary.Failed)
	assert.NotEmpty(t, table)
	for _, row := range table {
		assert.Equal(t, 3, row.Onset)
	}
}

func TestDriverEmptyGrid(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer st.Close()

	d := testDriver(t, st, false)
	d.Onsets = nil
	_, _, err = d.Run(context.Background())
	assert.Error(t, err)
}
