package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliviergimenez/SCRtrapactivity/internal/bias"
	"github.com/oliviergimenez/SCRtrapactivity/internal/scr"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleAggregate() *bias.Aggregate {
	sc := bias.Scenario{Onset: 5, PctInactive: 50}
	fitC := scr.Result{Density: 0.24, Abundance: 40.5, P0: 0.21, Sigma: 0.59, Converged: true}
	fitW := scr.Result{Density: 0.19, Abundance: 32.1, P0: 0.15, Sigma: 0.66, Converged: true}
	a := &bias.Aggregate{
		Scenario: sc,
		Trials: []bias.Trial{
			{Index: 0, RealizedN: 38, Fits: map[bias.Assumption]scr.Result{
				bias.Correct: fitC, bias.Incorrect: fitW,
			}},
		},
		SkippedEmpty: 1,
		Excluded:     map[bias.Assumption]int{bias.Correct: 0, bias.Incorrect: 2},
		Truth:        bias.Estimates{Density: 40.0 / 169, Abundance: 40, P0: 0.2, Sigma: 0.6},
		Bias: map[bias.Assumption]bias.Estimates{
			bias.Correct:   {Density: 1.4, Abundance: 1.3, P0: 5.0, Sigma: -1.7},
			bias.Incorrect: {Density: -19.7, Abundance: -19.8, P0: -25.0, Sigma: 10.0},
		},
		Elapsed: 3 * time.Second,
	}
	return a
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	s := openTemp(t)
	a := sampleAggregate()

	ok, err := s.HasScenario(a.Scenario)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveAggregate(a))

	ok, err = s.HasScenario(a.Scenario)
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err := s.BiasTable()
	require.NoError(t, err)
	require.Len(t, rows, 8)
	assert.Equal(t, a.Rows(), rows)
}

func TestSaveAggregateIsIdempotent(t *testing.T) {
	s := openTemp(t)
	a := sampleAggregate()
	require.NoError(t, s.SaveAggregate(a))

	// Re-save with changed values; the old scenario rows must be replaced,
	// not duplicated.
	a.Bias[bias.Correct] = bias.Estimates{Density: 2.0, Abundance: 2.0, P0: 2.0, Sigma: 2.0}
	require.NoError(t, s.SaveAggregate(a))

	rows, err := s.BiasTable()
	require.NoError(t, err)
	require.Len(t, rows, 8)
	for _, r := range rows {
		if r.Assumption == bias.Correct {
			assert.Equal(t, 2.0, r.BiasPct, "parameter %s", r.Parameter)
		}
	}
}

func TestMeta(t *testing.T) {
	s := openTemp(t)

	_, ok, err := s.GetMeta("seed")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetMeta("seed", "1234"))
	require.NoError(t, s.SetMeta("seed", "5678")) // upsert

	v, ok, err := s.GetMeta("seed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "5678", v)
}
