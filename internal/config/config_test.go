package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 40.0, cfg.Sim.PopMean)
	assert.Equal(t, 0.2, cfg.Sim.P0)
	assert.Equal(t, 0.6, cfg.Sim.Sigma)
	assert.Equal(t, 10, cfg.Sim.Occasions)
	assert.Equal(t, []int{5, 6, 7, 8}, cfg.Sweep.Onsets)
	assert.Equal(t, []float64{30, 40, 50, 60, 70, 80}, cfg.Sweep.PctInactive)
	assert.Equal(t, "nominal", cfg.Sweep.Reference)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	body := `
sim:
  pop_mean: 60
  sigma: 0.8
sweep:
  trials: 10
  reference: realized
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 60.0, cfg.Sim.PopMean)
	assert.Equal(t, 0.8, cfg.Sim.Sigma)
	assert.Equal(t, 10, cfg.Sweep.Trials)
	assert.Equal(t, "realized", cfg.Sweep.Reference)
	// Untouched values keep their defaults.
	assert.Equal(t, 0.2, cfg.Sim.P0)
	assert.Equal(t, []int{5, 6, 7, 8}, cfg.Sweep.Onsets)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	mutations := map[string]func(*Config){
		"pop mean":       func(c *Config) { c.Sim.PopMean = 0 },
		"p0 high":        func(c *Config) { c.Sim.P0 = 1 },
		"sigma":          func(c *Config) { c.Sim.Sigma = -1 },
		"occasions":      func(c *Config) { c.Sim.Occasions = 0 },
		"bounds":         func(c *Config) { c.Sim.XMax = 0 },
		"inset":          func(c *Config) { c.Sim.TrapInset = 7 },
		"resolution":     func(c *Config) { c.Fit.Resolution = 0 },
		"buffer":         func(c *Config) { c.Fit.Buffer = -1 },
		"retries":        func(c *Config) { c.Fit.MaxRetries = 0 },
		"empty grid":     func(c *Config) { c.Sweep.Onsets = nil },
		"onset range":    func(c *Config) { c.Sweep.Onsets = []int{12} },
		"pct range":      func(c *Config) { c.Sweep.PctInactive = []float64{101} },
		"trials":         func(c *Config) { c.Sweep.Trials = 0 },
		"workers":        func(c *Config) { c.Sweep.Workers = 0 },
		"reference":      func(c *Config) { c.Sweep.Reference = "last-trial" },
	}
	for name, mutate := range mutations {
		cfg := Default()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
