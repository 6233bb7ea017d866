// Package config holds the study configuration: generating parameters,
// fitter settings, the scenario grid, and output locations. Every value has
// a built-in default; a YAML file overrides defaults and command-line flags
// override the file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full tool configuration.
type Config struct {
	Sim    SimConfig    `yaml:"sim"`
	Fit    FitConfig    `yaml:"fit"`
	Sweep  SweepConfig  `yaml:"sweep"`
	Output OutputConfig `yaml:"output"`
}

// SimConfig are the generating parameters of each simulated survey.
type SimConfig struct {
	PopMean   float64 `yaml:"pop_mean"`
	P0        float64 `yaml:"p0"`
	Sigma     float64 `yaml:"sigma"`
	Occasions int     `yaml:"occasions"`
	XMax      float64 `yaml:"x_max"`
	YMax      float64 `yaml:"y_max"`
	TrapInset float64 `yaml:"trap_inset"`
}

// FitConfig configures the state-space discretization and trial retries.
type FitConfig struct {
	Buffer     float64 `yaml:"buffer"`
	Resolution float64 `yaml:"resolution"`
	MaxRetries int     `yaml:"max_retries"`
}

// SweepConfig is the scenario grid and execution plan.
type SweepConfig struct {
	Onsets      []int     `yaml:"onsets"`
	PctInactive []float64 `yaml:"pct_inactive"`
	Trials      int       `yaml:"trials"`
	Workers     int       `yaml:"workers"`
	Seed        uint64    `yaml:"seed"`
	Reference   string    `yaml:"reference"` // nominal or realized
}

// OutputConfig locates the results database and report directory.
type OutputConfig struct {
	DB  string `yaml:"db"`
	Dir string `yaml:"dir"`
}

// Default returns the study's default configuration.
func Default() Config {
	return Config{
		Sim: SimConfig{
			PopMean:   40,
			P0:        0.2,
			Sigma:     0.6,
			Occasions: 10,
			XMax:      13,
			YMax:      13,
			TrapInset: 3,
		},
		Fit: FitConfig{
			Buffer:     3,
			Resolution: 0.5,
			MaxRetries: 25,
		},
		Sweep: SweepConfig{
			Onsets:      []int{5, 6, 7, 8},
			PctInactive: []float64{30, 40, 50, 60, 70, 80},
			Trials:      100,
			Workers:     4,
			Seed:        1234,
			Reference:   "nominal",
		},
		Output: OutputConfig{
			DB:  "scrbias.db",
			Dir: "results",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects structurally invalid configurations before any trial
// runs.
func (c Config) Validate() error {
	s := c.Sim
	switch {
	case s.PopMean <= 0:
		return fmt.Errorf("config: sim.pop_mean must be positive, got %v", s.PopMean)
	case s.P0 <= 0 || s.P0 >= 1:
		return fmt.Errorf("config: sim.p0 must be in (0,1), got %v", s.P0)
	case s.Sigma <= 0:
		return fmt.Errorf("config: sim.sigma must be positive, got %v", s.Sigma)
	case s.Occasions < 1:
		return fmt.Errorf("config: sim.occasions must be at least 1, got %d", s.Occasions)
	case s.XMax <= 0 || s.YMax <= 0:
		return fmt.Errorf("config: sim bounds must be positive, got (%v, %v)", s.XMax, s.YMax)
	case s.TrapInset < 0 || 2*s.TrapInset > s.XMax || 2*s.TrapInset > s.YMax:
		return fmt.Errorf("config: sim.trap_inset %v does not fit inside (%v, %v)", s.TrapInset, s.XMax, s.YMax)
	}

	if c.Fit.Resolution <= 0 {
		return fmt.Errorf("config: fit.resolution must be positive, got %v", c.Fit.Resolution)
	}
	if c.Fit.Buffer < 0 {
		return fmt.Errorf("config: fit.buffer must be non-negative, got %v", c.Fit.Buffer)
	}
	if c.Fit.MaxRetries < 1 {
		return fmt.Errorf("config: fit.max_retries must be at least 1, got %d", c.Fit.MaxRetries)
	}

	w := c.Sweep
	if len(w.Onsets) == 0 || len(w.PctInactive) == 0 {
		return fmt.Errorf("config: sweep grid must not be empty")
	}
	for _, on := range w.Onsets {
		if on < 1 || on > s.Occasions+1 {
			return fmt.Errorf("config: sweep onset %d outside [1,%d]", on, s.Occasions+1)
		}
	}
	for _, pct := range w.PctInactive {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("config: sweep pct_inactive %v outside [0,100]", pct)
		}
	}
	if w.Trials < 1 {
		return fmt.Errorf("config: sweep.trials must be at least 1, got %d", w.Trials)
	}
	if w.Workers < 1 {
		return fmt.Errorf("config: sweep.workers must be at least 1, got %d", w.Workers)
	}
	if w.Reference != "nominal" && w.Reference != "realized" {
		return fmt.Errorf("config: sweep.reference must be nominal or realized, got %q", w.Reference)
	}
	return nil
}
