package main

import (
	"crypto/sha256"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/oliviergimenez/SCRtrapactivity/internal/config"
	"github.com/oliviergimenez/SCRtrapactivity/internal/store"
	"github.com/oliviergimenez/SCRtrapactivity/internal/sweep"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the full scenario grid",
		Long: `sweep runs the bias aggregator over the cartesian grid of onset
occasions and inactive-trap percentages, in parallel across scenarios.
Results land in the SQLite results database as each scenario completes, so
an interrupted sweep can pick up where it left off with --resume.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if v, _ := cmd.Flags().GetInt("trials"); v > 0 {
				cfg.Sweep.Trials = v
			}
			if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
				cfg.Sweep.Workers = v
			}
			if v, _ := cmd.Flags().GetString("db"); v != "" {
				cfg.Output.DB = v
			}
			resume, _ := cmd.Flags().GetBool("resume")

			st, err := store.Open(cfg.Output.DB)
			if err != nil {
				return err
			}
			defer st.Close()

			digest, err := configDigest(cfg)
			if err != nil {
				return err
			}
			if prev, ok, err := st.GetMeta("config_digest"); err != nil {
				return err
			} else if ok && resume && prev != digest {
				return fmt.Errorf("config changed since the stored sweep (digest %s != %s); drop %s or run without --resume",
					digest[:12], prev[:12], cfg.Output.DB)
			}
			if err := st.SetMeta("config_digest", digest); err != nil {
				return err
			}

			d := &sweep.Driver{
				Params:  biasParams(cfg),
				Onsets:  cfg.Sweep.Onsets,
				Pcts:    cfg.Sweep.PctInactive,
				Seed:    cfg.Sweep.Seed,
				Workers: cfg.Sweep.Workers,
				Resume:  resume,
				Store:   st,
				Log:     logger,
			}

			table, summary, err := d.Run(cmd.Context())
			if err != nil {
				return err
			}

			logger.Info("sweep finished",
				zap.Int("scenarios", summary.Scenarios),
				zap.Int("resumedFromStore", summary.Skipped),
				zap.Int("failed", summary.Failed),
				zap.Duration("elapsed", summary.Elapsed))
			fmt.Printf("sweep complete: %d scenarios (%d resumed, %d failed), %d bias rows in %s\n",
				summary.Scenarios, summary.Skipped, summary.Failed, len(table), cfg.Output.DB)
			return nil
		},
	}
	cmd.Flags().Bool("resume", false, "Skip scenarios already completed in the results database")
	cmd.Flags().Int("trials", 0, "Override trials per scenario")
	cmd.Flags().Int("workers", 0, "Override parallel scenario workers")
	cmd.Flags().String("db", "", "Override results database path")
	return cmd
}

// configDigest fingerprints the effective configuration, so --resume can
// refuse to mix results produced under different settings.
func configDigest(cfg config.Config) (string, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("fingerprinting config: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(raw)), nil
}
