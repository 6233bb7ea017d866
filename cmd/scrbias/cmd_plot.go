package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oliviergimenez/SCRtrapactivity/internal/bias"
	"github.com/oliviergimenez/SCRtrapactivity/internal/report"
	"github.com/oliviergimenez/SCRtrapactivity/internal/store"
)

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render bias heat maps and line charts from sweep results",
		Long: `plot reads the results database and writes, per parameter, a heat map of
relative bias over the scenario grid for the incorrect (full-activity)
assumption, plus a bias-versus-onset line chart. Pass --assumption correct
to plot the correctly specified fits instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if v, _ := cmd.Flags().GetString("db"); v != "" {
				cfg.Output.DB = v
			}
			if v, _ := cmd.Flags().GetString("dir"); v != "" {
				cfg.Output.Dir = v
			}
			asmFlag, _ := cmd.Flags().GetString("assumption")
			asm := bias.Assumption(asmFlag)
			if asm != bias.Correct && asm != bias.Incorrect {
				return fmt.Errorf("unknown assumption %q", asmFlag)
			}

			st, err := store.Open(cfg.Output.DB)
			if err != nil {
				return err
			}
			defer st.Close()

			rows, err := st.BiasTable()
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("no results in %s; run a sweep first", cfg.Output.DB)
			}

			if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", cfg.Output.Dir, err)
			}

			for _, param := range bias.Parameters {
				hm := filepath.Join(cfg.Output.Dir, fmt.Sprintf("bias_%s_%s_heatmap.png", param, asm))
				if err := report.Heatmap(rows, param, asm, hm); err != nil {
					return err
				}
				lc := filepath.Join(cfg.Output.Dir, fmt.Sprintf("bias_%s_%s_lines.png", param, asm))
				if err := report.LineChart(rows, param, asm, lc); err != nil {
					return err
				}
				logger.Info("figures written", zap.String("parameter", param),
					zap.String("heatmap", hm), zap.String("lines", lc))
			}
			return nil
		},
	}
	cmd.Flags().String("db", "", "Override results database path")
	cmd.Flags().String("dir", "", "Override figure output directory")
	cmd.Flags().String("assumption", string(bias.Incorrect), "Which fits to plot: correct or incorrect")
	return cmd
}
