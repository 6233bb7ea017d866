package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oliviergimenez/SCRtrapactivity/internal/report"
	"github.com/oliviergimenez/SCRtrapactivity/internal/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the long-form bias table as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if v, _ := cmd.Flags().GetString("db"); v != "" {
				cfg.Output.DB = v
			}
			out, _ := cmd.Flags().GetString("out")

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

			w := os.Stdout
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return report.WriteCSV(w, rows)
		},
	}
	cmd.Flags().String("db", "", "Override results database path")
	cmd.Flags().String("out", "-", "Output file (- for stdout)")
	return cmd
}
