// Package report renders sweep results: long-form CSV, per-parameter bias
// heat maps, and bias-versus-onset line charts.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/oliviergimenez/SCRtrapactivity/internal/bias"
)

// CSVHeader is the column layout of the long-form export.
var CSVHeader = []string{"onset", "pct_inactive", "assumption", "parameter", "bias_pct"}

// WriteCSV writes the long-form bias table, one row per
// scenario × assumption × parameter.
func WriteCSV(w io.Writer, rows []bias.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("report: write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Onset),
			strconv.FormatFloat(r.PctInactive, 'g', -1, 64),
			string(r.Assumption),
			r.Parameter,
			strconv.FormatFloat(r.BiasPct, 'f', 4, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("report: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
