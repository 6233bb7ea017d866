// Package store persists sweep results in a SQLite database so a multi-hour
// sweep can checkpoint at scenario granularity and resume after interruption.
package store

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/oliviergimenez/SCRtrapactivity/internal/bias"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenarios (
	onset              INTEGER NOT NULL,
	pct_inactive       REAL    NOT NULL,
	trials             INTEGER NOT NULL,
	skipped_empty      INTEGER NOT NULL,
	excluded_correct   INTEGER NOT NULL,
	excluded_incorrect INTEGER NOT NULL,
	elapsed_ms         INTEGER NOT NULL,
	completed_at       TEXT    NOT NULL,
	PRIMARY KEY (onset, pct_inactive)
);
CREATE TABLE IF NOT EXISTS trial_estimates (
	onset        INTEGER NOT NULL,
	pct_inactive REAL    NOT NULL,
	trial        INTEGER NOT NULL,
	assumption   TEXT    NOT NULL,
	density      REAL    NOT NULL,
	abundance    REAL    NOT NULL,
	p0           REAL    NOT NULL,
	sigma        REAL    NOT NULL,
	converged    INTEGER NOT NULL,
	realized_n   INTEGER NOT NULL,
	PRIMARY KEY (onset, pct_inactive, trial, assumption)
);
CREATE TABLE IF NOT EXISTS bias (
	onset        INTEGER NOT NULL,
	pct_inactive REAL    NOT NULL,
	assumption   TEXT    NOT NULL,
	parameter    TEXT    NOT NULL,
	bias_pct     REAL    NOT NULL,
	PRIMARY KEY (onset, pct_inactive, assumption, parameter)
);
CREATE TABLE IF NOT EXISTS sweep_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store wraps the results database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the results database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// HasScenario reports whether a completed aggregate exists for the scenario.
func (s *Store) HasScenario(sc bias.Scenario) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM scenarios WHERE onset = ? AND pct_inactive = ?`,
		sc.Onset, sc.PctInactive,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: query scenario %v: %w", sc, err)
	}
	return n > 0, nil
}

// SaveAggregate writes one scenario's trials and bias rows, replacing any
// previous run of the same scenario. The write is transactional: a resumed
// sweep never sees a half-saved scenario.
func (s *Store) SaveAggregate(a *bias.Aggregate) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	for _, tbl := range []string{"scenarios", "trial_estimates", "bias"} {
		if _, err := tx.Exec(
			fmt.Sprintf(`DELETE FROM %s WHERE onset = ? AND pct_inactive = ?`, tbl),
			a.Scenario.Onset, a.Scenario.PctInactive,
		); err != nil {
			return fmt.Errorf("store: clear %s: %w", tbl, err)
		}
	}

	for _, t := range a.Trials {
		for _, asm := range bias.Assumptions {
			r, ok := t.Fits[asm]
			if !ok {
				continue
			}
			if _, err := tx.Exec(
				`INSERT INTO trial_estimates
				 (onset, pct_inactive, trial, assumption, density, abundance, p0, sigma, converged, realized_n)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				a.Scenario.Onset, a.Scenario.PctInactive, t.Index, string(asm),
				r.Density, r.Abundance, r.P0, r.Sigma, boolInt(r.Converged), t.RealizedN,
			); err != nil {
				return fmt.Errorf("store: insert trial %d: %w", t.Index, err)
			}
		}
	}

	for _, row := range a.Rows() {
		if _, err := tx.Exec(
			`INSERT INTO bias (onset, pct_inactive, assumption, parameter, bias_pct)
			 VALUES (?, ?, ?, ?, ?)`,
			row.Onset, row.PctInactive, string(row.Assumption), row.Parameter, row.BiasPct,
		); err != nil {
			return fmt.Errorf("store: insert bias row: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO scenarios
		 (onset, pct_inactive, trials, skipped_empty, excluded_correct, excluded_incorrect, elapsed_ms, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Scenario.Onset, a.Scenario.PctInactive, len(a.Trials), a.SkippedEmpty,
		a.Excluded[bias.Correct], a.Excluded[bias.Incorrect],
		a.Elapsed.Milliseconds(), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("store: insert scenario: %w", err)
	}

	return tx.Commit()
}

// BiasTable loads the full long-form bias table, ordered by scenario,
// assumption, and canonical parameter order.
func (s *Store) BiasTable() ([]bias.Row, error) {
	rows, err := s.db.Query(
		`SELECT onset, pct_inactive, assumption, parameter, bias_pct
		 FROM bias`)
	if err != nil {
		return nil, fmt.Errorf("store: load bias table: %w", err)
	}
	defer rows.Close()

	var out []bias.Row
	for rows.Next() {
		var r bias.Row
		var asm string
		if err := rows.Scan(&r.Onset, &r.PctInactive, &asm, &r.Parameter, &r.BiasPct); err != nil {
			return nil, fmt.Errorf("store: scan bias row: %w", err)
		}
		r.Assumption = bias.Assumption(asm)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	paramOrder := map[string]int{}
	for i, p := range bias.Parameters {
		paramOrder[p] = i
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Onset != b.Onset {
			return a.Onset < b.Onset
		}
		if a.PctInactive != b.PctInactive {
			return a.PctInactive < b.PctInactive
		}
		if a.Assumption != b.Assumption {
			return a.Assumption < b.Assumption
		}
		return paramOrder[a.Parameter] < paramOrder[b.Parameter]
	})
	return out, nil
}

// SetMeta stores one sweep metadata value (seed, duration, config digest).
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO sweep_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("store: set meta %s: %w", key, err)
	}
	return nil
}

// GetMeta reads one metadata value; ok is false when the key is absent.
func (s *Store) GetMeta(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM sweep_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get meta %s: %w", key, err)
	}
	return value, true, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
