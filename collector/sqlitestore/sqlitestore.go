// Package sqlitestore is a collector.Sink backed by SQLite, for runs that
// need their time series durable beyond the process's lifetime (spec.md
// 4.6, "Supplemented"). Adapted from a SQLite-backed session store
// session/action log, generalized from game-session rows to the
// kernel's (run, time, place|transition, value) shape and switched to
// modernc.org/sqlite's pure-Go driver so the rest of the module stays
// cgo-free.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a collector.Sink persisting every recorded tick to SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if absent) the SQLite database at path and applies
// the schema migration.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS place_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		t REAL NOT NULL,
		place TEXT NOT NULL,
		tokens REAL NOT NULL,
		recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transition_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		t REAL NOT NULL,
		transition_name TEXT NOT NULL,
		firing_count REAL NOT NULL,
		recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_place_records_run ON place_records(run_id, t);
	CREATE INDEX IF NOT EXISTS idx_transition_records_run ON transition_records(run_id, t);
	`
	_, err := s.db.Exec(schema)
	return err
}

// DB returns the underlying connection for ad-hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

// Record implements collector.Sink: one row per place and per transition
// for this tick, all in a single transaction.
func (s *Store) Record(runID string, t float64, places, transitions map[string]float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}

	now := time.Now().UTC()
	for name, tokens := range places {
		if _, err := tx.Exec(
			`INSERT INTO place_records (run_id, t, place, tokens, recorded_at) VALUES (?, ?, ?, ?, ?)`,
			runID, t, name, tokens, now,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlitestore: insert place record: %w", err)
		}
	}
	for name, count := range transitions {
		if _, err := tx.Exec(
			`INSERT INTO transition_records (run_id, t, transition_name, firing_count, recorded_at) VALUES (?, ?, ?, ?, ?)`,
			runID, t, name, count, now,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlitestore: insert transition record: %w", err)
		}
	}
	return tx.Commit()
}

// Close implements collector.Sink.
func (s *Store) Close() error {
	return s.db.Close()
}

// PlaceSeries returns the recorded (t, tokens) pairs for one place in a
// run, ordered by time.
func (s *Store) PlaceSeries(runID, place string) ([]float64, []float64, error) {
	rows, err := s.db.Query(
		`SELECT t, tokens FROM place_records WHERE run_id = ? AND place = ? ORDER BY t`,
		runID, place,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlitestore: query place series: %w", err)
	}
	defer rows.Close()

	var times, values []float64
	for rows.Next() {
		var t, v float64
		if err := rows.Scan(&t, &v); err != nil {
			return nil, nil, fmt.Errorf("sqlitestore: scan place series: %w", err)
		}
		times = append(times, t)
		values = append(values, v)
	}
	return times, values, rows.Err()
}

// TransitionSeries returns the recorded (t, firing_count) pairs for one
// transition in a run, ordered by time.
func (s *Store) TransitionSeries(runID, transition string) ([]float64, []float64, error) {
	rows, err := s.db.Query(
		`SELECT t, firing_count FROM transition_records WHERE run_id = ? AND transition_name = ? ORDER BY t`,
		runID, transition,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlitestore: query transition series: %w", err)
	}
	defer rows.Close()

	var times, values []float64
	for rows.Next() {
		var t, v float64
		if err := rows.Scan(&t, &v); err != nil {
			return nil, nil, fmt.Errorf("sqlitestore: scan transition series: %w", err)
		}
		times = append(times, t)
		values = append(values, v)
	}
	return times, values, rows.Err()
}

// RunIDs returns the distinct run ids persisted so far, most recent first.
func (s *Store) RunIDs() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT run_id FROM place_records GROUP BY run_id ORDER BY MAX(recorded_at) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query run ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
