// Package store keeps a queryable history of runs and verdicts in a
// SQLite database, so past monitoring rounds can be inspected with
// standard SQLite tools.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrick/daywatch/pkg/models"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store persists run and verdict history.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	closed bool

	insertRun     *sql.Stmt
	insertVerdict *sql.Stmt
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  INTEGER NOT NULL,
		threshold   REAL NOT NULL,
		days        INTEGER NOT NULL,
		event_count INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS verdicts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL REFERENCES runs(id),
		round      INTEGER NOT NULL,
		day        INTEGER NOT NULL,
		score      REAL NOT NULL,
		alert      INTEGER NOT NULL,
		deviations TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_verdicts_run ON verdicts(run_id, round, day);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error
	s.insertRun, err = s.db.Prepare(
		`INSERT INTO runs (id, started_at, threshold, days, event_count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	s.insertVerdict, err = s.db.Prepare(
		`INSERT INTO verdicts (run_id, round, day, score, alert, deviations) VALUES (?, ?, ?, ?, ?, ?)`)
	return err
}

// BeginRun records a new run and returns its id.
func (s *Store) BeginRun(ctx context.Context, threshold float64, days, eventCount int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	id := uuid.NewString()
	_, err := s.insertRun.ExecContext(ctx, id, time.Now().Unix(), threshold, days, eventCount)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// RecordVerdicts persists one monitoring round's verdict sequence
// atomically.
func (s *Store) RecordVerdicts(ctx context.Context, runID string, round int, verdicts []models.DayVerdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt := tx.StmtContext(ctx, s.insertVerdict)
	for _, v := range verdicts {
		deviations, err := encodeDeviations(v.Deviations)
		if err != nil {
			tx.Rollback()
			return err
		}
		alert := 0
		if v.Alert {
			alert = 1
		}
		if _, err := stmt.ExecContext(ctx, runID, round, v.Day, v.Score, alert, deviations); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record verdict for day %d: %w", v.Day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit verdicts: %w", err)
	}
	return nil
}

// AlertCount returns how many alert verdicts a run has accumulated.
func (s *Store) AlertCount(ctx context.Context, runID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verdicts WHERE run_id = ? AND alert = 1`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.insertRun != nil {
		s.insertRun.Close()
	}
	if s.insertVerdict != nil {
		s.insertVerdict.Close()
	}
	return s.db.Close()
}

// encodeDeviations renders the deviation map as JSON. Infinite weighted
// deviations (zero-variance baseline) are stored as the string "inf",
// NaN as "nan"; encoding/json cannot represent either as a number.
func encodeDeviations(deviations map[string]float64) (string, error) {
	out := make(map[string]interface{}, len(deviations))
	for name, v := range deviations {
		switch {
		case math.IsInf(v, 1):
			out[name] = "inf"
		case math.IsNaN(v):
			out[name] = "nan"
		default:
			out[name] = v
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode deviations: %w", err)
	}
	return string(data), nil
}
