// File path: internal/report/store.go

// Package report persists a per-run audit trail of every remote
// operation the sync attempted, so a run can be reviewed after the
// fact without re-reading the log file.
package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nyparchive/cortex-sync/internal/common"
	"github.com/nyparchive/cortex-sync/internal/cortex"
)

const schema = `
CREATE TABLE IF NOT EXISTS operations (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL,
    entity      TEXT NOT NULL,
    identifier  TEXT NOT NULL,
    action      TEXT NOT NULL,
    attempts    INTEGER NOT NULL,
    ok          INTEGER NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_operations_run ON operations(run_id);
`

// Store wraps a pooled sqlx.DB connection to the audit database.
type Store struct {
	db    *sqlx.DB
	runID string
}

// Open constructs a Store backed by the SQLite database at the
// provided path, migrating the schema on first use. The run ID tags
// every row written through this Store.
func Open(path, runID string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("report path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve report path: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", abs)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open report db: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping report db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate report db: %w", err)
	}
	return &Store{db: db, runID: runID}, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordOutcome stores one attempted remote operation. Write failures
// are logged rather than returned; the audit trail must never block
// the sync itself.
func (s *Store) RecordOutcome(ctx context.Context, outcome cortex.Outcome) {
	if s == nil || s.db == nil {
		return
	}
	errText := ""
	if outcome.Err != nil {
		errText = outcome.Err.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (run_id, entity, identifier, action, attempts, ok, error)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID, outcome.Entity, outcome.ID, outcome.Desc, outcome.Attempts, outcome.OK(), errText)
	if err != nil {
		common.Logger().Error("report: record outcome failed", "entity", outcome.Entity, "id", outcome.ID, "error", err)
	}
}

// EntitySummary aggregates outcomes for one entity type within a run.
type EntitySummary struct {
	Entity    string `db:"entity"`
	Succeeded int    `db:"succeeded"`
	Failed    int    `db:"failed"`
}

// Summary returns per-entity success and failure counts for a run.
func (s *Store) Summary(ctx context.Context, runID string) ([]EntitySummary, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("report store not open")
	}
	var rows []EntitySummary
	err := s.db.SelectContext(ctx, &rows,
		`SELECT entity,
                SUM(CASE WHEN ok THEN 1 ELSE 0 END) AS succeeded,
                SUM(CASE WHEN ok THEN 0 ELSE 1 END) AS failed
         FROM operations WHERE run_id = ? GROUP BY entity ORDER BY entity`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("summarize run %s: %w", runID, err)
	}
	return rows, nil
}

// RunID returns the identifier rows from this Store are tagged with.
func (s *Store) RunID() string {
	if s == nil {
		return ""
	}
	return s.runID
}
