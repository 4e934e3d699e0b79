// Package ledger records batch runs and their per-file results in sqlite.
//
// The ledger is optional (ledger.path); the orchestrator calls it through
// batch.Recorder and never lets a ledger failure change a file's outcome.
package ledger

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/tpu/db"
	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/logger"
	"github.com/teranos/tpu/workflow"
)

// Store writes runs and results to the ledger database
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Run is one recorded batch
type Run struct {
	ID        string     `json:"id"`
	Service   string     `json:"service"`
	Workers   int        `json:"workers"`
	Files     int        `json:"files"`
	Started   time.Time  `json:"started"`
	Finished  *time.Time `json:"finished,omitempty"` // nil while running or after a crash
	Succeeded int        `json:"succeeded"`
	Skipped   int        `json:"skipped"`
	Failed    int        `json:"failed"`
}

// Open opens (and migrates) the ledger database at path
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	conn, err := db.OpenWithMigrations(path, log)
	if err != nil {
		return nil, errors.WithHint(err, "check ledger.path")
	}
	return New(conn, log), nil
}

// New wraps an already migrated database
func New(conn *sql.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: conn, logger: logger.OrNop(log).Named("ledger")}
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun inserts the run row
func (s *Store) BeginRun(ctx context.Context, runID, service string, workers, files int, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, service, workers, files, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, service, workers, files, started.UTC())
	if err != nil {
		return s.wrap(err, "begin run %s", runID)
	}
	s.logger.Debugw("Run recorded", "run_id", runID, "files", files)
	return nil
}

// RecordResult inserts one workflow result of runID
func (s *Store) RecordResult(ctx context.Context, runID string, res workflow.Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (run_id, seq, file, outcome, category, message, resource_id, output, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Seq, res.File, string(res.Outcome), res.Category, res.Message,
		res.ResourceID, res.Output, res.Duration.Milliseconds())
	if err != nil {
		return s.wrap(err, "record result %s of run %s", res.File, runID)
	}
	return nil
}

// FinishRun stores the completion time and the outcome counts of runID
func (s *Store) FinishRun(ctx context.Context, runID string, finished time.Time, succeeded, skipped, failed int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, succeeded = ?, skipped = ?, failed = ? WHERE id = ?`,
		finished.UTC(), succeeded, skipped, failed, runID)
	if err != nil {
		return s.wrap(err, "finish run %s", runID)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("run %s", runID)
	}
	return nil
}

// Runs returns the most recent runs, newest first
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, service, workers, files, started_at, finished_at, succeeded, skipped, failed
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, s.wrap(err, "query runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Service, &r.Workers, &r.Files, &r.Started, &finished,
			&r.Succeeded, &r.Skipped, &r.Failed); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		if finished.Valid {
			r.Finished = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, errors.Wrap(rows.Err(), "iterate runs")
}

// Results returns the recorded results of runID in completion order
func (s *Store) Results(ctx context.Context, runID string) ([]workflow.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, file, outcome, category, message, resource_id, output, duration_ms
		 FROM results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, s.wrap(err, "query results of run %s", runID)
	}
	defer rows.Close()

	var results []workflow.Result
	for rows.Next() {
		var res workflow.Result
		var outcome string
		var durationMS int64
		if err := rows.Scan(&res.Seq, &res.File, &outcome, &res.Category, &res.Message,
			&res.ResourceID, &res.Output, &durationMS); err != nil {
			return nil, errors.Wrap(err, "scan result")
		}
		res.Outcome = workflow.Outcome(outcome)
		res.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, res)
	}
	return results, errors.Wrap(rows.Err(), "iterate results")
}

func (s *Store) wrap(err error, format string, args ...interface{}) error {
	if db.IsDatabaseClosed(err) {
		err = errors.Mark(err, db.ErrDatabaseClosed)
	}
	return errors.Wrapf(err, format, args...)
}
