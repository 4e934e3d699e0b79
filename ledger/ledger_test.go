package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/tpu/db"
	"github.com/teranos/tpu/errors"
	tputest "github.com/teranos/tpu/internal/testing"
	"github.com/teranos/tpu/pulse/batch"
	"github.com/teranos/tpu/workflow"
)

var _ batch.Recorder = (*Store)(nil)

func newStore(t *testing.T) *Store {
	t.Helper()
	conn := tputest.CreateTestDB(t)
	require.NoError(t, db.Migrate(conn, nil))
	return New(conn, nil)
}

func TestStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.BeginRun(ctx, "run-1", "tpu", 2, 2, started))
	require.NoError(t, s.RecordResult(ctx, "run-1", workflow.Result{
		File: "a.xml", Seq: 1, Outcome: workflow.OutcomeSuccess,
		Message: "'a.xml' transformed. results in '/out/dm.1.rdf.xml'", Duration: 1500 * time.Millisecond,
		ResourceID: "res-1", Output: "/out/dm.1.rdf.xml",
	}))
	require.NoError(t, s.RecordResult(ctx, "run-1", workflow.Result{
		File: "b.xml", Seq: 2, Outcome: workflow.OutcomeFailed, Category: errors.CategoryRemoteCallFailed,
		Message: workflow.FailureMessage("b.xml", errors.CategoryRemoteCallFailed), Duration: 20 * time.Millisecond,
	}))

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Finished, "unfinished run has no completion time")

	require.NoError(t, s.FinishRun(ctx, "run-1", started.Add(2*time.Second), 1, 0, 1))

	runs, err = s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "tpu", run.Service)
	assert.Equal(t, 2, run.Workers)
	assert.Equal(t, 2, run.Files)
	assert.True(t, started.Equal(run.Started))
	require.NotNil(t, run.Finished)
	assert.True(t, started.Add(2*time.Second).Equal(*run.Finished))
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 0, run.Skipped)
	assert.Equal(t, 1, run.Failed)

	results, err := s.Results(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a.xml", results[0].File)
	assert.Equal(t, workflow.OutcomeSuccess, results[0].Outcome)
	assert.Equal(t, 1500*time.Millisecond, results[0].Duration)
	assert.Equal(t, "res-1", results[0].ResourceID)
	assert.Equal(t, "b.xml", results[1].File)
	assert.Equal(t, errors.CategoryRemoteCallFailed, results[1].Category)
	assert.True(t, results[1].Failed())
}

func TestStore_RunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "middle", "new"} {
		require.NoError(t, s.BeginRun(ctx, id, "tpu", 1, 0, base.Add(time.Duration(i)*time.Hour)))
	}

	runs, err := s.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "middle", runs[1].ID)
}

func TestStore_ResultNeedsRun(t *testing.T) {
	s := newStore(t)

	err := s.RecordResult(context.Background(), "missing", workflow.Result{File: "a.xml", Seq: 1, Outcome: workflow.OutcomeSuccess})
	require.Error(t, err, "foreign key should reject results of unknown runs")
	assert.Contains(t, err.Error(), "record result a.xml of run missing")
}

func TestStore_FinishUnknownRun(t *testing.T) {
	s := newStore(t)

	err := s.FinishRun(context.Background(), "missing", time.Now(), 0, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestStore_ClosedDatabase(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Close())

	err := s.BeginRun(context.Background(), "run-1", "tpu", 1, 1, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrDatabaseClosed))
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.BeginRun(context.Background(), "run-1", "tpu", 1, 0, time.Now()))
	require.NoError(t, s.Close())

	// Reopening keeps earlier runs and skips applied migrations
	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/invalid/nonexistent/path/ledger.db", nil)
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "ledger.path")
}

func TestStore_SQL(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	s := New(conn, nil)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO runs").
		WithArgs("run-1", "tpu", 4, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO results").
		WithArgs("run-1", 1, "a.xml", "skipped", "", "'a.xml' ingested (no transformation).", "res-1", "", int64(250)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE runs SET finished_at").
		WithArgs(sqlmock.AnyArg(), 0, 1, 0, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.BeginRun(ctx, "run-1", "tpu", 4, 3, time.Now()))
	require.NoError(t, s.RecordResult(ctx, "run-1", workflow.Result{
		File: "a.xml", Seq: 1, Outcome: workflow.OutcomeSkipped,
		Message: "'a.xml' ingested (no transformation).", ResourceID: "res-1", Duration: 250 * time.Millisecond,
	}))
	require.NoError(t, s.FinishRun(ctx, "run-1", time.Now(), 0, 1, 0))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SQLErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	s := New(conn, nil)

	mock.ExpectExec("INSERT INTO runs").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectQuery("SELECT id, service").WillReturnError(errors.New("no such table: runs"))

	err = s.BeginRun(context.Background(), "run-1", "tpu", 1, 1, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin run run-1")
	assert.Contains(t, err.Error(), "disk I/O error")

	_, err = s.Runs(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query runs")

	assert.NoError(t, mock.ExpectationsWereMet())
}
