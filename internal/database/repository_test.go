package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drallgood/notion-book-sync/internal/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(DatabaseConfig{Type: DatabaseTypeSQLite, Path: ":memory:"}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Health())
	return NewRepository(db, logger.Nop())
}

func TestOpen_CreatesSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	db, err := Open(DatabaseConfig{Type: DatabaseTypeSQLite, Path: path}, logger.Nop())
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, path)
	assert.Equal(t, path, db.Config().Path)
	assert.True(t, db.GetDB().Migrator().HasTable(&Run{}))
	assert.True(t, db.GetDB().Migrator().HasTable(&RecordResult{}))
}

func TestRepository_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	run, err := repo.StartRun(ctx, ModeBulk, false)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())

	written := &RecordResult{PageID: "p1", Title: "Momo", ISBN: "9783522202107", Status: StatusWritten, Stage: "written"}
	written.SetProperties([]string{"Verlag", "Seiten"})
	require.NoError(t, repo.AddResult(ctx, run, written))
	require.NoError(t, repo.AddResult(ctx, run, &RecordResult{PageID: "p2", Status: StatusFailed, Stage: "validated", ErrorKind: "schema_mismatch", ErrorMessage: "bad"}))
	require.NoError(t, repo.AddResult(ctx, run, &RecordResult{PageID: "p3", Status: StatusUnchanged, Stage: "patched"}))

	require.NoError(t, repo.FinishRun(ctx, run, RunFinished, nil))

	loaded, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunFinished, loaded.Status)
	assert.NotNil(t, loaded.FinishedAt)
	assert.Equal(t, 3, loaded.Total)
	assert.Equal(t, 1, loaded.Written)
	assert.Equal(t, 1, loaded.Failed)
	assert.Equal(t, 1, loaded.Unchanged)

	require.Len(t, loaded.Results, 3)
	assert.Equal(t, "p1", loaded.Results[0].PageID)
	assert.Equal(t, []string{"Verlag", "Seiten"}, loaded.Results[0].PropertyList())
	assert.Equal(t, "schema_mismatch", loaded.Results[1].ErrorKind)
	assert.Nil(t, loaded.Results[2].PropertyList())
}

func TestRepository_FinishRunRecordsError(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	run, err := repo.StartRun(ctx, ModeSingle, true)
	require.NoError(t, err)
	require.NoError(t, repo.FinishRun(ctx, run, RunAborted, errors.New("boom")))

	loaded, err := repo.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunAborted, loaded.Status)
	assert.Equal(t, "boom", loaded.Error)
	assert.True(t, loaded.DryRun)
}

func TestRepository_ListRuns(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := repo.StartRun(ctx, ModeBulk, false)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	all, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, r := range all {
		assert.Contains(t, ids, r.ID)
	}
}

func TestRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = repo.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRepository_DryRunResultsAreNotWritten(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	run, err := repo.StartRun(ctx, ModeBulk, true)
	require.NoError(t, err)
	require.NoError(t, repo.AddResult(ctx, run, &RecordResult{PageID: "p1", Status: StatusDryRun, Stage: "patched"}))

	loaded, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Total)
	assert.Equal(t, 0, loaded.Written)
	assert.Equal(t, 1, loaded.Previewed)
	assert.Equal(t, 0, loaded.Unchanged)
}

func TestRepository_AddResultKeepsTotalsOnFailure(t *testing.T) {
	ctx := context.Background()
	db, err := Open(DatabaseConfig{Type: DatabaseTypeSQLite, Path: ":memory:"}, logger.Nop())
	require.NoError(t, err)
	repo := NewRepository(db, logger.Nop())

	run, err := repo.StartRun(ctx, ModeBulk, false)
	require.NoError(t, err)
	require.NoError(t, repo.AddResult(ctx, run, &RecordResult{PageID: "p1", Status: StatusWritten}))
	require.NoError(t, db.Close())

	err = repo.AddResult(ctx, run, &RecordResult{PageID: "p2", Status: StatusFailed})
	require.Error(t, err)
	assert.Equal(t, 1, run.Total)
	assert.Equal(t, 1, run.Written)
	assert.Equal(t, 0, run.Failed)
}
