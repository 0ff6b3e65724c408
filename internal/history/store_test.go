package history_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"calmatch/internal/history"
	"calmatch/internal/testsupport"
)

func TestBeginFinishGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()
	assert.Equal(t, cfg.HistoryPath(), store.Path())

	run := &history.Run{ID: "0b5c1f7e-run", SampleFolder: "/raw/sample/scan1"}
	require.NoError(t, store.Begin(ctx, run))
	assert.Equal(t, history.StatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, history.StatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
	assert.Zero(t, got.Duration())

	run.Status = history.StatusIncomplete
	run.SampleCount = 12
	run.OBCandidates = 4
	run.MatchedOB = 2
	run.ConfigurationCount = 1
	run.DiagnosticsPath = "/diag/scan1_sample_ob_dc_metadata.json"
	require.NoError(t, store.Finish(ctx, run))

	got, err = store.Get(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, history.StatusIncomplete, got.Status)
	assert.Equal(t, 12, got.SampleCount)
	assert.Equal(t, 4, got.OBCandidates)
	assert.Equal(t, 2, got.MatchedOB)
	assert.Equal(t, 0, got.MatchedDC)
	assert.Equal(t, run.DiagnosticsPath, got.DiagnosticsPath)
	assert.Empty(t, got.ErrorMessage)
	require.NotNil(t, got.FinishedAt)
	assert.GreaterOrEqual(t, got.Duration(), time.Duration(0))
}

func TestGetByPrefix(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, &history.Run{ID: "abc-111", SampleFolder: "a"}))
	require.NoError(t, store.Begin(ctx, &history.Run{ID: "abd-222", SampleFolder: "b"}))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc-111", got.ID)

	_, err = store.Get(ctx, "ab")
	assert.Error(t, err)

	missing, err := store.Get(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListNewestFirst(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		run := &history.Run{ID: id, SampleFolder: id, StartedAt: base.Add(time.Duration(i) * 500 * time.Millisecond)}
		require.NoError(t, store.Begin(ctx, run))
	}

	runs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestFinishUnknownRun(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	err := store.Finish(context.Background(), &history.Run{ID: "missing", Status: history.StatusFailed})
	assert.Error(t, err)
}

func TestBeginRequiresID(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	assert.Error(t, store.Begin(context.Background(), &history.Run{SampleFolder: "x"}))
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err := sql.Open("sqlite", cfg.HistoryPath())
	require.NoError(t, err)
	_, err = db.Exec("UPDATE schema_version SET version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = history.Open(cfg)
	assert.ErrorIs(t, err, history.ErrSchemaMismatch)
}
