package runs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/guest-lifecycle/pkg/models/store"
	"github.com/de-tools/guest-lifecycle/pkg/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var started = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleRun() *store.Run {
	last := started.AddDate(0, 0, -120)
	return &store.Run{
		Kind:        "inactive",
		StartedAt:   started,
		ElapsedMs:   1500,
		Threshold:   started.AddDate(0, 0, -90),
		Scanned:     3,
		Matched:     2,
		Excluded:    1,
		FailureType: "none",
		Candidates: []store.RunCandidate{
			{UserID: "u1", UserPrincipalName: "a_contoso.com#EXT#@tenant.onmicrosoft.com", AccountEnabled: true, LastActivity: &last},
			{UserID: "u2", UserPrincipalName: "b_fabrikam.com#EXT#@tenant.onmicrosoft.com", AccountEnabled: true},
		},
	}
}

func TestNewStore_NilDB(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}

func TestRunStore_AddRun_Mock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &runStore{db: db, newID: func() string { return "run-1" }}
	run := sampleRun()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").
		WithArgs("run-1", "inactive", "2025-06-01T12:00:00.000000000Z", int64(1500),
			"2025-03-03T12:00:00.000000000Z", 3, 2, 1, "none", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep := mock.ExpectPrepare("INSERT OR IGNORE INTO run_candidates")
	prep.ExpectExec().
		WithArgs("run-1", "u1", sqlmock.AnyArg(), "", true, "2025-02-01T12:00:00.000000000Z").
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs("run-1", "u2", sqlmock.AnyArg(), "", true, nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	id, err := s.AddRun(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)
	assert.Equal(t, "run-1", run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStore_AddRun_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &runStore{db: db, newID: func() string { return "run-1" }}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(1, 1))
	prep := mock.ExpectPrepare("INSERT OR IGNORE INTO run_candidates")
	prep.ExpectExec().WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	run := sampleRun()
	_, err = s.AddRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert candidate u1")
	assert.Empty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStore_AddRun_JoinsContextTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &runStore{db: db, newID: func() string { return "run-1" }}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	run := sampleRun()
	run.Candidates = nil
	_, err = s.AddRun(sqlite.WithTransaction(context.Background(), tx), run)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func setupStore(t *testing.T) Store {
	t.Helper()
	db, err := sqlite.NewDB(sqlite.Settings{DbPath: filepath.Join(t.TempDir(), "runs.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func TestRunStore_RoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	run := sampleRun()
	id, err := s.AddRun(ctx, run)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "inactive", got.Kind)
	assert.True(t, started.Equal(got.StartedAt))
	assert.True(t, run.Threshold.Equal(got.Threshold))
	assert.Equal(t, int64(1500), got.ElapsedMs)
	assert.Equal(t, 2, got.Matched)
	assert.Nil(t, got.Error)

	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "u1", got.Candidates[0].UserID)
	require.NotNil(t, got.Candidates[0].LastActivity)
	assert.True(t, run.Candidates[0].LastActivity.Equal(*got.Candidates[0].LastActivity))
	assert.Nil(t, got.Candidates[1].LastActivity)
}

func TestRunStore_AddRun_RepeatedCandidate(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	run := sampleRun()
	run.Candidates = append(run.Candidates, run.Candidates[0])

	id, err := s.AddRun(ctx, run)
	require.NoError(t, err)

	got, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "u1", got.Candidates[0].UserID)
	assert.Equal(t, "u2", got.Candidates[1].UserID)
}

func TestRunStore_ListRuns(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	msg := "retrieval partially failed"
	for i, kind := range []string{"disable", "inactive", "invites"} {
		run := sampleRun()
		run.Kind = kind
		run.StartedAt = started.Add(time.Duration(i) * time.Minute)
		run.Candidates = nil
		if kind == "invites" {
			run.FailureType = "partially"
			run.Error = &msg
		}
		_, err := s.AddRun(ctx, run)
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "invites", runs[0].Kind)
	require.NotNil(t, runs[0].Error)
	assert.Equal(t, msg, *runs[0].Error)
	assert.Equal(t, "inactive", runs[1].Kind)
	assert.Nil(t, runs[1].Candidates)

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRunStore_GetRun_NotFound(t *testing.T) {
	s := setupStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
