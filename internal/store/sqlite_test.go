package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, EnsureSchema(db))
	return New(db)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, EnsureSchema(db))
	require.NoError(t, EnsureSchema(db))

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)
}

func TestEnsureSchema_PreservesExistingData(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, EnsureSchema(db))
	s := New(db)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, PendingRecordings, "a", []byte(`{"id":"a"}`)))

	// reopening at the same or a newer version must not destroy containers
	require.NoError(t, EnsureSchema(db))
	got, err := s.Get(ctx, PendingRecordings, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a"}`, string(got))
}

func TestAdd_DuplicateKey(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, PendingRecordings, "a", []byte("1")))
	err := s.Add(ctx, PendingRecordings, "a", []byte("2"))
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// the original record is untouched
	got, err := s.Get(ctx, PendingRecordings, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
}

func TestPut_Overwrites(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CachedComments, "k", []byte("1")))
	require.NoError(t, s.Put(ctx, CachedComments, "k", []byte("2")))

	got, err := s.Get(ctx, CachedComments, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
}

func TestGet_NotFound(t *testing.T) {
	s := setupStore(t)
	_, err := s.Get(context.Background(), PendingRecordings, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_AbsentIsNoop(t *testing.T) {
	s := setupStore(t)
	assert.NoError(t, s.Delete(context.Background(), PendingMarkers, "missing"))
}

func TestGetAll_And_Clear(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, PendingMarkers, "a", []byte("1")))
	require.NoError(t, s.Add(ctx, PendingMarkers, "b", []byte("2")))

	bodies, err := s.GetAll(ctx, PendingMarkers)
	require.NoError(t, err)
	assert.Len(t, bodies, 2)

	require.NoError(t, s.Clear(ctx, PendingMarkers))
	bodies, err = s.GetAll(ctx, PendingMarkers)
	require.NoError(t, err)
	assert.Empty(t, bodies)
}

func TestReplaceAll_FullyReplaces(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, CachedRecitations, "old", []byte("x")))
	require.NoError(t, s.ReplaceAll(ctx, CachedRecitations, []Record{
		{ID: "a", Body: []byte("1")},
		{ID: "b", Body: []byte("2")},
	}))

	_, err := s.Get(ctx, CachedRecitations, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.Count(ctx, CachedRecitations)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReplaceAll_FailureRollsBack(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, CachedRecitations, "old", []byte("x")))

	// duplicate ids inside the batch abort the transaction; the clear must
	// not be observable
	err := s.ReplaceAll(ctx, CachedRecitations, []Record{
		{ID: "a", Body: []byte("1")},
		{ID: "a", Body: []byte("2")},
	})
	require.Error(t, err)

	got, err := s.Get(ctx, CachedRecitations, "old")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestUnknownContainer(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.Add(ctx, "nope", "a", []byte("1"))
	assert.ErrorIs(t, err, ErrUnknownContainer)
	_, err = s.GetAll(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownContainer)
}

func TestOpen_UnwritablePath(t *testing.T) {
	_, err := Open("/nonexistent-dir/sub/db.sqlite")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
