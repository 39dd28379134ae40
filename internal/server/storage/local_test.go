package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkozyrev/backupd/internal/common"
)

func TestLocalStore_PutGetDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("encrypted payload")

	require.NoError(t, store.Put(ctx, "u1", "db.sqlite", data))

	got, err := store.Get(ctx, "u1", "db.sqlite")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, store.Delete(ctx, "u1", "db.sqlite"))

	_, err = store.Get(ctx, "u1", "db.sqlite")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLocalStore_PutOverwrites(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "u1", "f.bin", []byte("v1")))
	require.NoError(t, store.Put(ctx, "u1", "f.bin", []byte("v2")))

	got, err := store.Get(ctx, "u1", "f.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestLocalStore_DeleteAbsentIsNoop(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "u1", "missing.bin"))
}

func TestLocalStore_List(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	names, err := store.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, store.Put(ctx, "u1", "a.bin", []byte("a")))
	require.NoError(t, store.Put(ctx, "u1", "b.bin", []byte("b")))
	require.NoError(t, store.Put(ctx, "u2", "c.bin", []byte("c")))

	names, err = store.List(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.bin", "b.bin"}, names)
}

func TestLocalStore_Stat(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "u1", "f.bin", []byte("12345")))

	info, err := store.Stat(ctx, "u1", "f.bin")
	require.NoError(t, err)
	assert.Equal(t, "f.bin", info.Name)
	assert.Equal(t, int64(5), info.Size)
	assert.WithinDuration(t, time.Now(), info.ModTime, time.Minute)

	_, err = store.Stat(ctx, "u1", "missing.bin")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLocalStore_Users(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	ids, err := store.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.Put(ctx, "u1", "a.bin", []byte("a")))
	require.NoError(t, store.Put(ctx, "u2", "b.bin", []byte("b")))

	ids, err = store.Users(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids)
}

func TestLocalStore_RejectsPathTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	assert.Error(t, store.Put(ctx, "u1", "../escape.bin", []byte("x")))
	assert.Error(t, store.Put(ctx, "u1", "..", []byte("x")))
	_, err = store.Get(ctx, "u1", "nested/name")
	assert.Error(t, err)
}
