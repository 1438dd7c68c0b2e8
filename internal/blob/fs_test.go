package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfvault/internal/models"
)

func newTestFSStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestFSStorePutGet(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.pdf", []byte("payload")))
	data, err := store.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestFSStorePutReplaces(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.pdf", []byte("one")))
	require.NoError(t, store.Put(ctx, "a.pdf", []byte("two")))
	data, err := store.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
}

func TestFSStoreGetMissing(t *testing.T) {
	store := newTestFSStore(t)

	_, err := store.Get(context.Background(), "nope.pdf")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFSStoreDeleteTwice(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.pdf", []byte("payload")))
	require.NoError(t, store.Delete(ctx, "a.pdf"))
	assert.ErrorIs(t, store.Delete(ctx, "a.pdf"), models.ErrNotFound)
}

func TestFSStoreList(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.pdf", []byte("a")))
	require.NoError(t, store.Put(ctx, "b.pdf", []byte("b")))

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, keys)
}

func TestFSStoreStat(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.pdf", []byte("a")))
	written, err := store.Stat(ctx, "a.pdf")
	require.NoError(t, err)
	assert.False(t, written.IsZero())

	_, err = store.Stat(ctx, "missing.pdf")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFSStoreRejectsPathKeys(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape.pdf", "a/b.pdf", ".hidden"} {
		assert.ErrorIs(t, store.Put(ctx, key, []byte("x")), models.ErrInvalidInput, "key %q", key)
	}
}
