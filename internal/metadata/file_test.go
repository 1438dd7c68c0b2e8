package metadata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfvault/internal/models"
)

func testRecord(id string) *models.DocumentRecord {
	return &models.DocumentRecord{
		ID:           id,
		OriginalName: id + ".pdf",
		StorageKey:   id + ".pdf",
		SizeBytes:    42,
		PageCount:    3,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestFileStorePutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	want := testRecord("doc1")
	require.NoError(t, store.Put(ctx, want))

	got, err := store.Get(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStoreGetMissing(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	ctx := context.Background()

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, testRecord("doc1")))
	require.NoError(t, store.Put(ctx, testRecord("doc2")))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	records, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFileStoreFileIsAlwaysParseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	ctx := context.Background()

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, testRecord("doc1")))
	require.NoError(t, store.Put(ctx, testRecord("doc2")))
	require.NoError(t, store.Delete(ctx, "doc1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []*models.DocumentRecord
	require.NoError(t, json.Unmarshal(data, &records))
	assert.Len(t, records, 1)
}

func TestFileStoreDeleteTwice(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testRecord("doc1")))
	require.NoError(t, store.Delete(ctx, "doc1"))
	assert.ErrorIs(t, store.Delete(ctx, "doc1"), models.ErrNotFound)
}

func TestFileStoreListIsSnapshot(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testRecord("doc1")))
	records, err := store.List(ctx)
	require.NoError(t, err)

	// Mutating the snapshot must not leak into the store.
	records[0].PageCount = 999
	got, err := store.Get(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.PageCount)
}

func TestFileStoreLineageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	ctx := context.Background()

	store, err := NewFileStore(path)
	require.NoError(t, err)

	rec := testRecord("derived")
	rec.Lineage = &models.Lineage{
		Operation: models.OpSplit,
		SplitFrom: "doc1",
		PageRange: &models.PageRange{Start: 1, End: 3},
	}
	require.NoError(t, store.Put(ctx, rec))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "derived")
	require.NoError(t, err)
	require.NotNil(t, got.Lineage)
	assert.Equal(t, models.OpSplit, got.Lineage.Operation)
	assert.Equal(t, "doc1", got.Lineage.SplitFrom)
	assert.Equal(t, &models.PageRange{Start: 1, End: 3}, got.Lineage.PageRange)
}
