package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfvault/internal/blob"
	"github.com/Lllllllleong/pdfvault/internal/metadata"
)

type testEnv struct {
	ingestor *Ingestor
	deriver  *Deriver
	catalog  *Catalog
	meta     *metadata.FileStore
	blobs    *blob.FSStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blob.NewFSStore(dir + "/blobs")
	require.NoError(t, err)
	meta, err := metadata.NewFileStore(dir + "/metadata.json")
	require.NoError(t, err)

	timeout := 10 * time.Second
	return &testEnv{
		ingestor: NewIngestor(meta, blobs, nil, 200, timeout),
		deriver:  NewDeriver(meta, blobs, nil, 200, timeout),
		catalog:  NewCatalog(meta, blobs, nil, timeout),
		meta:     meta,
		blobs:    blobs,
	}
}

// pageTexts returns the trimmed plain text of each page, in order, so tests
// can compare page sequences across derivations.
func pageTexts(t *testing.T, data []byte) []string {
	t.Helper()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	texts := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		require.False(t, page.V.IsNull())
		text, err := page.GetPlainText(nil)
		require.NoError(t, err)
		texts = append(texts, strings.TrimSpace(text))
	}
	return texts
}
