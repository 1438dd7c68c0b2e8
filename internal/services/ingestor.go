package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Lllllllleong/pdfvault/internal/blob"
	"github.com/Lllllllleong/pdfvault/internal/extract"
	"github.com/Lllllllleong/pdfvault/internal/metadata"
	"github.com/Lllllllleong/pdfvault/internal/models"
)

// Ingestor turns uploaded bytes into a stored original document.
type Ingestor struct {
	meta          metadata.Store
	blobs         blob.Store
	extractor     *extract.Extractor
	previewLength int
	timeout       time.Duration
}

func NewIngestor(meta metadata.Store, blobs blob.Store, extractor *extract.Extractor, previewLength int, timeout time.Duration) *Ingestor {
	if previewLength <= 0 {
		previewLength = 200
	}
	return &Ingestor{
		meta:          meta,
		blobs:         blobs,
		extractor:     extractorOrDefault(extractor),
		previewLength: previewLength,
		timeout:       timeout,
	}
}

// Ingest validates, stores and records one uploaded PDF. The blob is written
// before the bytes are parsed: unparsable uploads leave an orphaned blob
// behind (reclaimed by the sweep) but never a metadata record.
func (ing *Ingestor) Ingest(ctx context.Context, originalName string, raw []byte) (*models.DocumentRecord, error) {
	if !strings.EqualFold(filepath.Ext(originalName), ".pdf") {
		return nil, fmt.Errorf("%w: only PDF files allowed, got %q", models.ErrInvalidInput, originalName)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty upload", models.ErrInvalidInput)
	}

	id, key, err := storeBlob(ctx, ing.blobs, ing.timeout, raw)
	if err != nil {
		return nil, err
	}
	logCtx := slog.With("documentId", id, "originalName", originalName)

	pageCount, err := countPages(raw)
	if err != nil {
		logCtx.Warn("Upload does not parse as a PDF; blob left for the sweep.", "error", err)
		return nil, fmt.Errorf("%w: %v", models.ErrCorruptDocument, err)
	}

	hash := contentHash(raw)
	ing.logDuplicate(ctx, logCtx, hash)

	record := &models.DocumentRecord{
		ID:           id,
		OriginalName: filepath.Base(originalName),
		StorageKey:   key,
		SizeBytes:    int64(len(raw)),
		PageCount:    pageCount,
		ContentHash:  hash,
		CreatedAt:    time.Now().UTC(),
		TextPreview:  preview(ing.extractor.Extract(raw, nil), ing.previewLength),
	}
	if err := persistRecord(ctx, ing.meta, ing.timeout, record); err != nil {
		return nil, err
	}
	logCtx.Info("Document ingested.", "pageCount", pageCount, "sizeBytes", record.SizeBytes)
	return record, nil
}

// logDuplicate flags re-uploads of identical content. Duplicates are
// allowed; the hash on the record lets operators reconcile them later.
func (ing *Ingestor) logDuplicate(ctx context.Context, logCtx *slog.Logger, hash string) {
	listCtx, cancel := opCtx(ctx, ing.timeout)
	defer cancel()
	records, err := ing.meta.List(listCtx)
	if err != nil {
		return
	}
	for _, r := range records {
		if r.ContentHash == hash {
			logCtx.Info("Duplicate content uploaded.", "existingDocumentId", r.ID)
			return
		}
	}
}

// countPages parses the bytes with pdfcpu via a scratch file. An error here
// means the upload is not a usable PDF.
func countPages(raw []byte) (int, error) {
	dir, cleanup, err := scratchDir("pdfvault-ingest-*")
	if err != nil {
		return 0, err
	}
	defer cleanup()
	path, err := writeScratch(dir, "upload.pdf", raw)
	if err != nil {
		return 0, err
	}
	return api.PageCountFile(path)
}
