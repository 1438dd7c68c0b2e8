package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Lllllllleong/pdfvault/internal/blob"
	"github.com/Lllllllleong/pdfvault/internal/extract"
	"github.com/Lllllllleong/pdfvault/internal/metadata"
	"github.com/Lllllllleong/pdfvault/internal/models"
)

// Catalog is the read/remove surface over the two stores.
type Catalog struct {
	meta      metadata.Store
	blobs     blob.Store
	extractor *extract.Extractor
	timeout   time.Duration
}

func NewCatalog(meta metadata.Store, blobs blob.Store, extractor *extract.Extractor, timeout time.Duration) *Catalog {
	return &Catalog{
		meta:      meta,
		blobs:     blobs,
		extractor: extractorOrDefault(extractor),
		timeout:   timeout,
	}
}

// GetInfo returns the full record for id.
func (c *Catalog) GetInfo(ctx context.Context, id string) (*models.DocumentRecord, error) {
	getCtx, cancel := opCtx(ctx, c.timeout)
	defer cancel()
	return c.meta.Get(getCtx, id)
}

// List returns a snapshot of all records.
func (c *Catalog) List(ctx context.Context) ([]*models.DocumentRecord, error) {
	listCtx, cancel := opCtx(ctx, c.timeout)
	defer cancel()
	return c.meta.List(listCtx)
}

// GetText extracts text from the stored blob, optionally restricted to the
// given 1-based page numbers. Page numbers outside the document are skipped;
// a filter matching no pages yields the extractor's no-text sentinel.
func (c *Catalog) GetText(ctx context.Context, id string, pages []int) (string, error) {
	data, _, err := c.Download(ctx, id)
	if err != nil {
		return "", err
	}
	return c.extractor.Extract(data, pages), nil
}

// Download returns the raw bytes and the suggested filename.
func (c *Catalog) Download(ctx context.Context, id string) ([]byte, string, error) {
	record, err := c.GetInfo(ctx, id)
	if err != nil {
		return nil, "", err
	}
	getCtx, cancel := opCtx(ctx, c.timeout)
	defer cancel()
	data, err := c.blobs.Get(getCtx, record.StorageKey)
	if err != nil {
		return nil, "", err
	}
	return data, record.DownloadName(), nil
}

// Delete removes the record and its blob. The record goes first so a crash
// in between leaves an orphaned blob (swept later) rather than a record
// pointing at nothing. Deleting an absent id fails with NotFound; a second
// delete of the same id therefore fails too.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	record, err := c.GetInfo(ctx, id)
	if err != nil {
		return err
	}
	delCtx, cancel := opCtx(ctx, c.timeout)
	defer cancel()
	if err := c.meta.Delete(delCtx, id); err != nil {
		return err
	}

	blobCtx, cancel := opCtx(ctx, c.timeout)
	defer cancel()
	if err := c.blobs.Delete(blobCtx, record.StorageKey); err != nil && !errors.Is(err, models.ErrNotFound) {
		// The record is gone; the stranded blob belongs to the sweep now.
		slog.Warn("Blob delete failed after record delete; blob is orphaned until the next sweep.",
			"documentId", id, "storageKey", record.StorageKey, "error", err)
		return err
	}
	slog.Info("Document deleted.", "documentId", id)
	return nil
}
