// Package services holds the document engine: ingest, derivation, catalog
// and the reconciliation sweep. Every service works against the metadata and
// blob store interfaces and never reaches a backend directly.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/pdfvault/internal/blob"
	"github.com/Lllllllleong/pdfvault/internal/extract"
	"github.com/Lllllllleong/pdfvault/internal/metadata"
	"github.com/Lllllllleong/pdfvault/internal/models"
)

const defaultStoreTimeout = 30 * time.Second

// pdfConfig returns the pdfcpu configuration used everywhere. Relaxed
// validation accepts the slightly out-of-spec files real uploads contain.
func pdfConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// opCtx bounds a single store operation so a stuck backend surfaces as a
// timeout failure instead of hanging the request.
func opCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// scratchDir creates a temp working directory for one derivation.
func scratchDir(pattern string) (string, func(), error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

func writeScratch(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write scratch file %s: %w", path, err)
	}
	return path, nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// preview truncates extracted text for storage on the record, marking the
// cut with an ellipsis.
func preview(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

// persistRecord writes a fresh record for already-stored blob bytes. The
// blob write always precedes this call: a failure here leaves an orphaned
// blob for the sweep but never a record without a blob.
func persistRecord(ctx context.Context, meta metadata.Store, timeout time.Duration, record *models.DocumentRecord) error {
	putCtx, cancel := opCtx(ctx, timeout)
	defer cancel()
	if err := meta.Put(putCtx, record); err != nil {
		slog.Error("Metadata write failed after blob write; blob is orphaned until the next sweep.",
			"documentId", record.ID, "storageKey", record.StorageKey, "error", err)
		return err
	}
	return nil
}

// storeBlob writes data under a fresh id and returns (id, storageKey).
func storeBlob(ctx context.Context, blobs blob.Store, timeout time.Duration, data []byte) (string, string, error) {
	id := uuid.NewString()
	key := id + ".pdf"
	putCtx, cancel := opCtx(ctx, timeout)
	defer cancel()
	if err := blobs.Put(putCtx, key, data); err != nil {
		return "", "", err
	}
	return id, key, nil
}

// extractorOrDefault lets constructors accept nil for the default chain.
func extractorOrDefault(e *extract.Extractor) *extract.Extractor {
	if e == nil {
		return extract.New()
	}
	return e
}
