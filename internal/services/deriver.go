package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdfvault/internal/blob"
	"github.com/Lllllllleong/pdfvault/internal/extract"
	"github.com/Lllllllleong/pdfvault/internal/metadata"
	"github.com/Lllllllleong/pdfvault/internal/models"
)

// Deriver produces new documents from stored ones. Every operation resolves
// its sources first, transforms in a scratch directory, then writes a fresh
// blob and record. Sources are never mutated or deleted.
type Deriver struct {
	meta          metadata.Store
	blobs         blob.Store
	extractor     *extract.Extractor
	previewLength int
	timeout       time.Duration
}

// fetchConcurrency caps parallel blob reads during a merge.
const fetchConcurrency = 4

func NewDeriver(meta metadata.Store, blobs blob.Store, extractor *extract.Extractor, previewLength int, timeout time.Duration) *Deriver {
	if previewLength <= 0 {
		previewLength = 200
	}
	return &Deriver{
		meta:          meta,
		blobs:         blobs,
		extractor:     extractorOrDefault(extractor),
		previewLength: previewLength,
		timeout:       timeout,
	}
}

// Merge concatenates all pages of the given documents, in order, into a new
// document. At least two source ids are required.
func (d *Deriver) Merge(ctx context.Context, ids []string) (*models.DocumentRecord, error) {
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: merge requires at least 2 documents, got %d", models.ErrInvalidInput, len(ids))
	}

	sources := make([]*models.DocumentRecord, len(ids))
	for i, id := range ids {
		rec, err := d.resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		sources[i] = rec
	}

	dir, cleanup, err := scratchDir("pdfvault-merge-*")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	// Fetch source blobs concurrently; scratch names keep the given order.
	inFiles := make([]string, len(sources))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchConcurrency)
	for i, src := range sources {
		eg.Go(func() error {
			data, err := d.fetchBlob(gctx, src)
			if err != nil {
				return err
			}
			path, err := writeScratch(dir, fmt.Sprintf("source-%03d.pdf", i), data)
			if err != nil {
				return err
			}
			inFiles[i] = path
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	outPath := filepath.Join(dir, "merged.pdf")
	if err := api.MergeCreateFile(inFiles, outPath, false, pdfConfig()); err != nil {
		return nil, fmt.Errorf("%w: merge failed: %v", models.ErrCorruptDocument, err)
	}

	pageCount := 0
	for _, src := range sources {
		pageCount += src.PageCount
	}
	return d.finish(ctx, outPath,
		fmt.Sprintf("merged-%d-documents.pdf", len(sources)),
		pageCount,
		&models.Lineage{Operation: models.OpMerge, MergedFrom: ids},
	)
}

// Split extracts the 0-based, half-open page range [start, end) into a new
// document. A range that reaches past the last page is clamped; a range
// entirely outside the document is rejected rather than producing an empty,
// unusable artifact.
func (d *Deriver) Split(ctx context.Context, id string, start, end int) (*models.DocumentRecord, error) {
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: invalid page range [%d, %d)", models.ErrInvalidInput, start, end)
	}
	src, err := d.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if start >= src.PageCount {
		return nil, fmt.Errorf("%w: page range [%d, %d) starts beyond the last page of a %d-page document",
			models.ErrInvalidInput, start, end, src.PageCount)
	}
	if end > src.PageCount {
		end = src.PageCount
	}

	dir, cleanup, err := scratchDir("pdfvault-split-*")
	if err != nil {
		return nil, err
	}
	defer cleanup()
	srcPath, err := d.fetchToScratch(ctx, dir, src)
	if err != nil {
		return nil, err
	}

	// pdfcpu page selection is 1-based and inclusive.
	selected := []string{fmt.Sprintf("%d-%d", start+1, end)}
	outPath := filepath.Join(dir, "split.pdf")
	if err := api.TrimFile(srcPath, outPath, selected, pdfConfig()); err != nil {
		return nil, fmt.Errorf("%w: split failed: %v", models.ErrCorruptDocument, err)
	}

	return d.finish(ctx, outPath,
		fmt.Sprintf("%s-pages-%d-to-%d.pdf", baseName(src), start+1, end),
		end-start,
		&models.Lineage{
			Operation: models.OpSplit,
			SplitFrom: id,
			PageRange: &models.PageRange{Start: start, End: end},
		},
	)
}

// Rotate applies a clockwise rotation to every page's display orientation.
// Degrees must be a multiple of 90; the rotation is normalized mod 360, and
// a normalized rotation of zero produces an unchanged copy.
func (d *Deriver) Rotate(ctx context.Context, id string, degrees int) (*models.DocumentRecord, error) {
	if degrees%90 != 0 {
		return nil, fmt.Errorf("%w: rotation must be a multiple of 90 degrees, got %d", models.ErrInvalidInput, degrees)
	}
	normalized := ((degrees % 360) + 360) % 360

	src, err := d.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	dir, cleanup, err := scratchDir("pdfvault-rotate-*")
	if err != nil {
		return nil, err
	}
	defer cleanup()
	srcPath, err := d.fetchToScratch(ctx, dir, src)
	if err != nil {
		return nil, err
	}

	outPath := filepath.Join(dir, "rotated.pdf")
	if normalized == 0 {
		outPath = srcPath
	} else if err := api.RotateFile(srcPath, outPath, normalized, nil, pdfConfig()); err != nil {
		return nil, fmt.Errorf("%w: rotate failed: %v", models.ErrCorruptDocument, err)
	}

	return d.finish(ctx, outPath,
		fmt.Sprintf("%s-rotated-%d.pdf", baseName(src), normalized),
		src.PageCount,
		&models.Lineage{Operation: models.OpRotate, Parent: id},
	)
}

// Annotate overlays text at the given position (points from the lower-left
// corner) on one page. A target page outside [1, PageCount] is a no-op:
// the document is copied unchanged, a permissive behavior callers depend on.
func (d *Deriver) Annotate(ctx context.Context, id string, page int, text string, x, y float64) (*models.DocumentRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: annotation text must not be empty", models.ErrInvalidInput)
	}
	src, err := d.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	dir, cleanup, err := scratchDir("pdfvault-annotate-*")
	if err != nil {
		return nil, err
	}
	defer cleanup()
	srcPath, err := d.fetchToScratch(ctx, dir, src)
	if err != nil {
		return nil, err
	}

	outPath := filepath.Join(dir, "annotated.pdf")
	if page < 1 || page > src.PageCount {
		slog.Info("Annotation target page out of range; copying document unchanged.",
			"documentId", id, "page", page, "pageCount", src.PageCount)
		outPath = srcPath
	} else {
		desc := fmt.Sprintf("fontname:Helvetica, points:12, scale:1 abs, rot:0, pos:bl, off:%.1f %.1f", x, y)
		wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("%w: bad annotation: %v", models.ErrInvalidInput, err)
		}
		if err := api.AddWatermarksFile(srcPath, outPath, []string{strconv.Itoa(page)}, wm, pdfConfig()); err != nil {
			return nil, fmt.Errorf("%w: annotate failed: %v", models.ErrCorruptDocument, err)
		}
	}

	return d.finish(ctx, outPath,
		fmt.Sprintf("%s-annotated.pdf", baseName(src)),
		src.PageCount,
		&models.Lineage{Operation: models.OpAnnotate, Parent: id},
	)
}

func (d *Deriver) resolve(ctx context.Context, id string) (*models.DocumentRecord, error) {
	getCtx, cancel := opCtx(ctx, d.timeout)
	defer cancel()
	return d.meta.Get(getCtx, id)
}

func (d *Deriver) fetchBlob(ctx context.Context, rec *models.DocumentRecord) ([]byte, error) {
	getCtx, cancel := opCtx(ctx, d.timeout)
	defer cancel()
	return d.blobs.Get(getCtx, rec.StorageKey)
}

func (d *Deriver) fetchToScratch(ctx context.Context, dir string, rec *models.DocumentRecord) (string, error) {
	data, err := d.fetchBlob(ctx, rec)
	if err != nil {
		return "", err
	}
	return writeScratch(dir, "source.pdf", data)
}

// finish stores the derivation result as a new document: blob first, then
// the record. A record is never written for a failed blob write.
func (d *Deriver) finish(ctx context.Context, resultPath, name string, pageCount int, lineage *models.Lineage) (*models.DocumentRecord, error) {
	data, err := os.ReadFile(resultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read derivation result: %w", err)
	}

	id, key, err := storeBlob(ctx, d.blobs, d.timeout, data)
	if err != nil {
		return nil, err
	}
	record := &models.DocumentRecord{
		ID:           id,
		OriginalName: name,
		StorageKey:   key,
		SizeBytes:    int64(len(data)),
		PageCount:    pageCount,
		ContentHash:  contentHash(data),
		CreatedAt:    time.Now().UTC(),
		TextPreview:  preview(d.extractor.Extract(data, nil), d.previewLength),
		Lineage:      lineage,
	}
	if err := persistRecord(ctx, d.meta, d.timeout, record); err != nil {
		return nil, err
	}
	slog.Info("Derived document created.",
		"documentId", id, "operation", lineage.Operation, "pageCount", pageCount)
	return record, nil
}

func baseName(rec *models.DocumentRecord) string {
	return strings.TrimSuffix(rec.DownloadName(), filepath.Ext(rec.DownloadName()))
}
