package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Lllllllleong/pdfvault/internal/blob"
	"github.com/Lllllllleong/pdfvault/internal/metadata"
)

// Sweeper reclaims orphaned blobs: blobs with no live metadata record,
// left behind when an ingest or derivation failed between the blob write
// and the record write. Blobs younger than the grace period are skipped so
// an in-flight operation is never swept out from under its record write.
type Sweeper struct {
	meta    metadata.Store
	blobs   blob.Store
	limiter *rate.Limiter
	grace   time.Duration
	timeout time.Duration
}

const sweepConcurrency = 4

func NewSweeper(meta metadata.Store, blobs blob.Store, grace time.Duration, deletesPerSec float64, timeout time.Duration) *Sweeper {
	if deletesPerSec <= 0 {
		deletesPerSec = 10
	}
	return &Sweeper{
		meta:    meta,
		blobs:   blobs,
		limiter: rate.NewLimiter(rate.Limit(deletesPerSec), 1),
		grace:   grace,
		timeout: timeout,
	}
}

// Sweep runs one reconciliation pass and returns the number of blobs
// removed. Individual blob failures are logged and skipped; the pass keeps
// going so one bad key cannot stall reclamation.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	listCtx, cancel := opCtx(ctx, s.timeout)
	defer cancel()
	records, err := s.meta.List(listCtx)
	if err != nil {
		return 0, err
	}
	live := make(map[string]struct{}, len(records))
	for _, r := range records {
		live[r.StorageKey] = struct{}{}
	}

	keysCtx, cancel := opCtx(ctx, s.timeout)
	defer cancel()
	keys, err := s.blobs.List(keysCtx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-s.grace)
	var removed atomic.Int64

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(sweepConcurrency)
	for _, key := range keys {
		if _, ok := live[key]; ok {
			continue
		}
		eg.Go(func() error {
			deleted, err := s.removeOrphan(gctx, key, cutoff)
			if err != nil {
				slog.Warn("Failed to sweep orphaned blob.", "storageKey", key, "error", err)
				return nil
			}
			if deleted {
				removed.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return int(removed.Load()), err
	}

	n := int(removed.Load())
	slog.Info("Reconciliation sweep complete.",
		"blobsSeen", len(keys), "liveRecords", len(records), "removed", n)
	return n, nil
}

func (s *Sweeper) removeOrphan(ctx context.Context, key string, cutoff time.Time) (bool, error) {
	statCtx, cancel := opCtx(ctx, s.timeout)
	defer cancel()
	written, err := s.blobs.Stat(statCtx, key)
	if err != nil {
		return false, err
	}
	if written.After(cutoff) {
		// Possibly an ingest whose record write has not landed yet.
		return false, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}
	delCtx, cancel := opCtx(ctx, s.timeout)
	defer cancel()
	if err := s.blobs.Delete(delCtx, key); err != nil {
		return false, err
	}
	slog.Info("Removed orphaned blob.", "storageKey", key)
	return true, nil
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.Error("Reconciliation sweep failed.", "error", err)
			}
		}
	}
}
