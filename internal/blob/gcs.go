package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/Lllllllleong/pdfvault/internal/models"
)

// GCSStore keeps blobs as objects under a prefix in one bucket. Writes are
// conditional on the object not existing yet: keys are fresh ids, so a 412
// means the same write already landed and is treated as success.
type GCSStore struct {
	bucket *storage.BucketHandle
	prefix string
}

const (
	gcsMaxRetries   = 4
	gcsWriteTimeout = 50 * time.Second
)

// NewGCSStore returns a store over gs://<bucket>/<prefix>.
func NewGCSStore(client *storage.Client, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name must be provided for the GCS blob store")
	}
	return &GCSStore{bucket: client.Bucket(bucket), prefix: prefix}, nil
}

func (s *GCSStore) object(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte) error {
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < gcsMaxRetries; i++ {
		err := s.writeOnce(ctx, key, data)
		if err == nil {
			return nil
		}
		lastErr = err
		slog.Warn("GCS write failed, will retry.",
			"object", s.object(key),
			"attempt", i+1,
			"maxRetries", gcsMaxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, ctx.Err())
		}
	}
	return fmt.Errorf("%w: write for %s failed after all retries: %v", models.ErrStorageUnavailable, s.object(key), lastErr)
}

func (s *GCSStore) writeOnce(ctx context.Context, key string, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, gcsWriteTimeout)
	defer cancel()

	writer := s.bucket.Object(s.object(key)).If(storage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
	writer.ContentType = "application/pdf"

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to copy content to GCS object: %w", err)
	}
	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			// Object already exists; the earlier attempt landed.
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.bucket.Object(s.object(key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: blob %s", models.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return data, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(s.object(key)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: blob %s", models.ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *GCSStore) Stat(ctx context.Context, key string) (time.Time, error) {
	attrs, err := s.bucket.Object(s.object(key)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return time.Time{}, fmt.Errorf("%w: blob %s", models.ErrNotFound, key)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return attrs.Created, nil
}

func (s *GCSStore) List(ctx context.Context) ([]string, error) {
	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}
	var keys []string
	it := s.bucket.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
		}
		name := attrs.Name
		if query.Prefix != "" {
			name = name[len(query.Prefix):]
		}
		keys = append(keys, name)
	}
	return keys, nil
}
