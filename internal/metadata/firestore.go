package metadata

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/pdfvault/internal/models"
)

// FirestoreStore keeps one Firestore document per record, keyed by record id.
// Firestore serializes writes to a single document, which covers the
// single-writer-per-id requirement.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreClient creates a Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// NewFirestoreStore returns a store over the named collection.
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) Put(ctx context.Context, record *models.DocumentRecord) error {
	_, err := s.client.Collection(s.collection).Doc(record.ID).Set(ctx, record)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*models.DocumentRecord, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	var record models.DocumentRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return &record, nil
}

func (s *FirestoreStore) List(ctx context.Context) ([]*models.DocumentRecord, error) {
	var records []*models.DocumentRecord
	it := s.client.Collection(s.collection).Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
		}
		var record models.DocumentRecord
		if err := snap.DataTo(&record); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", snap.Ref.ID, err)
		}
		records = append(records, &record)
	}
	return records, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	// Firestore deletes are idempotent; read first so a second delete of
	// the same id reports NotFound as the catalog contract requires.
	doc := s.client.Collection(s.collection).Doc(id)
	if _, err := doc.Get(ctx); status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	} else if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	if _, err := doc.Delete(ctx); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}
