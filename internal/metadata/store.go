// Package metadata persists DocumentRecords. Three backends exist: a flat
// JSON file rewritten atomically on every change (default), an embedded
// SQLite database, and Firestore for cloud deployments.
package metadata

import (
	"context"

	"github.com/Lllllllleong/pdfvault/internal/models"
)

// Store is the durable id -> DocumentRecord mapping. Put and Delete for a
// given id are serialized by the implementation; reads of committed records
// need no coordination.
type Store interface {
	// Put writes record under record.ID, replacing any previous version.
	// The write either fully lands or is absent after a crash.
	Put(ctx context.Context, record *models.DocumentRecord) error

	// Get returns the record for id, or models.ErrNotFound.
	Get(ctx context.Context, id string) (*models.DocumentRecord, error)

	// List returns a snapshot of every record. Order carries no meaning.
	List(ctx context.Context) ([]*models.DocumentRecord, error)

	// Delete removes the record for id, or models.ErrNotFound if absent.
	// A second delete of the same id fails; deletion is not idempotent.
	Delete(ctx context.Context, id string) error
}
