package models

import "errors"

// Failure categories shared by every component. Callers classify with
// errors.Is; the HTTP layer maps each category to a status code.
var (
	// ErrInvalidInput marks a malformed request: wrong extension, bad page
	// range, non-90-degree rotation. Always rejected before any storage
	// mutation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks an unknown document id or storage key.
	ErrNotFound = errors.New("not found")

	// ErrCorruptDocument marks bytes that do not parse as a PDF. Raised
	// after the blob write but before the metadata write; the orphaned blob
	// is reclaimed by the reconciliation sweep.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrStorageUnavailable marks a blob or metadata backend that cannot be
	// reached. Retryable from the caller's point of view.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
