// Package storage abstracts the blob backends that hold uploaded file bytes.
// Backends return a durable retrieval URL; item metadata lives in the
// database and only references blobs through that URL.
package storage

import (
	"context"
	"errors"
)

// PutInput describes one blob write. Owner acts as the namespace hint so each
// user's blobs live under their own prefix.
type PutInput struct {
	Owner       string
	Name        string
	ContentType string
	Data        []byte
}

// ErrInvalidObjectURL is returned when a delete request references a URL the
// backend did not issue.
var ErrInvalidObjectURL = errors.New("storage: url does not belong to this backend")

// BlobStore is the write side of the object storage boundary.
type BlobStore interface {
	// Put stores the blob and returns its durable retrieval URL.
	Put(ctx context.Context, input PutInput) (string, error)
	// Delete removes a previously stored blob by its retrieval URL.
	Delete(ctx context.Context, url string) error
}
