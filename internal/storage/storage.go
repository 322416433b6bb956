// Package storage abstracts the object store holding artifact archives and
// their companion index blobs.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound marks a path absent from the backend. During maintenance a
// missing index blob is a normal outcome, not an error to escalate.
var ErrNotFound = errors.New("path not found in storage")

// Backend is the read/write surface over artifact storage. Download
// materializes a remote blob as a local temp file the caller must remove.
type Backend interface {
	// Download fetches remotePath into a new temporary file and returns its
	// local path. Fails with ErrNotFound when the blob does not exist.
	Download(ctx context.Context, remotePath string) (string, error)

	// Upload stores data at remotePath, replacing any existing blob.
	Upload(ctx context.Context, remotePath string, data []byte, contentType string) error

	// Exists reports blob presence without downloading it.
	Exists(ctx context.Context, remotePath string) (bool, error)

	// Delete removes a blob. Deleting an absent blob is a no-op.
	Delete(ctx context.Context, remotePath string) error
}
