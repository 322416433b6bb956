package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FSBackend stores blobs under a root directory. Used for local runs and
// tests; the production backend is MinIO.
type FSBackend struct {
	root string
}

// NewFSBackend creates the root directory if needed.
func NewFSBackend(root string) (*FSBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FSBackend{root: root}, nil
}

// Download copies the blob into a temp file.
func (f *FSBackend) Download(_ context.Context, remotePath string) (string, error) {
	src, err := os.Open(filepath.Join(f.root, filepath.FromSlash(remotePath)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", remotePath, ErrNotFound)
		}
		return "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "docsmill-download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// Upload writes data under the root.
func (f *FSBackend) Upload(_ context.Context, remotePath string, data []byte, _ string) error {
	full := filepath.Join(f.root, filepath.FromSlash(remotePath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

// Exists reports blob presence.
func (f *FSBackend) Exists(_ context.Context, remotePath string) (bool, error) {
	_, err := os.Stat(filepath.Join(f.root, filepath.FromSlash(remotePath)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a blob. Absent blobs are a no-op.
func (f *FSBackend) Delete(_ context.Context, remotePath string) error {
	err := os.Remove(filepath.Join(f.root, filepath.FromSlash(remotePath)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
