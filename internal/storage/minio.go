package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOBackend stores blobs in an S3-compatible bucket.
type MinIOBackend struct {
	client *minio.Client
	bucket string
}

// MinIOConfig holds the connection parameters for an S3-compatible backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinIOBackend initializes a MinIO client and ensures the bucket exists.
func NewMinIOBackend(ctx context.Context, cfg MinIOConfig) (*MinIOBackend, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("storage endpoint and bucket required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinIOBackend{client: client, bucket: cfg.Bucket}, nil
}

// Download fetches remotePath into a temp file.
func (m *MinIOBackend) Download(ctx context.Context, remotePath string) (string, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", remotePath, err)
	}
	defer obj.Close()

	tmp, err := os.CreateTemp("", "docsmill-download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", fmt.Errorf("%s: %w", remotePath, ErrNotFound)
		}
		return "", fmt.Errorf("failed to download %s: %w", remotePath, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// Upload stores data at remotePath.
func (m *MinIOBackend) Upload(ctx context.Context, remotePath string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, remotePath, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Exists reports blob presence.
func (m *MinIOBackend) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, remotePath, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes a blob. Absent blobs are a no-op.
func (m *MinIOBackend) Delete(ctx context.Context, remotePath string) error {
	return m.client.RemoveObject(ctx, m.bucket, remotePath, minio.RemoveObjectOptions{})
}
