package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Mirror receives a copy of the dataset after each successful local save.
type Mirror interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// GCSMirror copies the dataset to a single object in a GCS bucket.
type GCSMirror struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSMirror wraps an existing client. Authentication is the caller's
// concern; storage.NewClient picks up Application Default Credentials.
func NewGCSMirror(client *storage.Client, bucket, object string) (*GCSMirror, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if strings.TrimSpace(object) == "" {
		return nil, fmt.Errorf("object name is required")
	}
	return &GCSMirror{client: client, bucket: bucket, object: object}, nil
}

// Upload overwrites the mirrored object with data and returns its gs:// URI.
func (m *GCSMirror) Upload(ctx context.Context, data []byte) (string, error) {
	writer := m.client.Bucket(m.bucket).Object(m.object).NewWriter(ctx)
	writer.ContentType = "application/json; charset=utf-8"
	writer.CacheControl = "no-cache"
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("copy dataset: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy dataset: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer for gs://%s/%s: %w", m.bucket, m.object, err)
	}
	return fmt.Sprintf("gs://%s/%s", m.bucket, m.object), nil
}
