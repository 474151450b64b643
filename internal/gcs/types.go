package gcs

import (
	"context"
	"io"
)

// FileStore persists uploaded receipt files.
// This interface enables swapping the bucket for an in-memory store in tests and local runs.
type FileStore interface {
	// Put stores the content under objectName and returns the URL the receipt records.
	Put(ctx context.Context, objectName, contentType string, r io.Reader) (string, error)

	// Get downloads the bytes behind a URL previously returned by Put.
	Get(ctx context.Context, url string) ([]byte, error)
}
