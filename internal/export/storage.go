// Package export writes dashboard snapshots to object storage and reads them back.
package export

import (
	"context"
	"io"
	"time"
)

// StorageDriver defines how snapshots reach the binary storage
type StorageDriver interface {
	// Save writes the content under key
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get returns a ReadCloser to stream the object back and its content type.
	// A missing key yields drivers.ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the object
	Delete(ctx context.Context, key string) error

	// GenerateURL returns a download URL for the object
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
