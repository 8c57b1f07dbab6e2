// Package drivers implements snapshot storage on the local filesystem and on S3-compatible object stores.
package drivers

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// SnapshotContentType is the media type every snapshot is stored and served with.
const SnapshotContentType = "application/json"

const snapshotExtension = ".json"

var (
	// ErrNotFound is returned by Get when no object exists under the key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned when a key does not name a snapshot.
	ErrInvalidKey = errors.New("invalid snapshot key")
)

// SnapshotKey returns the storage key of the snapshot with the given ID.
func SnapshotKey(id uuid.UUID) string {
	return id.String() + snapshotExtension
}

// ValidKey reports whether key has the "<uuid>.json" form produced by SnapshotKey.
func ValidKey(key string) bool {
	id, ok := strings.CutSuffix(key, snapshotExtension)
	if !ok || len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
