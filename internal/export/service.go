package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/OpenNSW/flowtrack/internal/export/drivers"
	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

const resourceSnapshot = "snapshot"

// SnapshotService serializes dashboard snapshots and stores them through a StorageDriver
type SnapshotService struct {
	Driver StorageDriver
	now    func() time.Time
}

func NewSnapshotService(driver StorageDriver) *SnapshotService {
	return &SnapshotService{Driver: driver, now: time.Now}
}

// Export encodes payload as JSON, saves it and returns its metadata.
func (s *SnapshotService) Export(ctx context.Context, payload any) (*SnapshotMetadata, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	id := uuid.New()
	key := drivers.SnapshotKey(id)

	if err := s.Driver.Save(ctx, key, bytes.NewReader(data), drivers.SnapshotContentType); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	url, err := s.Driver.GenerateURL(ctx, key, 0)
	if err != nil {
		if delErr := s.Driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned snapshot", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	metadata := &SnapshotMetadata{
		ID:        id,
		Key:       key,
		URL:       url,
		Size:      int64(len(data)),
		MimeType:  drivers.SnapshotContentType,
		CreatedAt: s.now().UTC(),
	}

	slog.InfoContext(ctx, "dashboard snapshot exported", "id", id, "key", key, "size", metadata.Size)
	return metadata, nil
}

// Open streams a stored snapshot. Keys other than "<uuid>.json" are rejected with a ValidationError.
func (s *SnapshotService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !ValidKey(key) {
		return nil, "", &model.ValidationError{Field: "key", Message: "must be a snapshot key of the form <uuid>.json"}
	}

	reader, contentType, err := s.Driver.Get(ctx, key)
	if err != nil {
		if errors.Is(err, drivers.ErrNotFound) {
			return nil, "", &model.NotFoundError{Resource: resourceSnapshot, ID: key}
		}
		return nil, "", &model.UnavailableError{Op: "open snapshot", Err: err}
	}
	return reader, contentType, nil
}

// ValidKey reports whether key names a snapshot produced by Export.
func ValidKey(key string) bool {
	return drivers.ValidKey(key)
}
