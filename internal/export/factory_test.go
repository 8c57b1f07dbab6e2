package export

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenNSW/flowtrack/internal/config"
	"github.com/OpenNSW/flowtrack/internal/export/drivers"
)

func TestNewStorageFromConfig(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", os.DevNull)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", os.DevNull)
	ctx := context.Background()

	t.Run("local", func(t *testing.T) {
		driver, err := NewStorageFromConfig(ctx, config.StorageConfig{Type: "local", LocalBaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &drivers.LocalFSDriver{}, driver)
	})

	t.Run("s3", func(t *testing.T) {
		driver, err := NewStorageFromConfig(ctx, config.StorageConfig{
			Type:        "s3",
			S3Endpoint:  "http://localhost:9000",
			S3Bucket:    "flowtrack-snapshots",
			S3Region:    "us-east-1",
			S3AccessKey: "minio",
			S3SecretKey: "minio123",
		})
		require.NoError(t, err)
		assert.IsType(t, &drivers.S3Driver{}, driver)
	})

	t.Run("invalid", func(t *testing.T) {
		for name, cfg := range map[string]config.StorageConfig{
			"unknown type":     {Type: "gcs"},
			"missing bucket":   {Type: "s3", S3Region: "us-east-1"},
			"half credentials": {Type: "s3", S3Bucket: "b", S3Region: "us-east-1", S3AccessKey: "only-key"},
		} {
			_, err := NewStorageFromConfig(ctx, cfg)
			assert.Error(t, err, name)
		}
	})
}
