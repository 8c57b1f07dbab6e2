package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OpenNSW/flowtrack/internal/config"
	"github.com/OpenNSW/flowtrack/internal/export/drivers"
)

// NewStorageFromConfig returns the snapshot driver selected by STORAGE_TYPE.
func NewStorageFromConfig(ctx context.Context, cfg config.StorageConfig) (StorageDriver, error) {
	switch cfg.Type {
	case "local":
		slog.Info("snapshots stored on local disk", "dir", cfg.LocalBaseDir, "publicURL", cfg.LocalPublicURL)
		return drivers.NewLocalFSDriver(cfg.LocalBaseDir, cfg.LocalPublicURL)
	case "s3":
		client, err := newSnapshotS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		slog.Info("snapshots stored in S3",
			"bucket", cfg.S3Bucket,
			"prefix", drivers.S3Prefix,
			"endpoint", cfg.S3Endpoint,
			"presigned", cfg.S3PublicURL == "")
		return drivers.NewS3Driver(client, cfg.S3Bucket, cfg.S3PublicURL), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot storage type %q", cfg.Type)
	}
}

// newSnapshotS3Client builds the S3 client. Static credentials are used only when both halves are set;
// otherwise the default AWS credential chain applies. A custom endpoint (MinIO, LocalStack) implies path-style addressing.
func newSnapshotS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("STORAGE_S3_BUCKET is required for s3 snapshot storage")
	}
	if (cfg.S3AccessKey == "") != (cfg.S3SecretKey == "") {
		return nil, errors.New("STORAGE_S3_ACCESS_KEY and STORAGE_S3_SECRET_KEY must be set together")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for snapshot storage: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
