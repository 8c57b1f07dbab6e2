package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	// S3Prefix groups snapshot objects inside a shared bucket.
	S3Prefix = "snapshots/"

	snapshotCacheControl = "private, max-age=31536000, immutable"
	defaultURLExpiry     = time.Hour
)

// S3Driver stores snapshots as immutable JSON objects under S3Prefix of an S3-compatible bucket.
type S3Driver struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string // set when the bucket is served publicly, e.g. through a CDN
}

func NewS3Driver(client *s3.Client, bucket string, publicURL string) *S3Driver {
	return &S3Driver{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// objectKey maps a snapshot key to its bucket key.
func objectKey(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return S3Prefix + key, nil
}

func attachment(key string) string {
	return fmt.Sprintf("attachment; filename=%q", key)
}

// Save uploads a snapshot. Only JSON content is accepted; an empty content type means JSON.
func (d *S3Driver) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	object, err := objectKey(key)
	if err != nil {
		return err
	}
	if contentType != "" && contentType != SnapshotContentType {
		return fmt.Errorf("snapshot %s must be %s, got %s", key, SnapshotContentType, contentType)
	}

	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(d.bucket),
		Key:                aws.String(object),
		Body:               body,
		ContentType:        aws.String(SnapshotContentType),
		ContentDisposition: aws.String(attachment(key)),
		CacheControl:       aws.String(snapshotCacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot %s to bucket %s: %w", key, d.bucket, err)
	}
	return nil
}

func (d *S3Driver) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	object, err := objectKey(key)
	if err != nil {
		return nil, "", err
	}

	resp, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(object),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, "", fmt.Errorf("failed to read snapshot %s from bucket %s: %w", key, d.bucket, err)
	}
	return resp.Body, SnapshotContentType, nil
}

func (d *S3Driver) Delete(ctx context.Context, key string) error {
	object, err := objectKey(key)
	if err != nil {
		return err
	}
	if _, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(object),
	}); err != nil {
		return fmt.Errorf("failed to delete snapshot %s from bucket %s: %w", key, d.bucket, err)
	}
	return nil
}

// GenerateURL returns the public object URL when one is configured, otherwise a presigned download link.
func (d *S3Driver) GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	object, err := objectKey(key)
	if err != nil {
		return "", err
	}
	if d.publicURL != "" {
		return d.publicURL + "/" + object, nil
	}
	if expires <= 0 {
		expires = defaultURLExpiry
	}

	req, err := d.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(d.bucket),
		Key:                        aws.String(object),
		ResponseContentType:        aws.String(SnapshotContentType),
		ResponseContentDisposition: aws.String(attachment(key)),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to presign snapshot %s: %w", key, err)
	}
	return req.URL, nil
}
