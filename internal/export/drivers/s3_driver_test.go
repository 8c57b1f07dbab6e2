package drivers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	body         []byte
	contentType  string
	disposition  string
	cacheControl string
}

// fakeS3 serves the path-style object API for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]fakeObject
}

func (f *fakeS3) object(key string) fakeObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key]
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, ok := strings.CutPrefix(r.URL.Path, "/"+f.bucket+"/")
	if !ok {
		http.Error(w, "unknown bucket", http.StatusNotFound)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = fakeObject{
			body:         body,
			contentType:  r.Header.Get("Content-Type"),
			disposition:  r.Header.Get("Content-Disposition"),
			cacheControl: r.Header.Get("Cache-Control"),
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		obj, found := f.objects[key]
		if !found {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		_, _ = w.Write(obj.body)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeS3Client(t *testing.T) (*fakeS3, *s3.Client) {
	t.Helper()
	fake := &fakeS3{bucket: "snapshots", objects: make(map[string]fakeObject)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		BaseEndpoint:               aws.String(srv.URL),
		UsePathStyle:               true,
		Credentials:                credentials.NewStaticCredentialsProvider("test", "test", ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return fake, client
}

const snapshotKey = "0b7a4f61-2d0e-4d39-9d8c-1f2e3a4b5c6d.json"

func TestS3Driver_RoundTrip(t *testing.T) {
	fake, client := newFakeS3Client(t)
	driver := NewS3Driver(client, fake.bucket, "")
	ctx := context.Background()

	require.NoError(t, driver.Save(ctx, snapshotKey, bytes.NewReader([]byte(`{"total":1}`)), ""))
	stored := fake.object(S3Prefix + snapshotKey)
	assert.Equal(t, SnapshotContentType, stored.contentType)
	assert.Equal(t, `attachment; filename="`+snapshotKey+`"`, stored.disposition)
	assert.Contains(t, stored.cacheControl, "immutable")

	reader, contentType, err := driver.Get(ctx, snapshotKey)
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.JSONEq(t, `{"total":1}`, string(body))
	assert.Equal(t, SnapshotContentType, contentType)

	require.NoError(t, driver.Delete(ctx, snapshotKey))
	_, _, err = driver.Get(ctx, snapshotKey)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestS3Driver_RejectsNonSnapshots(t *testing.T) {
	fake, client := newFakeS3Client(t)
	driver := NewS3Driver(client, fake.bucket, "")
	ctx := context.Background()

	for _, key := range []string{"", "k.json", "../" + snapshotKey, "0b7a4f61-2d0e-4d39-9d8c-1f2e3a4b5c6d.csv"} {
		err := driver.Save(ctx, key, bytes.NewReader([]byte(`{}`)), SnapshotContentType)
		assert.True(t, errors.Is(err, ErrInvalidKey), key)
		_, _, err = driver.Get(ctx, key)
		assert.True(t, errors.Is(err, ErrInvalidKey), key)
		assert.True(t, errors.Is(driver.Delete(ctx, key), ErrInvalidKey), key)
		_, err = driver.GenerateURL(ctx, key, 0)
		assert.True(t, errors.Is(err, ErrInvalidKey), key)
	}

	assert.Error(t, driver.Save(ctx, snapshotKey, bytes.NewReader([]byte("a,b")), "text/csv"))
	assert.Empty(t, fake.objects)
}

func TestS3Driver_GenerateURL(t *testing.T) {
	fake, client := newFakeS3Client(t)
	ctx := context.Background()

	public := NewS3Driver(client, fake.bucket, "https://cdn.example.com/")
	url, err := public.GenerateURL(ctx, snapshotKey, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/snapshots/"+snapshotKey, url)

	presigned := NewS3Driver(client, fake.bucket, "")
	url, err = presigned.GenerateURL(ctx, snapshotKey, 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "/snapshots/snapshots/"+snapshotKey)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
	assert.Contains(t, url, "response-content-type=application%2Fjson")
}

func TestValidKey(t *testing.T) {
	id := uuid.MustParse("0b7a4f61-2d0e-4d39-9d8c-1f2e3a4b5c6d")
	assert.Equal(t, snapshotKey, SnapshotKey(id))
	assert.True(t, ValidKey(snapshotKey))
	assert.False(t, ValidKey("0b7a4f61-2d0e-4d39-9d8c-1f2e3a4b5c6d"))
	assert.False(t, ValidKey("{0b7a4f61-2d0e-4d39-9d8c-1f2e3a4b5c6d}.json"))
	assert.False(t, ValidKey("x.json"))
}
