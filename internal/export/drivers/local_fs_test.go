package drivers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFSDriver_DirectoryHashing(t *testing.T) {
	tempDir := t.TempDir()
	driver, err := NewLocalFSDriver(tempDir, "/api/dashboard/snapshots/")
	require.NoError(t, err)

	ctx := context.Background()
	key := "abcdef12-3456-7890-abcd-ef1234567890.json"
	content := []byte(`{"total":3}`)

	require.NoError(t, driver.Save(ctx, key, bytes.NewReader(content), "application/json"))

	fullPath := filepath.Join(tempDir, "ab", "cd", key)
	_, err = os.Stat(fullPath)
	require.NoError(t, err, "file not found at hashed path")

	reader, contentType, err := driver.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, content, got)
	assert.Equal(t, "application/json", contentType)

	url, err := driver.GenerateURL(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "/api/dashboard/snapshots/"+key, url)

	require.NoError(t, driver.Delete(ctx, key))
	_, err = os.Stat(fullPath)
	assert.True(t, errors.Is(err, os.ErrNotExist), "file still exists after deletion")
	assert.NoError(t, driver.Delete(ctx, key), "deleting twice is fine")
}

func TestLocalFSDriver_MissingKey(t *testing.T) {
	driver, err := NewLocalFSDriver(t.TempDir(), "")
	require.NoError(t, err)

	_, _, err = driver.Get(context.Background(), "ffffffff.json")
	assert.True(t, errors.Is(err, ErrNotFound))

	url, err := driver.GenerateURL(context.Background(), "k.json", 0)
	require.NoError(t, err)
	assert.Equal(t, "k.json", url)
}

func TestLocalFSDriver_RejectsPathKeys(t *testing.T) {
	driver, err := NewLocalFSDriver(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "..", "../escape.json", `a\b`, "nested/key.json"} {
		assert.Error(t, driver.Save(ctx, key, bytes.NewReader(nil), "text/plain"), key)
		_, _, err := driver.Get(ctx, key)
		assert.Error(t, err, key)
	}
}
