package filestore

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/framefinder/internal/config"
	appErr "github.com/xxxsen/framefinder/internal/pkg/errors"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "v1.mp4", strings.NewReader("video-bytes"), 11))

	rc, err := store.Open(ctx, "v1.mp4")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "video-bytes", string(data))

	path, release, err := store.LocalPath(ctx, "v1.mp4")
	require.NoError(t, err)
	release()
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "v1.mp4"))
	require.NoError(t, store.Delete(ctx, "v1.mp4"))
	_, err = store.Open(ctx, "v1.mp4")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, _, err = store.LocalPath(ctx, "v1.mp4")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	require.Error(t, store.Save(context.Background(), "../x", strings.NewReader(""), 0))
	_, err = store.Open(context.Background(), "a/b")
	require.Error(t, err)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{}})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "s3", Data: map[string]interface{}{"endpoint": "minio:9000"}})
	require.Error(t, err)
}

func TestNormalizeEndpoint(t *testing.T) {
	require.Equal(t, "http://minio:9000", normalizeEndpoint("minio:9000", false))
	require.Equal(t, "https://s3.example.com", normalizeEndpoint("s3.example.com", true))
	require.Equal(t, "http://x", normalizeEndpoint("http://x", true))
}
