package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storesight/insights-crawler/internal/archive/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tempDir := t.TempDir()
		store, err := local.New(local.Config{BaseDir: tempDir})
		require.NoError(t, err)
		require.NotNil(t, store)
	})
	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		require.Error(t, err)
	})
	t.Run("CreatesMissingDir", func(t *testing.T) {
		tempDir := filepath.Join(t.TempDir(), "nested", "archive")
		_, err := local.New(local.Config{BaseDir: tempDir})
		require.NoError(t, err)
		info, statErr := os.Stat(tempDir)
		require.NoError(t, statErr)
		require.True(t, info.IsDir())
	})
}

func TestPutObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("WritesFile", func(t *testing.T) {
		uri, putErr := store.PutObject(context.Background(), "run-1/homepage_abc.html", "text/html", []byte("<html></html>"))
		require.NoError(t, putErr)
		require.True(t, strings.HasPrefix(uri, "file://"))

		content, readErr := os.ReadFile(filepath.Join(tempDir, "run-1", "homepage_abc.html"))
		require.NoError(t, readErr)
		require.Equal(t, "<html></html>", string(content))
	})
	t.Run("EmptyPath", func(t *testing.T) {
		_, putErr := store.PutObject(context.Background(), "  ", "text/html", []byte("x"))
		require.Error(t, putErr)
	})
	t.Run("PathTraversal", func(t *testing.T) {
		_, putErr := store.PutObject(context.Background(), "../escape.html", "text/html", []byte("x"))
		require.Error(t, putErr)
	})
}
