package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.JPG", "c.png", "notes.txt", "d.jpeg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	images, err := listImages(dir)
	require.NoError(t, err)

	require.Len(t, images, 4)
	// sorted, extensions case-insensitive, directories skipped
	assert.Equal(t, filepath.Join(dir, "a.JPG"), images[0])
	assert.Equal(t, filepath.Join(dir, "b.jpg"), images[1])
	assert.NotContains(t, images, filepath.Join(dir, "notes.txt"))
}

func TestListImages_MissingDir(t *testing.T) {
	_, err := listImages("/nonexistent/dir")
	require.Error(t, err)
}
