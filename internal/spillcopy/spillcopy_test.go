package spillcopy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCopiesContentExactly(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")

	want := []byte("the quick brown fox jumps over the lazy dog")
	require.NoError(t, os.WriteFile(srcPath, want, 0o644))

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()

	dst, err := os.Create(dstPath)
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, File(src, dst))

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileCopiesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(srcPath, nil, 0o644))

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()
	dst, err := os.Create(dstPath)
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, File(src, dst))
	fi, err := os.Stat(dstPath)
	require.NoError(t, err)
	assert.Zero(t, fi.Size())
}
