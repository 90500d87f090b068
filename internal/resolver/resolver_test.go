package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func TestAncestorsOfNestedPath(t *testing.T) {
	assert.Equal(t, []string{"/a", "/a/b"}, ancestors("/a/b/c"))
}

func TestAncestorsOfTopLevelPath(t *testing.T) {
	assert.Nil(t, ancestors("/a"))
}

func TestCloneAncestorsReproducesModeAndOwner(t *testing.T) {
	srcDir, dstDir := t.TempDir(), t.TempDir()
	src := &branch.Branch{Path: srcDir, Mode: branch.RW, Enabled: true}
	dst := &branch.Branch{Path: dstDir, Mode: branch.RW, Enabled: true}

	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "p", "q"), 0o750))

	search := func(fusePath string) (*branch.Branch, error) { return src, nil }
	err := CloneAncestors(dst, "/p/q/r", search)
	require.NoError(t, err)

	fi, err := os.Stat(filepath.Join(dstDir, "p", "q"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
	assert.Equal(t, os.FileMode(0o750), fi.Mode().Perm())
}

func TestCloneAncestorsIsIdempotent(t *testing.T) {
	srcDir, dstDir := t.TempDir(), t.TempDir()
	src := &branch.Branch{Path: srcDir, Mode: branch.RW, Enabled: true}
	dst := &branch.Branch{Path: dstDir, Mode: branch.RW, Enabled: true}
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "p"), 0o755))

	search := func(fusePath string) (*branch.Branch, error) { return src, nil }
	require.NoError(t, CloneAncestors(dst, "/p/r", search))
	// Second call must not fail even though /p already exists on dst.
	require.NoError(t, CloneAncestors(dst, "/p/r", search))
}
