package readdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func setupTwoBranches(t *testing.T) (*branch.Branch, *branch.Branch) {
	t.Helper()
	d1, d2 := t.TempDir(), t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(d1, "d"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(d2, "d"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(d1, "d", "a"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(d1, "d", "b"), []byte("b1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(d2, "d", "b"), []byte("b2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(d2, "d", "c"), []byte("x"), 0o644))
	b1 := &branch.Branch{Path: d1, Mode: branch.RW, Enabled: true}
	b2 := &branch.Branch{Path: d2, Mode: branch.RW, Enabled: true}
	return b1, b2
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestMergeSequentialDedupsUnion(t *testing.T) {
	b1, b2 := setupTwoBranches(t)
	entries := Merge(branch.List{b1, b2}, "/d", Options{Mode: Sequential})
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names(entries))
}

func TestMergeSequentialFirstOccurrenceWinsAttributes(t *testing.T) {
	b1, b2 := setupTwoBranches(t)
	entries := Merge(branch.List{b1, b2}, "/d", Options{Mode: Sequential})
	for _, e := range entries {
		if e.Name == "b" {
			assert.Same(t, b1, e.Source)
		}
	}
}

func TestMergeConcurrentProducesSameSet(t *testing.T) {
	b1, b2 := setupTwoBranches(t)
	entries := Merge(branch.List{b1, b2}, "/d", Options{Mode: Concurrent, Workers: 4})
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names(entries))
}

func TestMergeSkipsBranchMissingDirectory(t *testing.T) {
	b1, b2 := setupTwoBranches(t)
	b3 := &branch.Branch{Path: t.TempDir(), Mode: branch.RW, Enabled: true}
	entries := Merge(branch.List{b1, b2, b3}, "/d", Options{Mode: Sequential})
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names(entries))
}

func TestMergeSequentialSkipsDisabledBranch(t *testing.T) {
	b1, b2 := setupTwoBranches(t)
	b2.Enabled = false
	entries := Merge(branch.List{b1, b2}, "/d", Options{Mode: Sequential})
	assert.ElementsMatch(t, []string{"a", "b"}, names(entries))
}

func TestMergeConcurrentSkipsDisabledBranch(t *testing.T) {
	b1, b2 := setupTwoBranches(t)
	b2.Enabled = false
	entries := Merge(branch.List{b1, b2}, "/d", Options{Mode: Concurrent, Workers: 4})
	assert.ElementsMatch(t, []string{"a", "b"}, names(entries))
}
