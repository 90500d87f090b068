package branch

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpecModeAndMinFree(t *testing.T) {
	dir := t.TempDir()

	branches, err := ParseSpec(dir+"=NC,1024", 0)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, NC, branches[0].Mode)
	assert.EqualValues(t, 1024, branches[0].MinFreeSpace)
	assert.True(t, branches[0].Enabled)
}

func TestParseSpecMissingPath(t *testing.T) {
	_, err := ParseSpec("/no/such/path/unionfuse-test", 0)
	assert.Error(t, err)
}

func TestParseEmptyIsEINVAL(t *testing.T) {
	_, err := Parse("", 0)
	assert.ErrorIs(t, err, syscall.EINVAL)
}

func TestParseRejectsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	_, err := ParseSpec(dir+"=BOGUS", 0)
	assert.Error(t, err)
}

func TestRegistrySnapshotIsStableUnderConcurrentWriters(t *testing.T) {
	d1, d2 := t.TempDir(), t.TempDir()
	b1 := &Branch{Path: d1, Mode: RW, Enabled: true}
	b2 := &Branch{Path: d2, Mode: RW, Enabled: true}

	r := NewRegistry(List{b1}, 0)
	snap := r.Snapshot()
	require.Len(t, snap, 1)

	require.NoError(t, r.Add(b2))
	// The earlier snapshot must remain untouched (copy-on-write).
	assert.Len(t, snap, 1)
	assert.Len(t, r.Snapshot(), 2)
}

func TestRegistrySetModeUnknownPath(t *testing.T) {
	r := NewRegistry(List{}, 0)
	err := r.SetMode("/nope", RO)
	assert.Error(t, err)
}
