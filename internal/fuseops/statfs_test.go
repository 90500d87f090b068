package fuseops

import (
	"context"
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/config"
)

func TestStatfsAggregatesDistinctDevices(t *testing.T) {
	fsys := testFS(t)
	b1 := fsys.snapshot()[0]
	dir2 := t.TempDir()
	b2 := &branch.Branch{Path: dir2, Mode: branch.RW, Enabled: true, DeviceID: b1.DeviceID + 1}
	require.NoError(t, fsys.Registry.Set(branch.List{b1, b2}))
	opt := config.Default()
	opt.Statfs = config.StatfsFull
	fsys.ReplaceOptions(opt)

	n := rootNode(fsys)
	var out fuse.StatfsOut
	errno := n.Statfs(context.Background(), &out)
	require.Equal(t, syscall.Errno(0), errno)
	assert.NotZero(t, out.Bsize)
	i1, err := fsys.Stat.Statfs(b1.Path)
	require.NoError(t, err)
	i2, err := fsys.Stat.Statfs(b2.Path)
	require.NoError(t, err)
	assert.Equal(t, i1.Blocks+i2.Blocks, out.Blocks)
}

func TestStatfsBaseStopsAfterFirstBranch(t *testing.T) {
	fsys := testFS(t)
	b1 := fsys.snapshot()[0]
	dir2 := t.TempDir()
	b2 := &branch.Branch{Path: dir2, Mode: branch.RW, Enabled: true, DeviceID: b1.DeviceID + 1}
	require.NoError(t, fsys.Registry.Set(branch.List{b1, b2}))
	opt := config.Default()
	opt.Statfs = config.StatfsBase
	fsys.ReplaceOptions(opt)

	n := rootNode(fsys)
	var out fuse.StatfsOut
	errno := n.Statfs(context.Background(), &out)
	require.Equal(t, syscall.Errno(0), errno)
	i1, err := fsys.Stat.Statfs(b1.Path)
	require.NoError(t, err)
	assert.Equal(t, i1.Blocks, out.Blocks)
}
