package statcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatfsReportsNonZeroBlockSize(t *testing.T) {
	dir := t.TempDir()
	c := New(time.Minute)
	info, err := c.Statfs(dir)
	require.NoError(t, err)
	assert.Greater(t, info.BlockSize, uint64(0))
}

func TestCacheServesSameValueWithinTTL(t *testing.T) {
	dir := t.TempDir()
	c := New(time.Hour)
	a, err := c.Statfs(dir)
	require.NoError(t, err)
	b, err := c.Statfs(dir)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	dir := t.TempDir()
	c := New(0)
	assert.Nil(t, c.c)
	_, err := c.Statfs(dir)
	require.NoError(t, err)
}

func TestReadOnlyFalseForOrdinaryTempDir(t *testing.T) {
	dir := t.TempDir()
	c := New(time.Minute)
	ro, err := c.ReadOnly(dir)
	require.NoError(t, err)
	assert.False(t, ro)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	dir := t.TempDir()
	c := New(time.Hour)
	_, err := c.Statfs(dir)
	require.NoError(t, err)
	c.Invalidate(dir)
	_, ok := c.c.Get(dir)
	assert.False(t, ok)
}
