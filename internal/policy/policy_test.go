package policy

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/statcache"
)

func mkBranch(t *testing.T, mode branch.Mode) *branch.Branch {
	t.Helper()
	dir := t.TempDir()
	return &branch.Branch{Path: dir, Mode: mode, Enabled: true}
}

func touch(t *testing.T, b *branch.Branch, rel string) {
	t.Helper()
	full := filepath.Join(b.Path, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
}

func testEnv() *Env {
	return &Env{Cache: statcache.New(time.Minute)}
}

func TestFFSearchReturnsFirstInOrder(t *testing.T) {
	b1 := mkBranch(t, branch.RW)
	b2 := mkBranch(t, branch.RW)
	touch(t, b1, "f")
	touch(t, b2, "f")

	p, err := Get("ff")
	require.NoError(t, err)
	got, err := p.Search(testEnv(), branch.List{b1, b2}, "/f")
	require.NoError(t, err)
	assert.Same(t, b1, got)
}

func TestFFSearchNotFound(t *testing.T) {
	b1 := mkBranch(t, branch.RW)
	p, _ := Get("ff")
	_, err := p.Search(testEnv(), branch.List{b1}, "/missing")
	assert.Error(t, err)
}

func TestEpAllActionSuppressesNothingItself(t *testing.T) {
	// epall's Action returns every branch containing the path; callers
	// (not the policy) decide how to treat per-branch ENOENT.
	b1 := mkBranch(t, branch.RW)
	b2 := mkBranch(t, branch.RW)
	touch(t, b1, "f")

	p, _ := Get("epall")
	found, err := p.Action(testEnv(), branch.List{b1, b2}, "/f")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Same(t, b1, found[0])
}

func TestMfsCreatePicksMostFree(t *testing.T) {
	small := mkBranch(t, branch.RW)
	big := mkBranch(t, branch.RW)
	// Both tmp dirs usually share one backing fs, so their available
	// space is (nearly) equal and either may win. Check instead that the
	// chosen branch's space, read through the same cache the policy
	// used, is at least every candidate's.
	env := testEnv()
	p, err := Get("mfs")
	require.NoError(t, err)
	got, err := p.Create(env, branch.List{small, big}, "/x")
	require.NoError(t, err)
	assert.Contains(t, []*branch.Branch{small, big}, got)
	gotAvail, err := env.Cache.SpaceAvail(got.Path)
	require.NoError(t, err)
	for _, b := range []*branch.Branch{small, big} {
		avail, err := env.Cache.SpaceAvail(b.Path)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, gotAvail, avail)
	}
}

func TestErofsCreateAlwaysFails(t *testing.T) {
	b1 := mkBranch(t, branch.RW)
	p, _ := Get("erofs")
	_, err := p.Create(testEnv(), branch.List{b1}, "/x")
	assert.ErrorIs(t, err, syscall.EROFS)
}

func TestRandCreateOnlyReturnsEligible(t *testing.T) {
	ro := mkBranch(t, branch.RO)
	rw := mkBranch(t, branch.RW)
	p, _ := Get("rand")
	got, err := p.Create(testEnv(), branch.List{ro, rw}, "/x")
	require.NoError(t, err)
	assert.Same(t, rw, got)
}

func TestNCBranchExcludedFromCreate(t *testing.T) {
	nc := mkBranch(t, branch.NC)
	p, _ := Get("ff")
	_, err := p.Create(testEnv(), branch.List{nc}, "/x")
	assert.Error(t, err)
}
