// Package statcache memoizes per-branch free/used space lookups behind a
// configurable TTL, so policies that scan every branch on each request
// don't re-stat the same filesystem repeatedly.
//
// Grounded on backend/union/upstream/upstream.go's About/GetFreeSpace/
// GetUsedSpace (a last-fill timestamp plus a cached fs.Usage, refreshed
// under a mutex) and backend/local/about_unix.go's raw syscall.Statfs
// call; the TTL bookkeeping itself is delegated to
// github.com/patrickmn/go-cache rather than hand-rolled, since it is
// already a dependency of the teacher and does exactly this job.
package statcache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sys/unix"
)

// Info is one branch's statvfs-derived usage snapshot.
type Info struct {
	BlockSize  uint64
	Blocks     uint64
	BlocksFree uint64
	BlocksAvail uint64
	Files      uint64
	FilesFree  uint64
	Fsid       uint64
	ReadOnly   bool
}

// Avail returns the free space visible to an unprivileged caller, in bytes.
func (i Info) Avail() uint64 { return i.BlocksAvail * i.BlockSize }

// Used returns used space in bytes (blocks - free, not blocks - avail, to
// match mergerfs' "lus" semantics of raw usage rather than caller-visible
// availability).
func (i Info) Used() uint64 {
	if i.Blocks < i.BlocksFree {
		return 0
	}
	return (i.Blocks - i.BlocksFree) * i.BlockSize
}

// Cache memoizes Info per branch path.
type Cache struct {
	ttl time.Duration
	c   *gocache.Cache
}

// New builds a Cache with the given TTL. A TTL of 0 disables caching: every
// call performs a fresh statfs.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return &Cache{ttl: 0}
	}
	return &Cache{ttl: ttl, c: gocache.New(ttl, 2*ttl)}
}

// Statfs returns the cached or freshly-measured Info for path.
func (c *Cache) Statfs(path string) (Info, error) {
	if c.c == nil {
		return statfs(path)
	}
	if v, ok := c.c.Get(path); ok {
		return v.(Info), nil
	}
	info, err := statfs(path)
	if err != nil {
		return Info{}, err
	}
	c.c.SetDefault(path, info)
	return info, nil
}

// SpaceAvail returns bytes of free space available to the caller.
func (c *Cache) SpaceAvail(path string) (uint64, error) {
	info, err := c.Statfs(path)
	if err != nil {
		return 0, err
	}
	return info.Avail(), nil
}

// SpaceUsed returns bytes currently used.
func (c *Cache) SpaceUsed(path string) (uint64, error) {
	info, err := c.Statfs(path)
	if err != nil {
		return 0, err
	}
	return info.Used(), nil
}

// ReadOnly reports whether the backing filesystem mounted at path is
// itself read-only (ST_RDONLY), independent of the branch's configured
// mode — the "!readonly(stat)" clause of the create-eligibility
// predicate in spec.md 4.3.
func (c *Cache) ReadOnly(path string) (bool, error) {
	info, err := c.Statfs(path)
	if err != nil {
		return false, err
	}
	return info.ReadOnly, nil
}

// Invalidate drops any cached entry for path, forcing the next lookup to
// re-measure. Used after a write that would otherwise leave a stale
// near-full reading for the rest of the TTL window.
func (c *Cache) Invalidate(path string) {
	if c.c != nil {
		c.c.Delete(path)
	}
}

func statfs(path string) (Info, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Info{}, err
	}
	return Info{
		BlockSize:   uint64(st.Bsize),
		Blocks:      st.Blocks,
		BlocksFree:  st.Bfree,
		BlocksAvail: st.Bavail,
		Files:       st.Files,
		FilesFree:   st.Ffree,
		Fsid:        uint64(st.Fsid.X__val[0]) | uint64(st.Fsid.X__val[1])<<32,
		ReadOnly:    st.Flags&unix.ST_RDONLY != 0,
	}, nil
}
