package branch

import (
	"sync"
	"sync/atomic"
	"syscall"
)

// List is an immutable, ordered snapshot of branches. Order is observable:
// first-found-style policies depend on it.
type List []*Branch

// ByPath returns the first branch in the list whose Path matches, or nil.
func (l List) ByPath(path string) *Branch {
	for _, b := range l {
		if b.Path == path {
			return b
		}
	}
	return nil
}

// Registry holds the live, mutable set of branches behind a copy-on-write
// pointer: readers call Snapshot and traverse the result lock-free, writers
// build a new List and publish it atomically.
//
// Grounded on backend/union/upstream/upstream.go's per-upstream
// writable/creatable bookkeeping, generalized to the copy-on-write publish
// model the branch registry itself must provide (rclone never mutates its
// upstream list after NewFs, so it has no analogous writer path).
type Registry struct {
	mu       sync.Mutex // serializes writers only; readers never block
	current  atomic.Pointer[List]
	minFree  uint64
}

// NewRegistry builds a Registry from an initial branch list and the global
// minimum-free-space default.
func NewRegistry(initial List, globalMinFree uint64) *Registry {
	r := &Registry{minFree: globalMinFree}
	snap := make(List, len(initial))
	copy(snap, initial)
	r.current.Store(&snap)
	return r
}

// Snapshot returns the current immutable branch list. O(1), lock-free.
func (r *Registry) Snapshot() List {
	p := r.current.Load()
	if p == nil {
		return nil
	}
	return *p
}

// GlobalMinFreeSpace returns the configured default minimum free space
// applied to branches that don't override it.
func (r *Registry) GlobalMinFreeSpace() uint64 {
	return r.minFree
}

// Set replaces the entire branch list atomically.
func (r *Registry) Set(list List) error {
	if len(list) == 0 {
		return syscall.EINVAL
	}
	seen := make(map[string]bool, len(list))
	for _, b := range list {
		if seen[b.Path] {
			return syscall.EINVAL
		}
		seen[b.Path] = true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(List, len(list))
	copy(snap, list)
	r.current.Store(&snap)
	return nil
}

// Add appends one branch, rejecting duplicate paths.
func (r *Registry) Add(b *Branch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.Snapshot()
	if cur.ByPath(b.Path) != nil {
		return syscall.EEXIST
	}
	next := make(List, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, b)
	r.current.Store(&next)
	return nil
}

// Remove drops every branch matching pred, returning the number removed.
func (r *Registry) Remove(pred func(*Branch) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.Snapshot()
	next := make(List, 0, len(cur))
	removed := 0
	for _, b := range cur {
		if pred(b) {
			removed++
			continue
		}
		next = append(next, b)
	}
	r.current.Store(&next)
	return removed
}

// SetMode changes the mode of the branch at path, publishing a new
// snapshot. Returns ENOENT if no branch has that path.
func (r *Registry) SetMode(path string, mode Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.Snapshot()
	next := make(List, len(cur))
	found := false
	for i, b := range cur {
		if b.Path == path {
			next[i] = b.WithMode(mode)
			found = true
		} else {
			next[i] = b
		}
	}
	if !found {
		return syscall.ENOENT
	}
	r.current.Store(&next)
	return nil
}

// SetEnabled toggles whether a branch participates in policy evaluation.
func (r *Registry) SetEnabled(path string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.Snapshot()
	next := make(List, len(cur))
	found := false
	for i, b := range cur {
		if b.Path == path {
			next[i] = b.WithEnabled(enabled)
			found = true
		} else {
			next[i] = b
		}
	}
	if !found {
		return syscall.ENOENT
	}
	r.current.Store(&next)
	return nil
}
