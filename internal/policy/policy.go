// Package policy implements the named branch-selection algorithms used by
// every filesystem operation: search (pick one existing), action (pick
// every branch holding the path), and create (pick one eligible branch).
//
// Grounded on backend/union/policy/policy.go's Policy interface
// (Action/Create/Search plus the *Entries variants) and the registry
// pattern in the same file (policies map[string]Policy, registerPolicy,
// Get). Branches replace rclone's fs.Fs upstreams and os.Lstat replaces
// fs.Fs.List as the existence probe.
package policy

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/statcache"
)

// Category classifies a FUSE opcode for policy-selection purposes.
type Category int

const (
	Search Category = iota
	Action
	Create
)

// Env bundles everything a policy needs besides the branch list and path:
// the statvfs cache (for *fs/*lus/*pfrd policies) and the global minimum
// free space default.
type Env struct {
	Cache   *statcache.Cache
	MinFree uint64
}

// minFreeFor returns the effective minimum free space threshold for b,
// falling back to the environment default when the branch doesn't
// override it.
func minFreeFor(env *Env, b *branch.Branch) uint64 {
	if b.MinFreeSpace > 0 {
		return b.MinFreeSpace
	}
	return env.MinFree
}

// Policy is a named branch-selection algorithm. Not every method is
// meaningful for every category; handlers only call the method matching
// the opcode's category.
type Policy interface {
	Name() string
	// Search returns exactly one branch known to contain path.
	Search(env *Env, list branch.List, path string) (*branch.Branch, error)
	// Action returns every branch that should receive a multi-branch
	// operation (unlink, chmod, ...) against path.
	Action(env *Env, list branch.List, path string) (branch.List, error)
	// Create returns exactly one branch on which to create path.
	Create(env *Env, list branch.List, path string) (*branch.Branch, error)
}

var registry = map[string]Policy{}

func register(p Policy) {
	registry[p.Name()] = p
}

// Get looks up a policy by its mount-option name.
func Get(name string) (Policy, error) {
	p, ok := registry[name]
	if !ok {
		return nil, syscall.EINVAL
	}
	return p, nil
}

// exists reports whether path exists on branch b, via lstat (no policy
// needs to follow symlinks to answer "does this branch have an entry
// here").
func exists(b *branch.Branch, path string) bool {
	_, err := os.Lstat(filepath.Join(b.Path, path))
	return err == nil
}

// parentExists reports whether path's parent directory exists on b —
// the extra eligibility clause every ep* variant adds.
func parentExists(b *branch.Branch, path string) bool {
	parent := filepath.Dir(path)
	if parent == "." || parent == "/" {
		return true
	}
	return exists(b, parent)
}

// errRank orders errors by the precedence table in spec.md 4.3: EROFS
// (saw only read-only) > ENOSPC (saw only full) > ENOENT (saw only
// missing) > first failure seen.
type errRank struct {
	rofs, nospc, nent bool
	first             error
}

func (r *errRank) note(err error) {
	if r.first == nil {
		r.first = err
	}
	switch err {
	case syscall.EROFS:
		r.rofs = true
	case syscall.ENOSPC:
		r.nospc = true
	case syscall.ENOENT:
		r.nent = true
	}
}

func (r *errRank) resolve() error {
	switch {
	case r.rofs:
		return syscall.EROFS
	case r.nospc:
		return syscall.ENOSPC
	case r.nent:
		return syscall.ENOENT
	case r.first != nil:
		return r.first
	default:
		return syscall.ENOENT
	}
}

// searchAll returns every branch in list that contains path, in list
// order.
func searchAll(list branch.List, path string) branch.List {
	var out branch.List
	for _, b := range list {
		if b.Enabled && exists(b, path) {
			out = append(out, b)
		}
	}
	return out
}

// createEligible reports whether b is a usable create-policy candidate
// ignoring free space (the cheap checks), appending any ineligibility
// reason to rank.
func createEligible(env *Env, b *branch.Branch, rank *errRank) bool {
	if !b.Enabled {
		rank.note(syscall.ENOENT)
		return false
	}
	if !b.Creatable() {
		rank.note(syscall.EROFS)
		return false
	}
	return true
}

// createEligibleWithSpace additionally checks free space and the backing
// filesystem's own read-only state via the statvfs cache, per spec.md's
// full create eligibility predicate: mode≠RO ∧ mode≠NC ∧ enabled ∧
// !readonly(stat) ∧ space_avail ≥ minfree.
func createEligibleWithSpace(env *Env, b *branch.Branch, rank *errRank) bool {
	if !createEligible(env, b, rank) {
		return false
	}
	ro, err := env.Cache.ReadOnly(b.Path)
	if err != nil {
		rank.note(err)
		return false
	}
	if ro {
		rank.note(syscall.EROFS)
		return false
	}
	avail, err := env.Cache.SpaceAvail(b.Path)
	if err != nil {
		rank.note(err)
		return false
	}
	if avail < minFreeFor(env, b) {
		rank.note(syscall.ENOSPC)
		return false
	}
	return true
}

// filterCreatable returns the subset of list eligible for a create
// operation (mode RW, enabled, has space), tracking the best error.
func filterCreatable(env *Env, list branch.List, rank *errRank) branch.List {
	var out branch.List
	for _, b := range list {
		if createEligibleWithSpace(env, b, rank) {
			out = append(out, b)
		}
	}
	return out
}

// filterExistingParent narrows a create candidate list to branches where
// path's parent already exists — the ep* eligibility clause.
func filterExistingParent(list branch.List, path string, rank *errRank) branch.List {
	var out branch.List
	for _, b := range list {
		if parentExists(b, path) {
			out = append(out, b)
		} else {
			rank.note(syscall.ENOENT)
		}
	}
	return out
}
