package policy

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&Newest{}) }

// Newest picks, among branches holding path, the one whose backing entry
// has the most recent modification time. New: no direct rclone analogue
// (rclone's union backend has no mtime-based selection policy); built
// from the same searchAll helper every other search policy uses plus a
// plain os.Lstat comparison.
type Newest struct{}

func (Newest) Name() string { return "newest" }

func mtimeOf(b *branch.Branch, path string) (int64, bool) {
	fi, err := os.Lstat(filepath.Join(b.Path, path))
	if err != nil {
		return 0, false
	}
	return fi.ModTime().UnixNano(), true
}

func newestOf(candidates branch.List, path string) *branch.Branch {
	var best *branch.Branch
	var bestMtime int64
	for _, b := range candidates {
		mt, ok := mtimeOf(b, path)
		if !ok {
			continue
		}
		if best == nil || mt > bestMtime {
			best = b
			bestMtime = mt
		}
	}
	return best
}

func (Newest) Search(env *Env, list branch.List, path string) (*branch.Branch, error) {
	found := searchAll(list, path)
	if len(found) == 0 {
		return nil, syscall.ENOENT
	}
	best := newestOf(found, path)
	if best == nil {
		return nil, syscall.ENOENT
	}
	return best, nil
}

func (Newest) Action(env *Env, list branch.List, path string) (branch.List, error) {
	found := searchAll(list, path)
	if len(found) == 0 {
		return nil, syscall.ENOENT
	}
	return found, nil
}

func (Newest) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	return elig[0], nil
}
