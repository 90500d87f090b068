package policy

import (
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&Lfs{}) }

// Lfs (least free space, above minfree) picks the create-eligible branch
// with the smallest available space that still clears its minfree
// threshold — packing branches toward full rather than spreading writes.
//
// Grounded on backend/union/policy/lfs.go.
type Lfs struct{ All }

func (Lfs) Name() string { return "lfs" }

func (Lfs) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	best := pickBy(env, elig, spaceAvailMetric, less)
	if best == nil {
		return nil, syscall.ENOSPC
	}
	return best, nil
}
