package policy

import (
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&EpLfs{}) }

// EpLfs is Lfs restricted to branches where the path's parent exists.
//
// Grounded on backend/union/policy/eplfs.go.
type EpLfs struct{ EpAll }

func (EpLfs) Name() string { return "eplfs" }

func (EpLfs) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	elig = filterExistingParent(elig, path, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	best := pickBy(env, elig, spaceAvailMetric, less)
	if best == nil {
		return nil, syscall.ENOSPC
	}
	return best, nil
}
