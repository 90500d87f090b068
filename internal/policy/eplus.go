package policy

import (
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&EpLus{}) }

// EpLus is Lus restricted to branches where the path's parent exists.
//
// Grounded on backend/union/policy/eplus.go.
type EpLus struct{ EpAll }

func (EpLus) Name() string { return "eplus" }

func (EpLus) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	elig = filterExistingParent(elig, path, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	best := pickBy(env, elig, spaceUsedMetric, less)
	if best == nil {
		return nil, syscall.ENOSPC
	}
	return best, nil
}
