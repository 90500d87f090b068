package policy

import (
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&EpMfs{}) }

// EpMfs is Mfs restricted to branches where the path's parent already
// exists, per backend/union/policy/epmfs.go (which embeds EpAll and adds
// the same mfs() free-space comparison Mfs uses).
type EpMfs struct{ EpAll }

func (EpMfs) Name() string { return "epmfs" }

func (EpMfs) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	elig = filterExistingParent(elig, path, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	best := pickBy(env, elig, spaceAvailMetric, greater)
	if best == nil {
		return nil, syscall.ENOSPC
	}
	return best, nil
}
