package policy

import (
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&EpAll{}) }

// EpAll is All restricted to branches where path's parent already exists;
// its Action is the base for epmfs/eplfs/eplus, which further narrow the
// eligible set by free-space ranking.
//
// Grounded on backend/union/policy/epall.go.
type EpAll struct{}

func (EpAll) Name() string { return "epall" }

func (EpAll) Search(env *Env, list branch.List, path string) (*branch.Branch, error) {
	found := EpAll{}.searchEligible(list, path)
	if len(found) == 0 {
		return nil, syscall.ENOENT
	}
	return found[0], nil
}

func (EpAll) searchEligible(list branch.List, path string) branch.List {
	var out branch.List
	for _, b := range list {
		if b.Enabled && exists(b, path) && parentExists(b, path) {
			out = append(out, b)
		}
	}
	return out
}

func (e EpAll) Action(env *Env, list branch.List, path string) (branch.List, error) {
	found := searchAll(list, path)
	if len(found) == 0 {
		return nil, syscall.ENOENT
	}
	return found, nil
}

func (e EpAll) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	elig = filterExistingParent(elig, path, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	return elig[0], nil
}
