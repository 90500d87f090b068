package policy

import (
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&All{}) }

// All is meaningful only as an action policy: every branch holding the
// path is returned, unfiltered by create eligibility. Its Create variant
// (rarely configured, but defined for completeness) returns only the
// first create-eligible branch in list order, since Create yields a
// single branch.
//
// Grounded on backend/union/policy/all.go.
type All struct{}

func (All) Name() string { return "all" }

func (All) Search(env *Env, list branch.List, path string) (*branch.Branch, error) {
	found := searchAll(list, path)
	if len(found) == 0 {
		return nil, syscall.ENOENT
	}
	return found[0], nil
}

func (All) Action(env *Env, list branch.List, path string) (branch.List, error) {
	found := searchAll(list, path)
	if len(found) == 0 {
		return nil, syscall.ENOENT
	}
	return found, nil
}

func (All) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	return elig[0], nil
}
