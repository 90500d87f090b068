package policy

import (
	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&EpNewest{}) }

// EpNewest is Newest restricted, for create, to branches where the
// path's parent already exists.
type EpNewest struct{ Newest }

func (EpNewest) Name() string { return "epnewest" }

func (EpNewest) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	elig = filterExistingParent(elig, path, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	return elig[0], nil
}
