package policy

import (
	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&EpRand{}) }

// EpRand is Rand restricted to branches where the path's parent exists.
//
// Grounded on backend/union/policy/eprand.go.
type EpRand struct{ EpAll }

func (EpRand) Name() string { return "eprand" }

func (EpRand) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	elig = filterExistingParent(elig, path, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	return elig[randIntn(len(elig))], nil
}

func init() { register(&EpPfrd{}) }

// EpPfrd is Pfrd restricted to branches where the path's parent exists.
type EpPfrd struct{ EpAll }

func (EpPfrd) Name() string { return "eppfrd" }

func (EpPfrd) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	elig = filterExistingParent(elig, path, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	return weightedPick(env, elig)
}
