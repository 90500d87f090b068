package policy

import (
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&FF{}) }

// FF is the "first found" policy: search and action both iterate
// branches in order and return only the first branch holding the path;
// create returns the first RW, non-full branch.
//
// Grounded on backend/union/policy/ff.go.
type FF struct{}

func (FF) Name() string { return "ff" }

func (FF) Search(env *Env, list branch.List, path string) (*branch.Branch, error) {
	for _, b := range list {
		if b.Enabled && exists(b, path) {
			return b, nil
		}
	}
	return nil, syscall.ENOENT
}

func (FF) Action(env *Env, list branch.List, path string) (branch.List, error) {
	found := searchAll(list, path)
	if len(found) == 0 {
		return nil, syscall.ENOENT
	}
	return found[:1], nil
}

func (FF) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	for _, b := range list {
		if createEligibleWithSpace(env, b, &rank) {
			return b, nil
		}
	}
	return nil, rank.resolve()
}
