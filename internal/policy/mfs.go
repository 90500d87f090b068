package policy

import (
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&Mfs{}) }

// Mfs (most free space) picks the create-eligible branch with the
// largest available space. Its search/action behavior is the embedded
// All's (search returns the first branch holding the path, action every
// such branch), matching backend/union/policy/mfs.go's embedding of "All".
//
// Grounded on backend/union/policy/mfs.go.
type Mfs struct{ All }

func (Mfs) Name() string { return "mfs" }

func (Mfs) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	best := pickBy(env, elig, spaceAvailMetric, greater)
	if best == nil {
		return nil, syscall.ENOSPC
	}
	return best, nil
}
