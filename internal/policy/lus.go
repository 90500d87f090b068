package policy

import (
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&Lus{}) }

// Lus (least used space) picks the create-eligible branch with the
// smallest amount of space already consumed.
//
// Grounded on backend/union/policy/lus.go.
type Lus struct{ All }

func (Lus) Name() string { return "lus" }

func (Lus) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	best := pickBy(env, elig, spaceUsedMetric, less)
	if best == nil {
		return nil, syscall.ENOSPC
	}
	return best, nil
}
