package policy

import (
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&EpFF{}) }

// EpFF is "existing path, first found": like FF for search/action, but its
// Create requires the parent directory already exist on the branch
// (no path cloning will be attempted).
//
// Grounded on backend/union/policy/epff.go.
type EpFF struct{ FF }

func (EpFF) Name() string { return "epff" }

func (EpFF) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	for _, b := range list {
		if !createEligibleWithSpace(env, b, &rank) {
			continue
		}
		if !parentExists(b, path) {
			rank.note(syscall.ENOENT)
			continue
		}
		return b, nil
	}
	return nil, rank.resolve()
}
