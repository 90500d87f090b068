package policy

import "github.com/unionfuse/unionfuse/internal/branch"

// pickBy scans candidates, keeping the branch whose metric(b) is most
// extreme according to better (e.g. ">" for most-free-space policies,
// "<" for least-free-space policies). Ties keep the earlier (list-order)
// candidate, matching spec.md's "tie-break order is the branch list
// order".
func pickBy(env *Env, candidates branch.List, metric func(*Env, *branch.Branch) (uint64, bool), better func(a, b uint64) bool) *branch.Branch {
	var best *branch.Branch
	var bestVal uint64
	for _, b := range candidates {
		v, ok := metric(env, b)
		if !ok {
			continue
		}
		if best == nil || better(v, bestVal) {
			best = b
			bestVal = v
		}
	}
	return best
}

func spaceAvailMetric(env *Env, b *branch.Branch) (uint64, bool) {
	v, err := env.Cache.SpaceAvail(b.Path)
	if err != nil {
		return 0, false
	}
	return v, true
}

func spaceUsedMetric(env *Env, b *branch.Branch) (uint64, bool) {
	v, err := env.Cache.SpaceUsed(b.Path)
	if err != nil {
		return 0, false
	}
	return v, true
}

func greater(a, b uint64) bool { return a > b }
func less(a, b uint64) bool    { return a < b }
