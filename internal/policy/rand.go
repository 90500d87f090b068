package policy

import (
	"math/rand"
	"sync"
	"time"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&Rand{}) }

// src is a single seeded generator shared by Rand/EpRand/Pfrd/EpPfrd,
// guarded by its own mutex since math/rand.Rand is not safe for
// concurrent use. Unlike backend/union/policy/eprand.go (which reseeds
// the deprecated global rand.Seed on every call), this seeds once at
// package init.
var (
	srcMu sync.Mutex
	src   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randIntn(n int) int {
	srcMu.Lock()
	defer srcMu.Unlock()
	return src.Intn(n)
}

func randFloat64() float64 {
	srcMu.Lock()
	defer srcMu.Unlock()
	return src.Float64()
}

// Rand picks uniformly among create-eligible branches.
//
// Grounded on backend/union/policy/rand.go.
type Rand struct{ All }

func (Rand) Name() string { return "rand" }

func (Rand) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	return elig[randIntn(len(elig))], nil
}

func init() { register(&Pfrd{}) }

// Pfrd (proportional free random) picks among create-eligible branches
// with probability weighted by available space.
//
// New: mergerfs/spec.md describes this policy but it has no rclone
// analogue in the retrieved source; built from the same eligibility
// helpers as Rand plus the statvfs-backed space metric used by Mfs/Lfs.
type Pfrd struct{ All }

func (Pfrd) Name() string { return "pfrd" }

func (Pfrd) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	var rank errRank
	elig := filterCreatable(env, list, &rank)
	if len(elig) == 0 {
		return nil, rank.resolve()
	}
	return weightedPick(env, elig)
}

func weightedPick(env *Env, elig branch.List) (*branch.Branch, error) {
	weights := make([]uint64, len(elig))
	var total uint64
	for i, b := range elig {
		v, err := env.Cache.SpaceAvail(b.Path)
		if err != nil {
			return nil, err
		}
		weights[i] = v
		total += v
	}
	if total == 0 {
		// Every candidate reports zero free space (or doesn't support
		// statvfs); degrade to uniform choice rather than failing a
		// request that filterCreatable already deemed eligible.
		return elig[randIntn(len(elig))], nil
	}
	target := uint64(randFloat64() * float64(total))
	var acc uint64
	for i, w := range weights {
		acc += w
		if target < acc {
			return elig[i], nil
		}
	}
	return elig[len(elig)-1], nil
}
