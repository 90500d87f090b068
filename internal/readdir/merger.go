// Package readdir implements the multi-branch directory union: reading
// every branch that contains a directory and deduplicating by entry
// name, first occurrence wins.
//
// Grounded on backend/union/union.go's mergeDirEntries (a map[name]bool
// "seen" set plus first-occurrence-wins append) for the dedup core, and
// backend/local/parallel_stat.go's worker/WaitGroup fan-out idiom for the
// concurrent mode.
package readdir

import (
	"os"
	"sync"

	"github.com/unionfuse/unionfuse/internal/branch"
)

// Entry is one deduplicated directory entry, tagged with the branch that
// produced it (needed by the caller to fill readdirplus attributes and
// to compute the inode).
type Entry struct {
	Name   string
	IsDir  bool
	Source *branch.Branch
}

// Mode selects how branches are scanned.
type Mode int

const (
	Sequential Mode = iota
	Concurrent
)

// Options configures the concurrent fan-out.
type Options struct {
	Mode    Mode
	Workers int
}

// Merge reads fusePath from every branch in list that has it, returning
// the deduplicated union. Branches that don't contain the directory (or
// fail to open it) are silently skipped, matching spec.md's "does not use
// a policy; reads every branch that contains the directory".
func Merge(list branch.List, fusePath string, opt Options) []Entry {
	if opt.Mode == Concurrent && len(list) > 1 {
		return mergeConcurrent(list, fusePath, opt)
	}
	return mergeSequential(list, fusePath)
}

func mergeSequential(list branch.List, fusePath string) []Entry {
	seen := make(map[string]bool)
	var out []Entry
	for _, b := range list {
		appendBranchEntries(b, fusePath, seen, &out)
	}
	return out
}

func mergeConcurrent(list branch.List, fusePath string, opt Options) []Entry {
	workers := opt.Workers
	if workers <= 0 || workers > len(list) {
		workers = len(list)
	}

	type result struct {
		branch  *branch.Branch
		entries []os.DirEntry
	}

	jobs := make(chan *branch.Branch, len(list))
	results := make(chan result, len(list))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				if !b.Enabled {
					continue
				}
				dirents, err := os.ReadDir(resolverPath(b, fusePath))
				if err != nil {
					continue
				}
				results <- result{branch: b, entries: dirents}
			}
		}()
	}
	for _, b := range list {
		jobs <- b
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect in branch-list order so that "first occurrence wins"
	// still means "first branch in configured order", not "first
	// goroutine to finish" — dedup must be order-independent in the
	// sense of producing a correct set, but attribute provenance should
	// still be deterministic given a fixed branch list.
	byBranch := make(map[*branch.Branch][]os.DirEntry, len(list))
	for r := range results {
		byBranch[r.branch] = r.entries
	}

	seen := make(map[string]bool)
	var out []Entry
	for _, b := range list {
		dirents, ok := byBranch[b]
		if !ok {
			continue
		}
		for _, de := range dirents {
			if seen[de.Name()] {
				continue
			}
			seen[de.Name()] = true
			out = append(out, Entry{Name: de.Name(), IsDir: de.IsDir(), Source: b})
		}
	}
	return out
}

func appendBranchEntries(b *branch.Branch, fusePath string, seen map[string]bool, out *[]Entry) {
	if !b.Enabled {
		return
	}
	dirents, err := os.ReadDir(resolverPath(b, fusePath))
	if err != nil {
		return
	}
	for _, de := range dirents {
		if seen[de.Name()] {
			continue
		}
		seen[de.Name()] = true
		*out = append(*out, Entry{Name: de.Name(), IsDir: de.IsDir(), Source: b})
	}
}

func resolverPath(b *branch.Branch, fusePath string) string {
	if fusePath == "" || fusePath == "/" {
		return b.Path
	}
	return b.Path + fusePath
}
