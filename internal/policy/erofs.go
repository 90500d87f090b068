package policy

import (
	"syscall"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func init() { register(&Erofs{}) }

// Erofs is the write-disable policy: every create (and, when configured
// as the action policy, every action) fails with EROFS regardless of
// branch state. Search still works normally so reads are unaffected.
//
// New: no rclone analogue; trivial by construction.
type Erofs struct{ FF }

func (Erofs) Name() string { return "erofs" }

func (Erofs) Action(env *Env, list branch.List, path string) (branch.List, error) {
	return nil, syscall.EROFS
}

func (Erofs) Create(env *Env, list branch.List, path string) (*branch.Branch, error) {
	return nil, syscall.EROFS
}
