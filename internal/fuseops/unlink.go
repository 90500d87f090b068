package fuseops

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"golang.org/x/sys/unix"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/resolver"
)

var (
	_ fs.NodeUnlinker = (*Node)(nil)
	_ fs.NodeRmdirer  = (*Node)(nil)
)

// actionOn resolves the action-category branches for path and applies
// fn to each, per spec.md §4.6's union semantics (ENOENT on branches
// other than the first success is expected and suppressed).
func (n *Node) actionOn(opcode, path string, fn func(*branch.Branch) error) syscall.Errno {
	pol, err := n.fsys.policyFor(opcode, "action")
	if err != nil {
		return syscall.EINVAL
	}
	branches, err := pol.Action(n.fsys.policyEnv(), n.fsys.snapshot(), path)
	if err != nil {
		return toErrno(err)
	}
	return applyToAll(branches, fn)
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	path := childPath(n.fusePath, name)
	var errno syscall.Errno
	withCreds(ctx, func() error {
		errno = n.actionOn("unlink", path, func(b *branch.Branch) error {
			err := unix.Unlink(resolver.BackingPath(b, path))
			if err == nil {
				n.fsys.Stat.Invalidate(b.Path)
			}
			return err
		})
		return nil
	})
	return errno
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	path := childPath(n.fusePath, name)
	var errno syscall.Errno
	withCreds(ctx, func() error {
		errno = n.actionOn("rmdir", path, func(b *branch.Branch) error {
			err := unix.Rmdir(resolver.BackingPath(b, path))
			if err == nil {
				n.fsys.Stat.Invalidate(b.Path)
			}
			return err
		})
		return nil
	})
	return errno
}
