package fuseops

import (
	"context"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/config"
	"github.com/unionfuse/unionfuse/internal/policy"
	"github.com/unionfuse/unionfuse/internal/resolver"
)

var (
	_ fs.NodeRenamer = (*Node)(nil)
	_ fs.NodeLinker  = (*Node)(nil)
)

// searchAllBranches runs the "all" policy's Action method, which is
// exactly spec.md §4.6's "search-all" helper: every branch (in list
// order) that actually contains path.
func searchAllBranches(env *policy.Env, list branch.List, path string) (branch.List, error) {
	all, err := policy.Get("all")
	if err != nil {
		return nil, err
	}
	return all.Action(env, list, path)
}

// Rename implements spec.md §4.6's algorithm: enumerate branches
// holding src, enumerate the (single, by this implementation's reading
// of "create policy run against the dst path") branch eligible to
// receive dst, rename(2) on their intersection, and apply the
// configured rename-exdev fallback to every src branch outside it.
func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	dstNode, ok := newParent.(*Node)
	if !ok {
		return syscall.EINVAL
	}
	srcPath := childPath(n.fusePath, name)
	dstPath := childPath(dstNode.fusePath, newName)

	var errno syscall.Errno
	withCreds(ctx, func() error {
		errno = n.doRename(srcPath, dstPath)
		return nil
	})
	return errno
}

func (n *Node) doRename(srcPath, dstPath string) syscall.Errno {
	env := n.fsys.policyEnv()
	list := n.fsys.snapshot()

	srcBranches, err := searchAllBranches(env, list, srcPath)
	if err != nil {
		return toErrno(err)
	}

	createPol, err := n.fsys.policyFor("rename", "create")
	if err != nil {
		return syscall.EINVAL
	}
	dstBranch, dstErr := createPol.Create(env, list, dstPath)

	succeeded := false
	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, b := range srcBranches {
		if dstErr == nil && b == dstBranch {
			if err := resolver.CloneAncestors(b, dstPath, n.searchFuncFor()); err != nil {
				note(err)
				continue
			}
			if err := unix.Rename(resolver.BackingPath(b, srcPath), resolver.BackingPath(b, dstPath)); err != nil {
				note(err)
				continue
			}
			succeeded = true
			continue
		}
		// b holds src but is not the dst branch: cross-branch move,
		// resolved per the configured rename-exdev policy.
		if err := n.renameExdev(b, srcPath, dstPath); err != nil {
			note(err)
			continue
		}
		succeeded = true
	}

	if !succeeded {
		if firstErr != nil {
			return toErrno(firstErr)
		}
		return syscall.ENOENT
	}
	return 0
}

// renameExdev handles one src branch that isn't also the dst branch:
// passthrough surfaces EXDEV (the caller falls back to copy+unlink
// itself, as rename(2) would for a real cross-device move); the
// symlink variants remove src and leave a symlink pointing at dst in
// its place, so existing references keep resolving.
func (n *Node) renameExdev(b *branch.Branch, srcPath, dstPath string) error {
	switch n.fsys.Options().RenameExdev {
	case config.ExdevPassthrough:
		return syscall.EXDEV
	case config.ExdevRelSymlink:
		rel, err := filepath.Rel(filepath.Dir(resolver.BackingPath(b, srcPath)), resolver.BackingPath(b, dstPath))
		if err != nil {
			return err
		}
		return replaceWithSymlink(resolver.BackingPath(b, srcPath), rel)
	case config.ExdevAbsBaseSymlink:
		return replaceWithSymlink(resolver.BackingPath(b, srcPath), dstPath)
	case config.ExdevAbsPoolSymlink:
		// No single "pool root" backing path exists for the
		// destination when src and dst sit on different branches by
		// construction; fall back to the mount-relative form.
		return replaceWithSymlink(resolver.BackingPath(b, srcPath), dstPath)
	default:
		return syscall.EXDEV
	}
}

func replaceWithSymlink(path, target string) error {
	if err := unix.Unlink(path); err != nil {
		return err
	}
	return unix.Symlink(target, path)
}

// Link implements hard-link creation. If the search policy's src branch
// and the create policy's dst branch coincide, a plain link(2) suffices;
// otherwise the configured link-exdev policy decides the fallback.
func (n *Node) Link(ctx context.Context, target fs.InodeEmbedder, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	srcNode, ok := target.(*Node)
	if !ok {
		return nil, syscall.EINVAL
	}
	dstPath := childPath(n.fusePath, name)
	srcPath := srcNode.fusePath

	var b *branch.Branch
	var errno syscall.Errno
	withCreds(ctx, func() error {
		searchPol, err := n.fsys.policyFor("getattr", "search")
		if err != nil {
			errno = syscall.EINVAL
			return nil
		}
		env := n.fsys.policyEnv()
		list := n.fsys.snapshot()
		srcBranch, err := searchPol.Search(env, list, srcPath)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		createPol, err := n.fsys.policyFor("link", "create")
		if err != nil {
			errno = syscall.EINVAL
			return nil
		}
		dstBranch, err := createPol.Create(env, list, dstPath)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		if err := resolver.CloneAncestors(dstBranch, dstPath, n.searchFuncFor()); err != nil {
			errno = toErrno(err)
			return nil
		}
		if srcBranch == dstBranch {
			if err := unix.Link(resolver.BackingPath(srcBranch, srcPath), resolver.BackingPath(dstBranch, dstPath)); err != nil {
				errno = toErrno(err)
				return nil
			}
			b = dstBranch
			return nil
		}
		if err := n.linkExdev(srcBranch, dstBranch, srcPath, dstPath); err != nil {
			errno = toErrno(err)
			return nil
		}
		b = dstBranch
		return nil
	})
	if errno != 0 {
		return nil, errno
	}
	return n.entryFor(b, dstPath, out)
}

func (n *Node) linkExdev(srcBranch, dstBranch *branch.Branch, srcPath, dstPath string) error {
	dstBacking := resolver.BackingPath(dstBranch, dstPath)
	switch n.fsys.Options().LinkExdev {
	case config.ExdevPassthrough:
		return syscall.EXDEV
	case config.ExdevRelSymlink:
		rel, err := filepath.Rel(filepath.Dir(dstBacking), resolver.BackingPath(srcBranch, srcPath))
		if err != nil {
			return err
		}
		return unix.Symlink(rel, dstBacking)
	case config.ExdevAbsBaseSymlink:
		return unix.Symlink(strings.TrimSuffix(srcPath, "/"), dstBacking)
	case config.ExdevAbsPoolSymlink:
		return unix.Symlink(resolver.BackingPath(srcBranch, srcPath), dstBacking)
	default:
		return syscall.EXDEV
	}
}
