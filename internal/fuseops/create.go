package fuseops

import (
	"context"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/resolver"
)

var (
	_ fs.NodeMkdirer   = (*Node)(nil)
	_ fs.NodeMknoder   = (*Node)(nil)
	_ fs.NodeSymlinker = (*Node)(nil)
	_ fs.NodeCreater   = (*Node)(nil)
)

// withoutBranch returns a copy of list with b removed, for the single
// ENOSPC/EDQUOT retry spec.md §4.6 allows on create-class operations.
func withoutBranch(list branch.List, b *branch.Branch) branch.List {
	out := make(branch.List, 0, len(list))
	for _, cand := range list {
		if cand != b {
			out = append(out, cand)
		}
	}
	return out
}

// searchFuncFor builds a resolver.SearchFunc from the configured search
// policy, used by path cloning to find an ancestor's attributes.
func (n *Node) searchFuncFor() resolver.SearchFunc {
	return func(fusePath string) (*branch.Branch, error) {
		pol, err := n.fsys.policyFor("getattr", "search")
		if err != nil {
			return nil, err
		}
		return pol.Search(n.fsys.policyEnv(), n.fsys.snapshot(), fusePath)
	}
}

// createOn resolves the create-category branch for path, clones missing
// ancestors onto it, and invokes doCreate. On ENOSPC/EDQUOT it retries
// once against the next-best branch with the original choice excluded,
// per spec.md §4.6.
func (n *Node) createOn(path string, doCreate func(backing string) error) (*branch.Branch, error) {
	pol, err := n.fsys.policyFor("create", "create")
	if err != nil {
		return nil, err
	}
	env := n.fsys.policyEnv()
	list := n.fsys.snapshot()

	b, err := pol.Create(env, list, path)
	if err != nil {
		return nil, err
	}

	try := func(target *branch.Branch) error {
		if err := resolver.CloneAncestors(target, path, n.searchFuncFor()); err != nil {
			return err
		}
		return doCreate(resolver.BackingPath(target, path))
	}

	err = try(b)
	if err == syscall.ENOSPC || err == syscall.EDQUOT {
		retryList := withoutBranch(list, b)
		if b2, rerr := pol.Create(env, retryList, path); rerr == nil {
			if err2 := try(b2); err2 == nil {
				return b2, nil
			} else {
				return nil, err2
			}
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (n *Node) entryFor(b *branch.Branch, path string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	var st unix.Stat_t
	if err := unix.Lstat(resolver.BackingPath(b, path), &st); err != nil {
		return nil, toErrno(err)
	}
	n.statAttr(&st, path, &out.Attr)
	child := n.newChild(path)
	mode := uint32(st.Mode) & syscall.S_IFMT
	return n.NewInode(context.Background(), child, fs.StableAttr{Mode: mode, Ino: out.Attr.Ino}), 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := childPath(n.fusePath, name)
	var b *branch.Branch
	var errno syscall.Errno
	withCreds(ctx, func() error {
		var err error
		b, err = n.createOn(path, func(backing string) error {
			return unix.Mkdir(backing, mode&0o7777)
		})
		if err != nil {
			errno = toErrno(err)
		}
		return nil
	})
	if errno != 0 {
		return nil, errno
	}
	return n.entryFor(b, path, out)
}

func (n *Node) Mknod(ctx context.Context, name string, mode uint32, dev uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := childPath(n.fusePath, name)
	var b *branch.Branch
	var errno syscall.Errno
	withCreds(ctx, func() error {
		var err error
		b, err = n.createOn(path, func(backing string) error {
			return unix.Mknod(backing, mode, int(dev))
		})
		if err != nil {
			errno = toErrno(err)
		}
		return nil
	})
	if errno != 0 {
		return nil, errno
	}
	return n.entryFor(b, path, out)
}

func (n *Node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := childPath(n.fusePath, name)
	var b *branch.Branch
	var errno syscall.Errno
	withCreds(ctx, func() error {
		var err error
		b, err = n.createOn(path, func(backing string) error {
			return unix.Symlink(target, backing)
		})
		if err != nil {
			errno = toErrno(err)
		}
		return nil
	})
	if errno != 0 {
		return nil, errno
	}
	return n.entryFor(b, path, out)
}

// Create is the open-for-write-with-O_CREAT fast path: like Mkdir et
// al. it's create-category, but it also hands back a FileHandle so the
// kernel doesn't need a separate Open round-trip.
func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	path := childPath(n.fusePath, name)
	var b *branch.Branch
	var errno syscall.Errno
	var f *os.File
	withCreds(ctx, func() error {
		var err error
		b, err = n.createOn(path, func(backing string) error {
			fd, oerr := unix.Open(backing, int(flags)|unix.O_CREAT|unix.O_EXCL, mode&0o7777)
			if oerr != nil {
				return oerr
			}
			f = os.NewFile(uintptr(fd), backing)
			return nil
		})
		if err != nil {
			errno = toErrno(err)
		}
		return nil
	})
	if errno != 0 {
		return nil, nil, 0, errno
	}
	child, errno := n.entryFor(b, path, out)
	if errno != 0 {
		return nil, nil, 0, errno
	}
	fh := newFileHandle(n.fsys, f, b, path, flags)
	return child, fh, 0, 0
}
