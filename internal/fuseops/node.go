package fuseops

import (
	"context"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/inode"
	"github.com/unionfuse/unionfuse/internal/resolver"
)

// Node is one entry in the union tree. Unlike a loopback filesystem's
// node (which maps 1:1 onto a single backing path under one root), a
// Node here only knows its FUSE-visible path; every operation re-runs
// the configured policy against the live branch snapshot to decide
// which backing path(s) to touch, per spec.md §4.9's "the core does
// not distinguish an upper/lower layer" design.
//
// Grounded on the embedding shape soitun-go-fuse/fs/api.go documents
// (InodeEmbedder, NodeLookuper, ...) and on gcsfuse/fs/fs.go's single
// struct implementing the full opcode surface.
type Node struct {
	fs.Inode

	fsys     *FS
	fusePath string // "" for the mount root, else "/a/b" (no trailing slash)
}

var (
	_ fs.InodeEmbedder   = (*Node)(nil)
	_ fs.NodeLookuper    = (*Node)(nil)
	_ fs.NodeGetattrer   = (*Node)(nil)
	_ fs.NodeSetattrer   = (*Node)(nil)
	_ fs.NodeReadlinker  = (*Node)(nil)
	_ fs.NodeAccesser    = (*Node)(nil)
	_ fs.NodeGetxattrer  = (*Node)(nil)
	_ fs.NodeSetxattrer  = (*Node)(nil)
	_ fs.NodeListxattrer = (*Node)(nil)
	_ fs.NodeRemovexattrer = (*Node)(nil)
)

func childPath(parent, name string) string {
	if parent == "" {
		return "/" + name
	}
	return parent + "/" + name
}

func (n *Node) newChild(path string) *Node {
	return &Node{fsys: n.fsys, fusePath: path}
}

// toErrno maps a backing syscall error to the Errno go-fuse wants.
func toErrno(err error) syscall.Errno {
	return fs.ToErrno(err)
}

// statAttr fills out from a raw stat buffer, replacing st_ino with the
// configured inode-synthesis algorithm's result per spec.md §4.4, and,
// for directories, replacing st_nlink with the sum across every branch
// that contains them. The summing always happens; no option turns it off.
func (n *Node) statAttr(st *unix.Stat_t, fusePath string, out *fuse.Attr) {
	out.FromStat(toSyscallStat(st))
	algo, bits, _ := inode.ParseAlgorithm(n.fsys.Options().InodeCalc)
	isDir := st.Mode&unix.S_IFMT == unix.S_IFDIR
	out.Ino = inode.ComputeBits(algo, bits, fusePath, uint64(st.Dev), uint64(st.Ino), isDir)
	if isDir {
		out.Nlink = n.sumDirLinks(fusePath, out.Nlink)
	}
}

// sumDirLinks adds together st_nlink from every branch containing
// fusePath as a directory, lstat-ing every branch in the snapshot; first
// is returned unchanged when no branch holds fusePath as a directory.
func (n *Node) sumDirLinks(fusePath string, first uint32) uint32 {
	list := n.fsys.snapshot()
	var total uint32
	counted := false
	for _, b := range list {
		var st unix.Stat_t
		if err := unix.Lstat(resolver.BackingPath(b, fusePath), &st); err != nil {
			continue
		}
		if st.Mode&unix.S_IFMT != unix.S_IFDIR {
			continue
		}
		total += uint32(st.Nlink)
		counted = true
	}
	if !counted {
		return first
	}
	return total
}

// toSyscallStat copies the subset of unix.Stat_t that fuse.Attr.FromStat
// reads into a syscall.Stat_t. The two types describe the same kernel
// struct but are declared independently by golang.org/x/sys/unix and
// the standard library, so fields are copied rather than cast.
func toSyscallStat(st *unix.Stat_t) *syscall.Stat_t {
	return &syscall.Stat_t{
		Dev:     uint64(st.Dev),
		Ino:     st.Ino,
		Nlink:   uint64(st.Nlink),
		Mode:    st.Mode,
		Uid:     st.Uid,
		Gid:     st.Gid,
		Rdev:    uint64(st.Rdev),
		Size:    st.Size,
		Blksize: int64(st.Blksize),
		Blocks:  st.Blocks,
		Atim:    syscall.Timespec{Sec: st.Atim.Sec, Nsec: st.Atim.Nsec},
		Mtim:    syscall.Timespec{Sec: st.Mtim.Sec, Nsec: st.Mtim.Nsec},
		Ctim:    syscall.Timespec{Sec: st.Ctim.Sec, Nsec: st.Ctim.Nsec},
	}
}

// Lookup implements the search category for plain name resolution:
// find the first branch (in list order) holding childPath(parent,
// name) and stat it there.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := childPath(n.fusePath, name)
	var st unix.Stat_t
	var errno syscall.Errno
	withCreds(ctx, func() error {
		pol, err := n.fsys.policyFor("lookup", "search")
		if err != nil {
			errno = syscall.EINVAL
			return nil
		}
		b, err := pol.Search(n.fsys.policyEnv(), n.fsys.snapshot(), path)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		if err := unix.Lstat(resolver.BackingPath(b, path), &st); err != nil {
			errno = toErrno(err)
			return nil
		}
		return nil
	})
	if errno != 0 {
		return nil, errno
	}
	n.statAttr(&st, path, &out.Attr)
	child := n.newChild(path)
	mode := uint32(st.Mode) & syscall.S_IFMT
	ch := n.NewInode(ctx, child, fs.StableAttr{Mode: mode, Ino: out.Attr.Ino})
	return ch, 0
}

// Getattr is search-category: an open handle (when present) pins the
// branch already, otherwise re-run search.
func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if fh, ok := f.(*fileHandle); ok {
		var st unix.Stat_t
		if err := unix.Fstat(int(fh.file.Fd()), &st); err != nil {
			return toErrno(err)
		}
		n.statAttr(&st, n.fusePath, &out.Attr)
		return 0
	}

	var st unix.Stat_t
	var errno syscall.Errno
	withCreds(ctx, func() error {
		pol, err := n.fsys.policyFor("getattr", "search")
		if err != nil {
			errno = syscall.EINVAL
			return nil
		}
		b, err := pol.Search(n.fsys.policyEnv(), n.fsys.snapshot(), n.fusePath)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		if err := unix.Lstat(resolver.BackingPath(b, n.fusePath), &st); err != nil {
			errno = toErrno(err)
			return nil
		}
		return nil
	})
	if errno != 0 {
		return errno
	}
	n.statAttr(&st, n.fusePath, &out.Attr)
	return 0
}

// Setattr implements chmod/chown/utimens/truncate. Per spec.md §4.6
// these are action-category: applied to every branch holding the path,
// with ENOENT-on-other-branches suppressed. When the request carries an
// open handle, the write is pinned to that handle's branch instead,
// since the client's fd already committed to one backing file.
func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if fh, ok := f.(*fileHandle); ok {
		if errno := applySetattr(fh.file.Fd(), in); errno != 0 {
			return errno
		}
		var st unix.Stat_t
		if err := unix.Fstat(int(fh.file.Fd()), &st); err != nil {
			return toErrno(err)
		}
		n.statAttr(&st, n.fusePath, &out.Attr)
		return 0
	}

	var errno syscall.Errno
	withCreds(ctx, func() error {
		pol, err := n.fsys.policyFor("setattr", "action")
		if err != nil {
			errno = syscall.EINVAL
			return nil
		}
		branches, err := pol.Action(n.fsys.policyEnv(), n.fsys.snapshot(), n.fusePath)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		errno = applyToAll(branches, func(b *branch.Branch) error {
			return applySetattrPath(resolver.BackingPath(b, n.fusePath), in)
		})
		return nil
	})
	if errno != 0 {
		return errno
	}

	var st unix.Stat_t
	withCreds(ctx, func() error {
		pol, _ := n.fsys.policyFor("getattr", "search")
		if pol == nil {
			return nil
		}
		b, err := pol.Search(n.fsys.policyEnv(), n.fsys.snapshot(), n.fusePath)
		if err != nil {
			return nil
		}
		unix.Lstat(resolver.BackingPath(b, n.fusePath), &st)
		return nil
	})
	n.statAttr(&st, n.fusePath, &out.Attr)
	return 0
}

func applySetattr(fd uintptr, in *fuse.SetAttrIn) syscall.Errno {
	if mode, ok := in.GetMode(); ok {
		if err := unix.Fchmod(int(fd), mode&0o7777); err != nil {
			return toErrno(err)
		}
	}
	uid, uok := in.GetUID()
	gid, gok := in.GetGID()
	if uok || gok {
		u, g := -1, -1
		if uok {
			u = int(uid)
		}
		if gok {
			g = int(gid)
		}
		if err := unix.Fchown(int(fd), u, g); err != nil {
			return toErrno(err)
		}
	}
	if size, ok := in.GetSize(); ok {
		if err := unix.Ftruncate(int(fd), int64(size)); err != nil {
			return toErrno(err)
		}
	}
	if mtime, ok := in.GetMTime(); ok {
		atime, aok := in.GetATime()
		if !aok {
			atime = mtime
		}
		times := [2]unix.Timespec{unix.NsecToTimespec(atime.UnixNano()), unix.NsecToTimespec(mtime.UnixNano())}
		unix.UtimesNanoAt(unix.AT_FDCWD, fdPath(fd), times[:], 0)
	}
	return 0
}

// fdPath resolves an fd back to a path via /proc/self/fd, needed only
// for the utimensat call above since there is no futimens wrapper that
// takes a bare fd in golang.org/x/sys/unix.
func fdPath(fd uintptr) string {
	return "/proc/self/fd/" + itoa(int(fd))
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func applySetattrPath(path string, in *fuse.SetAttrIn) error {
	if mode, ok := in.GetMode(); ok {
		if err := unix.Chmod(path, mode&0o7777); err != nil {
			return err
		}
	}
	uid, uok := in.GetUID()
	gid, gok := in.GetGID()
	if uok || gok {
		u, g := -1, -1
		if uok {
			u = int(uid)
		}
		if gok {
			g = int(gid)
		}
		if err := unix.Lchown(path, u, g); err != nil {
			return err
		}
	}
	if size, ok := in.GetSize(); ok {
		if err := unix.Truncate(path, int64(size)); err != nil {
			return err
		}
	}
	if mtime, ok := in.GetMTime(); ok {
		atime, aok := in.GetATime()
		if !aok {
			atime = mtime
		}
		times := [2]unix.Timespec{unix.NsecToTimespec(atime.UnixNano()), unix.NsecToTimespec(mtime.UnixNano())}
		if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, times[:], unix.AT_SYMLINK_NOFOLLOW); err != nil {
			return err
		}
	}
	return nil
}

// applyToAll runs fn on every branch, implementing spec.md §4.6/§7's
// union error-suppression rule: success if at least one branch
// succeeded and the rest only failed with ENOENT; otherwise the first
// non-ENOENT error, or ENOENT itself if that's all there was.
func applyToAll(branches branch.List, fn func(*branch.Branch) error) syscall.Errno {
	var firstErr error
	succeeded := false
	sawENOENT := false
	for _, b := range branches {
		err := fn(b)
		switch {
		case err == nil:
			succeeded = true
		case err == syscall.ENOENT:
			sawENOENT = true
		case firstErr == nil:
			firstErr = err
		}
	}
	if firstErr != nil {
		return toErrno(firstErr)
	}
	if sawENOENT && !succeeded {
		return syscall.ENOENT
	}
	return 0
}

// Readlink is search-category. When symlinkify is enabled (default
// off, per spec.md §9's open question), Readlink on a plain regular
// file older than the configured timeout answers with that file's own
// backing path — an implementer-opt-in exposing the host path, never
// the default. Getattr and Lookup still report such a file as a
// regular file; they do not present it as a symlink.
func (n *Node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	var target string
	var errno syscall.Errno
	withCreds(ctx, func() error {
		pol, err := n.fsys.policyFor("readlink", "search")
		if err != nil {
			errno = syscall.EINVAL
			return nil
		}
		b, err := pol.Search(n.fsys.policyEnv(), n.fsys.snapshot(), n.fusePath)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		backing := resolver.BackingPath(b, n.fusePath)
		opt := n.fsys.Options()
		if opt.Symlinkify {
			if st, serr := os.Stat(backing); serr == nil && st.Mode().IsRegular() {
				if time.Since(st.ModTime()) > opt.SymlinkifyTimeout {
					target = backing
					return nil
				}
			}
		}
		link, err := os.Readlink(backing)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		target = link
		return nil
	})
	if errno != 0 {
		return nil, errno
	}
	return []byte(target), 0
}

// Access applies the real caller's credentials (via withCreds) to the
// backing branch found by the search policy.
func (n *Node) Access(ctx context.Context, mask uint32) syscall.Errno {
	var errno syscall.Errno
	withCreds(ctx, func() error {
		pol, err := n.fsys.policyFor("access", "search")
		if err != nil {
			errno = syscall.EINVAL
			return nil
		}
		b, err := pol.Search(n.fsys.policyEnv(), n.fsys.snapshot(), n.fusePath)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		if err := unix.Access(resolver.BackingPath(b, n.fusePath), mask); err != nil {
			errno = toErrno(err)
		}
		return nil
	})
	return errno
}

func (n *Node) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	if !n.fsys.Options().XattrEnabled {
		return 0, syscall.ENOTSUP
	}
	var n2 int
	var errno syscall.Errno
	withCreds(ctx, func() error {
		pol, err := n.fsys.policyFor("getxattr", "search")
		if err != nil {
			errno = syscall.EINVAL
			return nil
		}
		b, err := pol.Search(n.fsys.policyEnv(), n.fsys.snapshot(), n.fusePath)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		val, err := xattr.LGet(resolver.BackingPath(b, n.fusePath), attr)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		if len(dest) < len(val) {
			n2 = len(val)
			errno = syscall.ERANGE
			return nil
		}
		n2 = copy(dest, val)
		return nil
	})
	return uint32(n2), errno
}

func (n *Node) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	if !n.fsys.Options().XattrEnabled {
		return 0, 0
	}
	var buf []byte
	var errno syscall.Errno
	withCreds(ctx, func() error {
		pol, err := n.fsys.policyFor("listxattr", "search")
		if err != nil {
			errno = syscall.EINVAL
			return nil
		}
		b, err := pol.Search(n.fsys.policyEnv(), n.fsys.snapshot(), n.fusePath)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		names, err := xattr.LList(resolver.BackingPath(b, n.fusePath))
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		buf = []byte(strings.Join(names, "\x00") + "\x00")
		return nil
	})
	if errno != 0 {
		return 0, errno
	}
	if len(dest) < len(buf) {
		return uint32(len(buf)), syscall.ERANGE
	}
	return uint32(copy(dest, buf)), 0
}

// Setxattr/Removexattr are action-category per spec.md §4.6.
func (n *Node) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	if !n.fsys.Options().XattrEnabled {
		return syscall.ENOTSUP
	}
	var errno syscall.Errno
	withCreds(ctx, func() error {
		pol, err := n.fsys.policyFor("setxattr", "action")
		if err != nil {
			errno = syscall.EINVAL
			return nil
		}
		branches, err := pol.Action(n.fsys.policyEnv(), n.fsys.snapshot(), n.fusePath)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		errno = applyToAll(branches, func(b *branch.Branch) error {
			return xattr.LSetWithFlags(resolver.BackingPath(b, n.fusePath), attr, data, int(flags))
		})
		return nil
	})
	return errno
}

func (n *Node) Removexattr(ctx context.Context, attr string) syscall.Errno {
	if !n.fsys.Options().XattrEnabled {
		return syscall.ENOTSUP
	}
	var errno syscall.Errno
	withCreds(ctx, func() error {
		pol, err := n.fsys.policyFor("removexattr", "action")
		if err != nil {
			errno = syscall.EINVAL
			return nil
		}
		branches, err := pol.Action(n.fsys.policyEnv(), n.fsys.snapshot(), n.fusePath)
		if err != nil {
			errno = toErrno(err)
			return nil
		}
		errno = applyToAll(branches, func(b *branch.Branch) error {
			return xattr.LRemove(resolver.BackingPath(b, n.fusePath), attr)
		})
		return nil
	})
	return errno
}

// fullFusePath returns the mount-relative path for n, reporting the
// mount root as "/" rather than "". The handlers in this package read
// n.fusePath directly; none of them calls fullFusePath.
func (n *Node) fullFusePath() string {
	if n.fusePath == "" {
		return "/"
	}
	return n.fusePath
}
