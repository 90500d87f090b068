// Package resolver turns a (branch, FUSE path) pair into a backing path,
// and implements path cloning: reproducing missing ancestor directories
// on a create target branch before the create syscall runs.
//
// New: no single rclone file clones ancestor directories (remotes create
// parents implicitly), so the cloning algorithm itself is original;
// the POSIX primitives it calls (Lstat/Mkdir/Lchown/UtimesNanoAt and
// xattr get/set) are grounded on backend/local/{lchtimes_unix,
// lchmod_unix,xattr}.go.
package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"

	"github.com/unionfuse/unionfuse/internal/branch"
)

// BackingPath joins a branch root with a FUSE-visible path.
func BackingPath(b *branch.Branch, fusePath string) string {
	return filepath.Join(b.Path, fusePath)
}

// SearchFunc finds a branch holding path, used as the "where do I clone
// an ancestor from" lookup — callers pass their configured search policy.
type SearchFunc func(fusePath string) (*branch.Branch, error)

// ancestors returns the list of ancestor FUSE paths of path, from the
// mount root's immediate child down to path's own parent, e.g. for
// "/a/b/c" it returns ["/a", "/a/b"].
func ancestors(path string) []string {
	clean := strings.Trim(filepath.Clean(path), "/")
	if clean == "" || clean == "." {
		return nil
	}
	parts := strings.Split(clean, "/")
	var out []string
	for i := 1; i < len(parts); i++ {
		out = append(out, "/"+strings.Join(parts[:i], "/"))
	}
	return out
}

// CloneAncestors walks path's ancestors on dst, and for each one missing,
// finds the same ancestor via search on some branch and reproduces its
// mode/owner/times/xattrs on dst. Aborts on the first error that isn't
// EEXIST (a benign race with a concurrent creator).
func CloneAncestors(dst *branch.Branch, path string, search SearchFunc) error {
	for _, anc := range ancestors(path) {
		target := BackingPath(dst, anc)
		if _, err := os.Lstat(target); err == nil {
			continue // already present
		}
		src, err := search(anc)
		if err != nil {
			return err
		}
		if err := cloneDir(src, dst, anc); err != nil && err != syscall.EEXIST {
			return err
		}
	}
	return nil
}

// cloneDir reproduces the directory at FUSE path "anc", found on src, at
// the same relative location on dst, copying mode/owner/times/xattrs.
func cloneDir(src, dst *branch.Branch, anc string) error {
	srcPath := BackingPath(src, anc)
	dstPath := BackingPath(dst, anc)

	var st unix.Stat_t
	if err := unix.Lstat(srcPath, &st); err != nil {
		return err
	}

	if err := unix.Mkdir(dstPath, st.Mode&0o7777); err != nil {
		return err
	}
	if err := unix.Lchown(dstPath, int(st.Uid), int(st.Gid)); err != nil {
		return err
	}
	atime := unix.NsecToTimespec(st.Atim.Nano())
	mtime := unix.NsecToTimespec(st.Mtim.Nano())
	times := [2]unix.Timespec{atime, mtime}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, dstPath, times[:], unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return err
	}
	return cloneXattrs(srcPath, dstPath)
}

// cloneXattrs copies every extended attribute from src to dst. Missing
// xattr support on either side is not an error — it just means nothing
// to copy.
func cloneXattrs(src, dst string) error {
	names, err := xattr.LList(src)
	if err != nil {
		if xattrUnsupported(err) {
			return nil
		}
		return err
	}
	for _, name := range names {
		val, err := xattr.LGet(src, name)
		if err != nil {
			continue
		}
		if err := xattr.LSet(dst, name, val); err != nil && !xattrUnsupported(err) {
			return err
		}
	}
	return nil
}

func xattrUnsupported(err error) bool {
	return errors.Is(err, syscall.ENOTSUP) || errors.Is(err, syscall.EOPNOTSUPP) || errors.Is(err, xattr.ENOATTR)
}
