package fuseops

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/policy"
	"github.com/unionfuse/unionfuse/internal/resolver"
	"github.com/unionfuse/unionfuse/internal/spillcopy"
)

// spill implements spec.md §4.8: relocate h's backing file to another
// branch after a write hit ENOSPC/EDQUOT, then let the caller retry the
// write. h.mu is already held by Write for the duration of this call,
// so no separate per-handle lock is taken here (spec.md §5's "spill
// mutex" IS fileHandle.mu).
func (h *fileHandle) spill(ctx context.Context) syscall.Errno {
	opt := h.fsys.Options()
	spillPolicyName := opt.SpillPolicy
	if spillPolicyName == "" {
		spillPolicyName = opt.CategoryCreate
	}

	env := h.fsys.policyEnv()
	oldBranch := h.branch
	list := withoutBranch(h.fsys.snapshot(), oldBranch)

	pol, err := policy.Get(spillPolicyName)
	if err != nil {
		return syscall.ENOSPC
	}
	dst, err := pol.Create(env, list, h.path)
	if err != nil {
		return toErrno(err)
	}

	search := func(fusePath string) (*branch.Branch, error) {
		searchPol, serr := h.fsys.policyFor("getattr", "search")
		if serr != nil {
			return nil, serr
		}
		return searchPol.Search(env, h.fsys.snapshot(), fusePath)
	}
	if err := resolver.CloneAncestors(dst, h.path, search); err != nil {
		return toErrno(err)
	}

	dstBacking := resolver.BackingPath(dst, h.path)
	tmpPath := fmt.Sprintf("%s.unionfuse-spill-%d", dstBacking, os.Getpid())

	srcInfo, err := h.file.Stat()
	if err != nil {
		return toErrno(err)
	}

	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, srcInfo.Mode().Perm())
	if err != nil {
		return toErrno(err)
	}
	if err := spillcopy.File(h.file, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return toErrno(err)
	}
	if err := spillcopy.CopyMetadata(srcInfo, tmpPath); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return toErrno(err)
	}
	srcBacking := resolver.BackingPath(oldBranch, h.path)
	if names, lerr := xattr.LList(srcBacking); lerr == nil {
		for _, name := range names {
			if val, gerr := xattr.LGet(srcBacking, name); gerr == nil {
				_ = xattr.LSet(tmpPath, name, val)
			}
		}
	}
	tmp.Close()

	if err := os.Rename(tmpPath, dstBacking); err != nil {
		os.Remove(tmpPath)
		return toErrno(err)
	}

	newFd, err := unix.Open(dstBacking, int(h.flags), 0)
	if err != nil {
		return toErrno(err)
	}

	old := h.file
	oldBacking := resolver.BackingPath(oldBranch, h.path)
	h.file = os.NewFile(uintptr(newFd), dstBacking)
	h.branch = dst
	old.Close()
	unix.Unlink(oldBacking)

	h.fsys.Stat.Invalidate(dst.Path)
	h.fsys.Stat.Invalidate(oldBranch.Path)
	return 0
}
