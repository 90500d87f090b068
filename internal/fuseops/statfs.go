package fuseops

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/config"
)

var _ fs.NodeStatfser = (*Node)(nil)

// Statfs aggregates across branches per spec.md §4.6: blocks/bfree/
// bavail/files/ffree are summed over unique device IDs (so two
// branches on the same filesystem aren't double-counted); bsize/frsize
// take the minimum across branches. statfs-ignore can drop RO and/or
// NC branches from the sum first.
func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	opt := n.fsys.Options()
	list := n.fsys.snapshot()

	var errno syscall.Errno
	withCreds(ctx, func() error {
		seen := make(map[uint64]bool, len(list))
		var blocks, bfree, bavail, files, ffree uint64
		var bsize, frsize uint32

		for _, b := range list {
			if !b.Enabled {
				continue
			}
			if opt.StatfsIgnore == config.StatfsIgnoreRO && b.Mode == branch.RO {
				continue
			}
			if opt.StatfsIgnore == config.StatfsIgnoreNC && b.Mode == branch.NC {
				continue
			}
			if seen[b.DeviceID] {
				continue
			}
			seen[b.DeviceID] = true

			info, err := n.fsys.Stat.Statfs(b.Path)
			if err != nil {
				continue
			}
			blocks += info.Blocks
			bfree += info.BlocksFree
			bavail += info.BlocksAvail
			files += info.Files
			ffree += info.FilesFree
			if bsize == 0 || uint32(info.BlockSize) < bsize {
				bsize = uint32(info.BlockSize)
			}
			if frsize == 0 || uint32(info.BlockSize) < frsize {
				frsize = uint32(info.BlockSize)
			}
			// statfs=base reports only the first qualifying
			// branch's own filesystem rather than the union
			// aggregate, per spec.md §6's "base vs. full" knob.
			if opt.Statfs == config.StatfsBase {
				break
			}
		}
		if bsize == 0 {
			bsize = 4096
		}
		if frsize == 0 {
			frsize = bsize
		}

		out.Blocks = blocks
		out.Bfree = bfree
		out.Bavail = bavail
		out.Files = files
		out.Ffree = ffree
		out.Bsize = bsize
		out.Frsize = frsize
		out.NameLen = 255
		return nil
	})
	return errno
}
