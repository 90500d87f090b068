package fuseops

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"

	"github.com/unionfuse/unionfuse/internal/config"
)

// The control-plane ioctl numbers (§6/C11). These are not kernel ioctl
// request codes in the _IOC() sense; an LD_PRELOAD shim or a CLI "control"
// subcommand issues them against an fd opened under the mount, so
// only the four values need to be stable between this binary's build and
// whatever issues them.
const (
	IOCTL_GET_OPTION uint32 = 0x75f1 + iota
	IOCTL_SET_OPTION
	IOCTL_GET_CONFIG
	IOCTL_FILE_INFO
)

var _ fs.NodeIoctler = (*Node)(nil)

// Ioctl implements the four control-plane requests described in §6,
// marshaling every payload as newline-terminated ASCII "key=value" text
// rather than a packed binary struct, since every consumer (a shell
// script, an LD_PRELOAD shim) finds text easier to produce and parse than
// a C struct layout. IOCTL_FILE_INFO is answered on any inode, since it
// describes the open handle it was issued on; every other request is
// answered only by the mount root, and any other inode returns ENOTTY,
// matching ioctl(2)'s behavior for an fd that doesn't support the request.
func (n *Node) Ioctl(ctx context.Context, f fs.FileHandle, cmd uint32, arg uint64, input []byte, output []byte) (int32, syscall.Errno) {
	if n.fusePath != "" && cmd != IOCTL_FILE_INFO {
		return 0, syscall.ENOTTY
	}
	switch cmd {
	case IOCTL_GET_OPTION:
		return n.ioctlGetOption(input, output)
	case IOCTL_SET_OPTION:
		return n.ioctlSetOption(input)
	case IOCTL_GET_CONFIG:
		return n.ioctlGetConfig(output)
	case IOCTL_FILE_INFO:
		return n.ioctlFileInfo(f, output)
	default:
		return 0, syscall.ENOTTY
	}
}

func writeOut(output, payload []byte) int32 {
	return int32(copy(output, payload))
}

// ioctlGetOption reads one "key\n" request and answers "value\n".
func (n *Node) ioctlGetOption(input, output []byte) (int32, syscall.Errno) {
	key := strings.TrimSpace(string(input))
	val, ok := config.Get(n.fsys.Options(), key)
	if !ok {
		return 0, syscall.EINVAL
	}
	return writeOut(output, []byte(val+"\n")), 0
}

// ioctlSetOption applies one "key=value\n" request to a copy of the live
// options, then swaps it in, matching ReplaceOptions' CoW contract.
func (n *Node) ioctlSetOption(input []byte) (int32, syscall.Errno) {
	kv := strings.TrimSpace(string(input))
	key, val, hasVal := strings.Cut(kv, "=")
	if !hasVal {
		return 0, syscall.EINVAL
	}
	cur := n.fsys.Options()
	next := *cur
	next.FuncOverrides = make(map[string]string, len(cur.FuncOverrides))
	for k, v := range cur.FuncOverrides {
		next.FuncOverrides[k] = v
	}
	if err := config.Set(&next, key, val); err != nil {
		return 0, syscall.EINVAL
	}
	n.fsys.ReplaceOptions(&next)
	return 0, 0
}

// ioctlGetConfig dumps every known key=value pair, newline-separated.
func (n *Node) ioctlGetConfig(output []byte) (int32, syscall.Errno) {
	lines := config.Dump(n.fsys.Options())
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	if buf.Len() > len(output) {
		return int32(buf.Len()), syscall.ERANGE
	}
	return writeOut(output, buf.Bytes()), 0
}

// ioctlFileInfo reports the backing branch and path for an already-open
// file handle, the piece an LD_PRELOAD shim needs to re-open the real
// file directly and bypass the union for I/O-heavy workloads.
func (n *Node) ioctlFileInfo(f fs.FileHandle, output []byte) (int32, syscall.Errno) {
	fh, ok := f.(*fileHandle)
	if !ok {
		return 0, syscall.EINVAL
	}
	fh.mu.Lock()
	branchPath := fh.branch.Path
	fusePath := fh.path
	fh.mu.Unlock()
	payload := "branch=" + branchPath + "\npath=" + fusePath + "\nfd=" + strconv.Itoa(int(fh.file.Fd())) + "\n"
	if len(payload) > len(output) {
		return int32(len(payload)), syscall.ERANGE
	}
	return writeOut(output, []byte(payload)), 0
}
