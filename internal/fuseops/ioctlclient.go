package fuseops

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctlBufSize bounds every control-plane request/response; the four
// payloads (an option name, a key=value pair, a config dump, a file-info
// triple) are all small, so one generous fixed buffer avoids a two-call
// "ask for the size, then fetch" dance.
const ioctlBufSize = 16 << 10

// issueIoctl is the userspace half of the control plane (the kernel half
// dispatches through Node.Ioctl): it opens path, copies input into a
// buffer sized for both directions, and issues the raw ioctl(2) syscall
// FUSE forwards to Node.Ioctl. Used by the "control" CLI subcommand and
// by an out-of-tree LD_PRELOAD shim built against this package.
func issueIoctl(path string, cmd uint32, input string) (string, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, ioctlBufSize)
	copy(buf, input)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(cmd), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return "", fmt.Errorf("unionfuse: ioctl: %w", errno)
	}
	end := 0
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	return string(buf[:end]), nil
}

// GetOption issues IOCTL_GET_OPTION against the mount root.
func GetOption(mountpoint, key string) (string, error) {
	return issueIoctl(mountpoint, IOCTL_GET_OPTION, key)
}

// SetOption issues IOCTL_SET_OPTION against the mount root.
func SetOption(mountpoint, key, val string) error {
	_, err := issueIoctl(mountpoint, IOCTL_SET_OPTION, key+"="+val)
	return err
}

// GetConfig issues IOCTL_GET_CONFIG against the mount root.
func GetConfig(mountpoint string) (string, error) {
	return issueIoctl(mountpoint, IOCTL_GET_CONFIG, "")
}

// FileInfo issues IOCTL_FILE_INFO against an already-open file somewhere
// under the mount, reporting which branch backs it.
func FileInfo(path string) (string, error) {
	return issueIoctl(path, IOCTL_FILE_INFO, "")
}
