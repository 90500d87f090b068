package fuseops

import (
	"context"
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/config"
)

func testFS(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	b := &branch.Branch{Path: dir, Mode: branch.RW, Enabled: true}
	reg := branch.NewRegistry(branch.List{b}, 0)
	log := logrus.New()
	log.SetOutput(io.Discard)
	opt := config.Default()
	return New(opt, reg, log)
}

func rootNode(fsys *FS) *Node {
	return &Node{fsys: fsys, fusePath: ""}
}

func TestIoctlOnNonRootReturnsENOTTY(t *testing.T) {
	n := &Node{fsys: testFS(t), fusePath: "/a"}
	_, errno := n.Ioctl(context.Background(), nil, IOCTL_GET_OPTION, 0, []byte("category.create"), make([]byte, 64))
	assert.Equal(t, syscall.ENOTTY, errno)
}

func TestIoctlGetOption(t *testing.T) {
	n := rootNode(testFS(t))
	out := make([]byte, 64)
	written, errno := n.Ioctl(context.Background(), nil, IOCTL_GET_OPTION, 0, []byte("category.create"), out)
	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, "epmfs\n", string(out[:written]))
}

func TestIoctlGetOptionUnknownKey(t *testing.T) {
	n := rootNode(testFS(t))
	_, errno := n.Ioctl(context.Background(), nil, IOCTL_GET_OPTION, 0, []byte("bogus"), make([]byte, 64))
	assert.Equal(t, syscall.EINVAL, errno)
}

func TestIoctlSetOptionThenGetOption(t *testing.T) {
	n := rootNode(testFS(t))
	_, errno := n.Ioctl(context.Background(), nil, IOCTL_SET_OPTION, 0, []byte("category.create=mfs"), nil)
	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, "mfs", n.fsys.Options().CategoryCreate)
}

func TestIoctlSetOptionMalformedInput(t *testing.T) {
	n := rootNode(testFS(t))
	_, errno := n.Ioctl(context.Background(), nil, IOCTL_SET_OPTION, 0, []byte("no-equals-sign"), nil)
	assert.Equal(t, syscall.EINVAL, errno)
}

func TestIoctlGetConfigContainsKnownKey(t *testing.T) {
	n := rootNode(testFS(t))
	out := make([]byte, 4096)
	written, errno := n.Ioctl(context.Background(), nil, IOCTL_GET_CONFIG, 0, nil, out)
	require.Equal(t, syscall.Errno(0), errno)
	assert.Contains(t, string(out[:written]), "category.search=")
}

func TestIoctlUnknownCmd(t *testing.T) {
	n := rootNode(testFS(t))
	_, errno := n.Ioctl(context.Background(), nil, 0xdead, 0, nil, nil)
	assert.Equal(t, syscall.ENOTTY, errno)
}

func TestIoctlFileInfoReportsBranchAndPath(t *testing.T) {
	fsys := testFS(t)
	n := rootNode(fsys)
	b := fsys.snapshot()[0]
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	fh := newFileHandle(fsys, w, b, "/a/b", 0)
	out := make([]byte, 4096)
	written, errno := n.Ioctl(context.Background(), fh, IOCTL_FILE_INFO, 0, nil, out)
	require.Equal(t, syscall.Errno(0), errno)
	info := string(out[:written])
	assert.Contains(t, info, "branch="+b.Path)
	assert.Contains(t, info, "path=/a/b")
}

func TestIoctlFileInfoWrongHandleType(t *testing.T) {
	n := rootNode(testFS(t))
	_, errno := n.Ioctl(context.Background(), "not-a-handle", IOCTL_FILE_INFO, 0, nil, make([]byte, 64))
	assert.Equal(t, syscall.EINVAL, errno)
}
