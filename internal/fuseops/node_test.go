package fuseops

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func TestChildPath(t *testing.T) {
	assert.Equal(t, "/a", childPath("", "a"))
	assert.Equal(t, "/a/b", childPath("/a", "b"))
}

func TestApplyToAllSucceedsWhenOneBranchSucceeds(t *testing.T) {
	b1 := &branch.Branch{Path: "/b1"}
	b2 := &branch.Branch{Path: "/b2"}
	errno := applyToAll(branch.List{b1, b2}, func(b *branch.Branch) error {
		if b == b1 {
			return syscall.ENOENT
		}
		return nil
	})
	assert.Equal(t, syscall.Errno(0), errno)
}

func TestApplyToAllSurfacesFirstRealError(t *testing.T) {
	b1 := &branch.Branch{Path: "/b1"}
	b2 := &branch.Branch{Path: "/b2"}
	errno := applyToAll(branch.List{b1, b2}, func(b *branch.Branch) error {
		if b == b1 {
			return syscall.EROFS
		}
		return syscall.ENOENT
	})
	assert.Equal(t, syscall.EROFS, errno)
}

func TestApplyToAllAllENOENTReturnsENOENT(t *testing.T) {
	b1 := &branch.Branch{Path: "/b1"}
	errno := applyToAll(branch.List{b1}, func(b *branch.Branch) error {
		return syscall.ENOENT
	})
	assert.Equal(t, syscall.ENOENT, errno)
}

func TestToErrnoPassesThroughErrno(t *testing.T) {
	assert.Equal(t, syscall.ENOSPC, toErrno(syscall.ENOSPC))
}

func TestToErrnoWrapsGenericError(t *testing.T) {
	errno := toErrno(errors.New("boom"))
	assert.NotEqual(t, syscall.Errno(0), errno)
}

func TestItoa(t *testing.T) {
	assert.Equal(t, "0", itoa(0))
	assert.Equal(t, "42", itoa(42))
	assert.Equal(t, "-7", itoa(-7))
}
