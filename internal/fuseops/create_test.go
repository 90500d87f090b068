package fuseops

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unionfuse/unionfuse/internal/branch"
)

func TestWithoutBranchRemovesOnlyMatch(t *testing.T) {
	b1 := &branch.Branch{Path: "/b1"}
	b2 := &branch.Branch{Path: "/b2"}
	b3 := &branch.Branch{Path: "/b3"}
	out := withoutBranch(branch.List{b1, b2, b3}, b2)
	assert.Equal(t, branch.List{b1, b3}, out)
}

func TestWithoutBranchNoMatchReturnsSameElements(t *testing.T) {
	b1 := &branch.Branch{Path: "/b1"}
	b2 := &branch.Branch{Path: "/b2"}
	other := &branch.Branch{Path: "/other"}
	out := withoutBranch(branch.List{b1, b2}, other)
	assert.Equal(t, branch.List{b1, b2}, out)
}
