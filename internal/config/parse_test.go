package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMountOptionsBasics(t *testing.T) {
	opt := Default()
	err := ParseMountOptions(opt, "branches=/b1:/b2,category.create=mfs,minfreespace=1G,moveonenospc")
	require.NoError(t, err)
	assert.Equal(t, "/b1:/b2", opt.Branches)
	assert.Equal(t, "mfs", opt.CategoryCreate)
	assert.EqualValues(t, 1024*1024*1024, opt.MinFreeSpace)
	assert.True(t, opt.MoveOnENOSPC)
}

func TestParseMountOptionsFuncOverride(t *testing.T) {
	opt := Default()
	require.NoError(t, ParseMountOptions(opt, "func.rename=eplfs"))
	assert.Equal(t, "eplfs", opt.FuncOverrides["rename"])
}

func TestParseMountOptionsRejectsUnknownKey(t *testing.T) {
	opt := Default()
	err := ParseMountOptions(opt, "bogus=1")
	assert.Error(t, err)
}

func TestPolicyForHonorsOverrideThenCategory(t *testing.T) {
	opt := Default()
	opt.CategoryAction = "epall"
	assert.Equal(t, "epall", opt.PolicyFor("unlink", "action"))
	opt.FuncOverrides["unlink"] = "ff"
	assert.Equal(t, "ff", opt.PolicyFor("unlink", "action"))
}

func TestParseExdevRejectsUnknown(t *testing.T) {
	opt := Default()
	err := ParseMountOptions(opt, "link-exdev=bogus")
	assert.Error(t, err)
}
