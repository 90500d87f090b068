package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetRoundTrip(t *testing.T) {
	opt := Default()
	require.NoError(t, Set(opt, "category.create", "mfs"))
	val, ok := Get(opt, "category.create")
	require.True(t, ok)
	assert.Equal(t, "mfs", val)
}

func TestGetUnknownKey(t *testing.T) {
	opt := Default()
	_, ok := Get(opt, "bogus")
	assert.False(t, ok)
}

func TestGetSetFuncOverride(t *testing.T) {
	opt := Default()
	require.NoError(t, Set(opt, "func.rename", "eplfs"))
	val, ok := Get(opt, "func.rename")
	require.True(t, ok)
	assert.Equal(t, "eplfs", val)
}

func TestDumpIncludesKnownKeysAndOverrides(t *testing.T) {
	opt := Default()
	opt.FuncOverrides["unlink"] = "ff"
	lines := Dump(opt)

	var sawCategoryCreate, sawOverride bool
	for _, l := range lines {
		if l == "category.create="+opt.CategoryCreate {
			sawCategoryCreate = true
		}
		if l == "func.unlink=ff" {
			sawOverride = true
		}
	}
	assert.True(t, sawCategoryCreate)
	assert.True(t, sawOverride)
}

func TestDumpStableKeyOrder(t *testing.T) {
	opt := Default()
	first := Dump(opt)
	second := Dump(opt)
	assert.Equal(t, first, second)
}
