package inode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeIsPureAndDeterministic(t *testing.T) {
	a := Compute(PathHash, "/a/b", 1, 2, false)
	b := Compute(PathHash, "/a/b", 1, 2, false)
	assert.Equal(t, a, b)
}

func TestComputeDiffersByPath(t *testing.T) {
	a := Compute(PathHash, "/a", 1, 2, false)
	b := Compute(PathHash, "/b", 1, 2, false)
	assert.NotEqual(t, a, b)
}

func TestHybridUsesPathHashForDirs(t *testing.T) {
	withDirA := Compute(HybridHash, "/d", 1, 10, true)
	withDirB := Compute(HybridHash, "/d", 1, 20, true)
	assert.Equal(t, withDirA, withDirB, "directory inode must ignore backing ino so it matches across branches")
}

func TestHybridUsesDevinoForFiles(t *testing.T) {
	a := Compute(HybridHash, "/f", 1, 10, false)
	b := Compute(HybridHash, "/f", 1, 20, false)
	assert.NotEqual(t, a, b)
}

func TestPassthroughReturnsBackingInoVerbatim(t *testing.T) {
	assert.EqualValues(t, 42, Compute(Passthrough, "/x", 1, 42, false))
}

func TestCompute32Folds(t *testing.T) {
	v := Compute32(PathHash, "/a/b/c", 1, 2, false)
	assert.NotEqual(t, uint32(0), v)
}

func TestParseAlgorithmSelectsBitWidth(t *testing.T) {
	algo, bits, err := ParseAlgorithm("devino-hash")
	assert.NoError(t, err)
	assert.Equal(t, DevinoHash, algo)
	assert.Equal(t, 64, bits)

	algo32, bits32, err := ParseAlgorithm("devino-hash32")
	assert.NoError(t, err)
	assert.Equal(t, DevinoHash, algo32)
	assert.Equal(t, 32, bits32)
}

func TestComputeBitsTruncatesFor32BitVariant(t *testing.T) {
	full := ComputeBits(DevinoHash, 64, "/f", 1, 2, false)
	folded := ComputeBits(DevinoHash, 32, "/f", 1, 2, false)
	assert.NotEqual(t, full, folded, "the 32-bit variant must not produce the same value as its 64-bit counterpart")
	assert.Equal(t, uint64(Compute32(DevinoHash, "/f", 1, 2, false)), folded)
}
