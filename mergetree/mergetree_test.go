package mergetree

import (
	"testing"

	"github.com/noctilu/glyphcluster/glyph"
	"github.com/stretchr/testify/assert"
)

func TestTwoLeafMerge(t *testing.T) {
	b := NewBuilder()
	b.AddLeaf(0, -1, 0, 1)
	b.AddLeaf(1, 1, 0, 1)
	b.Merge(2, 0, 1, 1.0, 0, 0, 2)

	root, ok := b.Root()
	assert.True(t, ok)
	assert.Equal(t, 1.0, root.At)
	assert.Equal(t, 0.0, root.X)
	assert.Equal(t, uint64(2), root.N)
	assert.Equal(t, 2, root.CountLeaves())
	assert.Equal(t, 1, root.CountInternal())
	assert.False(t, root.IsLeaf())
	assert.True(t, root.Children[0].IsLeaf())
	assert.True(t, root.Children[1].IsLeaf())
}

func TestThreeWayMerge(t *testing.T) {
	b := NewBuilder()
	b.AddLeaf(0, -2, 0, 1)
	b.AddLeaf(1, 0, 0, 1)
	b.AddLeaf(2, 2, 0, 1)
	b.Merge(3, 0, 1, 1.0, -1, 0, 2)
	root := b.Merge(4, 3, 2, 1.0, 0, 0, 3)

	assert.Equal(t, 3, root.CountLeaves())
	assert.Equal(t, 2, root.CountInternal())
}

func TestRootFalseWhenNotSingle(t *testing.T) {
	b := NewBuilder()
	b.AddLeaf(0, 0, 0, 1)
	b.AddLeaf(1, 1, 1, 1)
	_, ok := b.Root()
	assert.False(t, ok)
	assert.Len(t, b.Roots(), 2)
}

func TestMergeMissingRootPanics(t *testing.T) {
	b := NewBuilder()
	b.AddLeaf(0, 0, 0, 1)
	assert.Panics(t, func() {
		b.Merge(2, 0, glyph.ID(99), 1.0, 0, 0, 1)
	})
}
