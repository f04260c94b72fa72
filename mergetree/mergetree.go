// Package mergetree builds the clustering engine's output: a binary tree
// whose leaves are the original input glyphs and whose internal nodes
// record each accepted merge's time, position, and weight (spec §3,
// §4.4, §6).
package mergetree

import (
	ierrors "github.com/noctilu/glyphcluster/errors"
	"github.com/noctilu/glyphcluster/glyph"
)

// Node is one node of the merge tree. Leaves have Children == [nil, nil]
// and carry the original input (X, Y, N); internal nodes carry the merge
// event's (At, X, Y, N) and two children.
type Node struct {
	At       float64
	X, Y     float64
	N        uint64
	Children [2]*Node
}

// IsLeaf reports whether n is an original input glyph rather than a
// merge.
func (n *Node) IsLeaf() bool { return n.Children[0] == nil }

// CountLeaves returns the number of leaves in the subtree rooted at n.
func (n *Node) CountLeaves() int {
	if n.IsLeaf() {
		return 1
	}
	return n.Children[0].CountLeaves() + n.Children[1].CountLeaves()
}

// CountInternal returns the number of internal (merge) nodes in the
// subtree rooted at n.
func (n *Node) CountInternal() int {
	if n.IsLeaf() {
		return 0
	}
	return 1 + n.Children[0].CountInternal() + n.Children[1].CountInternal()
}

// Builder tracks the forest of current merge-tree roots, one per live
// glyph, as the clustering engine consumes events. When it finishes, a
// single remaining root (or none, for empty input) is the result.
type Builder struct {
	roots map[glyph.ID]*Node
}

// NewBuilder returns a Builder with no roots.
func NewBuilder() *Builder {
	return &Builder{roots: make(map[glyph.ID]*Node)}
}

// AddLeaf registers a brand-new input glyph as a singleton root.
func (b *Builder) AddLeaf(id glyph.ID, x, y float64, n uint64) {
	b.roots[id] = &Node{X: x, Y: y, N: n}
}

// Merge replaces the roots of a and b with a new internal node recording
// the merge at time at, with center (x,y) and weight n, keyed under the
// freshly created glyph's ID newID. It panics (an internal invariant
// violation) if a or b has no current root, since that would mean the
// engine tried to merge a glyph the tree never saw born.
func (b *Builder) Merge(newID, a, bID glyph.ID, at, x, y float64, n uint64) *Node {
	ra, ok := b.roots[a]
	if !ok {
		ierrors.InternalInvariant("mergetree: no root for glyph %d", a)
	}
	rb, ok := b.roots[bID]
	if !ok {
		ierrors.InternalInvariant("mergetree: no root for glyph %d", bID)
	}
	node := &Node{At: at, X: x, Y: y, N: n, Children: [2]*Node{ra, rb}}
	delete(b.roots, a)
	delete(b.roots, bID)
	b.roots[newID] = node
	return node
}

// Root returns the sole remaining root if exactly one remains, which is
// the normal completion case for non-empty input (spec §8 property 4).
func (b *Builder) Root() (*Node, bool) {
	if len(b.roots) != 1 {
		return nil, false
	}
	for _, n := range b.roots {
		return n, true
	}
	return nil, false
}

// Roots returns every current root, used when Cluster returns a partial
// forest after cancellation (spec §7).
func (b *Builder) Roots() []*Node {
	out := make([]*Node, 0, len(b.roots))
	for _, n := range b.roots {
		out = append(out, n)
	}
	return out
}
