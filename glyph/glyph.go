// Package glyph implements the mutable particle the clustering engine
// grows and merges: a weighted point with quadtree back-references and
// the union-find "adoptive parent" pointer used by the big-glyph
// optimization (spec §3).
package glyph

import (
	"github.com/noctilu/glyphcluster/config"
	"github.com/noctilu/glyphcluster/geom"
)

// ID identifies a glyph in an Arena. IDs are stable for the glyph's whole
// lifetime, including across the quadtree splits/joins that reference it.
type ID int

// NoParent marks a glyph that has not been absorbed into a big glyph.
const NoParent ID = -1

// CellID identifies a quadtree leaf. Defined here (rather than in package
// quadtree) so a Glyph's back-references don't create an import cycle:
// quadtree depends on glyph, not the reverse.
type CellID int

// Glyph is the mutable particle of spec §3: a center, an integer weight,
// a liveness flag, the set of quadtree cells it currently occupies, and
// the big-glyph union-find parent pointer.
type Glyph struct {
	ID     ID
	X, Y   float64
	N      uint64
	Alive  bool
	Cells  []CellID
	Parent ID // NoParent if not absorbed into a big glyph
	Big    bool
}

// Center returns the glyph's current center as a geom.Point.
func (g *Glyph) Center() geom.Point { return geom.Point{X: g.X, Y: g.Y} }

// Arena owns every Glyph for the engine's lifetime; indices into it (IDs)
// are stable even as glyphs die and new ones are born at merges.
type Arena struct {
	glyphs []Glyph
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// New creates a live glyph at (x,y) with weight n and returns its ID.
func (a *Arena) New(x, y float64, n uint64) ID {
	id := ID(len(a.glyphs))
	a.glyphs = append(a.glyphs, Glyph{
		ID:     id,
		X:      x,
		Y:      y,
		N:      n,
		Alive:  true,
		Parent: NoParent,
	})
	return id
}

// Get returns a pointer to the glyph with the given ID. The pointer is
// valid only until the next call to New, since New may grow the backing
// slice.
func (a *Arena) Get(id ID) *Glyph {
	return &a.glyphs[id]
}

// Len returns the number of glyphs ever created, alive or dead.
func (a *Arena) Len() int { return len(a.glyphs) }

// AddCell records that g now occupies cell c.
func (a *Arena) AddCell(id ID, c CellID) {
	g := a.Get(id)
	g.Cells = append(g.Cells, c)
}

// InCell reports whether g is recorded as occupying cell c.
func (a *Arena) InCell(id ID, c CellID) bool {
	g := a.Get(id)
	for _, cc := range g.Cells {
		if cc == c {
			return true
		}
	}
	return false
}

// RemoveCell deletes a single cell c from g's back-reference list, used
// when a specific leaf goes away (split into children, or joined into its
// parent) without the glyph itself dying.
func (a *Arena) RemoveCell(id ID, c CellID) {
	g := a.Get(id)
	for i, cc := range g.Cells {
		if cc == c {
			g.Cells = append(g.Cells[:i], g.Cells[i+1:]...)
			return
		}
	}
}

// ClearCells empties g's cell back-reference list, used when the glyph is
// removed from the tree (dies, or is about to be reinserted elsewhere).
func (a *Arena) ClearCells(id ID) {
	a.Get(id).Cells = a.Get(id).Cells[:0]
}

// Kill marks a glyph dead. Per the invariant of spec §3, a dead glyph must
// already have an empty cell list; callers remove it from the quadtree
// first.
func (a *Arena) Kill(id ID) {
	a.Get(id).Alive = false
}

// EffectiveWeight returns w(g) = n(g) * compression(g) per spec §4.1,
// using the current glyph weight (not the arena-indexed original) so
// composite glyphs formed by merges pick up the right compression bracket.
func (a *Arena) EffectiveWeight(id ID, thresholds config.Thresholds) float64 {
	g := a.Get(id)
	n := float64(g.N)
	return n * thresholds.CompressionFor(n)
}

// CompressionLevel returns the number of thresholds at or below n, used by
// SizeAt to compute the border width 2*level (spec §4.1, §4.6). Level 0
// means n is below every threshold (uncompressed).
func CompressionLevel(thresholds config.Thresholds, n uint64) int {
	level := 0
	nf := float64(n)
	for _, th := range thresholds {
		if th.Weight <= nf {
			level++
		}
	}
	return level
}

// Root follows g's union-find parent chain to the current live big glyph
// it has been absorbed into, applying path compression along the way. If
// g has no parent, Root(g) == g.
func (a *Arena) Root(id ID) ID {
	if a.Get(id).Parent == NoParent {
		return id
	}
	// Find the root first without mutating.
	root := id
	for a.Get(root).Parent != NoParent {
		root = a.Get(root).Parent
	}
	// Path compression: point every visited node directly at root.
	cur := id
	for cur != root {
		next := a.Get(cur).Parent
		a.Get(cur).Parent = root
		cur = next
	}
	return root
}

// Absorb sets child's parent to parent, marking child as absorbed into the
// composite big glyph identified by parent.
func (a *Arena) Absorb(child, parent ID) {
	a.Get(child).Parent = parent
}
