package quadtree

import (
	"github.com/noctilu/glyphcluster/geom"
	"github.com/noctilu/glyphcluster/glyph"
)

// climb marks a (side, quadrant) pair whose same-size neighbor lies
// outside the current parent, requiring a step up to the grandparent.
const climb = -1

// mirror[side][quadrant] gives the sibling quadrant sharing that side
// within the same parent, or climb if that quadrant sits on the parent's
// own edge for that side. Table per spec §4.2: "top-left+TOP→climb,
// top-right+RIGHT→climb, etc."
var mirror = [4][4]int{
	geom.Top:    {climb, climb, TopLeft, TopRight},
	geom.Bottom: {BottomLeft, BottomRight, climb, climb},
	geom.Left:   {climb, TopLeft, climb, BottomLeft},
	geom.Right:  {TopRight, climb, BottomRight, climb},
}

// sideQuadrants lists the two quadrant indices that lie on a given side
// of a cell.
var sideQuadrants = [4][2]int{
	geom.Top:    {TopLeft, TopRight},
	geom.Bottom: {BottomLeft, BottomRight},
	geom.Left:   {TopLeft, BottomLeft},
	geom.Right:  {TopRight, BottomRight},
}

func opposite(s geom.Side) geom.Side {
	switch s {
	case geom.Top:
		return geom.Bottom
	case geom.Bottom:
		return geom.Top
	case geom.Left:
		return geom.Right
	case geom.Right:
		return geom.Left
	}
	return s
}

// Neighbors yields every leaf on side s of cell c, including every leaf
// descendant of a same-size-or-larger neighboring cell (spec §4.2). If c
// borders the world boundary on s, Neighbors returns nil.
func (t *Tree) Neighbors(c glyph.CellID, s geom.Side) []glyph.CellID {
	path := t.pathTo(t.cells[c].Rect.Center())
	quads := t.quadrantsOf(path)

	neighbor, ok := t.equalOrGreaterNeighbor(path, quads, s)
	if !ok {
		return nil
	}
	var out []glyph.CellID
	t.collectLeavesOnSide(neighbor, opposite(s), &out)
	return out
}

// equalOrGreaterNeighbor climbs the ancestry of the cell at path[len-1]
// looking for the first ancestor level where stepping to side s stays
// within the same parent; the sibling found there is a same-size-or-
// larger neighbor of the original cell.
func (t *Tree) equalOrGreaterNeighbor(path []glyph.CellID, quads []int, s geom.Side) (glyph.CellID, bool) {
	for i := len(quads) - 1; i >= 0; i-- {
		m := mirror[s][quads[i]]
		if m != climb {
			parent := path[i]
			return t.cells[parent].Children[m], true
		}
	}
	return NoCell, false
}

// collectLeavesOnSide descends into node, following only the children on
// side s at each internal node, appending every leaf reached to out. This
// covers every leaf of node that borders the original cell; when node is
// larger than that cell, it also includes leaves along node's side s that
// lie beyond the original cell's extent.
func (t *Tree) collectLeavesOnSide(node glyph.CellID, s geom.Side, out *[]glyph.CellID) {
	cell := &t.cells[node]
	if cell.Leaf {
		*out = append(*out, node)
		return
	}
	for _, q := range sideQuadrants[s] {
		t.collectLeavesOnSide(cell.Children[q], s, out)
	}
}
