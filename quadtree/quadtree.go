// Package quadtree implements the adaptive region quadtree of spec §4.2:
// an arena of square cells over a fixed world, leaves carrying the live
// glyphs that currently intersect them, with adaptive split/join and
// neighbor-side traversal for the clustering engine's out-of-cell events.
//
// Unlike the teacher (noctilu/quadtree, a content-addressed immutable
// hashlife tree), cells here are mutated in place and capacity-bounded:
// splitting is driven by MAX_GLYPHS_PER_CELL rather than by Game-of-Life
// generation stepping, and cell IDs must stay stable across split/join.
// Per spec §9's design note, cells carry no child-to-parent pointer;
// ancestry is recovered by re-descending from the root along the
// quadrant rule whenever it's needed (join propagation, neighbor lookup).
package quadtree

import (
	"golang.org/x/exp/slices"

	ierrors "github.com/noctilu/glyphcluster/errors"
	"github.com/noctilu/glyphcluster/geom"
	"github.com/noctilu/glyphcluster/glyph"
	"github.com/noctilu/glyphcluster/stats"
)

// Quadrant indices, fixed per spec §3: [top-left, top-right, bottom-left,
// bottom-right]. The split rule is (y<cy?0:2) + (x<cx?0:1).
const (
	TopLeft = iota
	TopRight
	BottomLeft
	BottomRight
)

// NoCell marks the absence of a cell (a leaf's Children are all NoCell).
const NoCell glyph.CellID = -1

// Cell is one node of the quadtree: a square region that is either a leaf
// (Glyphs populated, Children all NoCell) or internal (exactly four
// children, Glyphs nil).
type Cell struct {
	Rect     geom.Rect
	Leaf     bool
	Children [4]glyph.CellID
	Glyphs   []glyph.ID
}

// Toucher tests whether glyph id's grown shape touches rect at time t.
// Only the clustering engine knows the grow function, effective weight,
// and compression border (spec §4.1), so it supplies this via SetToucher;
// a Tree with no toucher set never re-tests guest registrations on split
// (safe only when Register is never called, e.g. quadtree-only tests).
type Toucher func(id glyph.ID, rect geom.Rect, t float64) bool

// GuestPlacement reports a guest glyph (one Register put in a leaf it
// doesn't own by center) that a split cascade re-registered into a fresh
// child leaf, so the caller can fire the same out-of-cell/merge follow-up
// events Register's direct callers do (spec §8 invariant 5).
type GuestPlacement struct {
	Glyph glyph.ID
	Cell  glyph.CellID
}

// Tree is the adaptive region quadtree over a fixed square world.
type Tree struct {
	cells            []Cell
	root             glyph.CellID
	arena            *glyph.Arena
	maxGlyphsPerCell int
	minCellSize      float64
	sink             stats.Sink
	toucher          Toucher
}

// New returns a Tree covering bounds, backed by arena for glyph lookups.
func New(bounds geom.Rect, arena *glyph.Arena, maxGlyphsPerCell int, minCellSize float64, sink stats.Sink) *Tree {
	if sink == nil {
		sink = stats.Noop{}
	}
	t := &Tree{arena: arena, maxGlyphsPerCell: maxGlyphsPerCell, minCellSize: minCellSize, sink: sink}
	t.root = t.newCell(bounds)
	return t
}

// SetToucher installs the glyph-vs-rectangle touch test a split cascade
// uses to re-test guest registrations against fresh children, rather than
// dropping them.
func (t *Tree) SetToucher(toucher Toucher) { t.toucher = toucher }

// Root returns the root cell's ID.
func (t *Tree) Root() glyph.CellID { return t.root }

// Rect returns the rectangle of cell c.
func (t *Tree) Rect(c glyph.CellID) geom.Rect { return t.cells[c].Rect }

// IsLeaf reports whether c is currently a leaf.
func (t *Tree) IsLeaf(c glyph.CellID) bool { return t.cells[c].Leaf }

// Glyphs returns the glyph IDs currently registered in leaf c (empty for
// an internal cell).
func (t *Tree) Glyphs(c glyph.CellID) []glyph.ID { return t.cells[c].Glyphs }

func (t *Tree) newCell(r geom.Rect) glyph.CellID {
	id := glyph.CellID(len(t.cells))
	t.cells = append(t.cells, Cell{Rect: r, Leaf: true, Children: [4]glyph.CellID{NoCell, NoCell, NoCell, NoCell}})
	return id
}

// quadrantIndex returns which of a cell's four quadrants contains p, per
// spec §3's rule (y<cy?0:2)+(x<cx?0:1).
func quadrantIndex(r geom.Rect, p geom.Point) int {
	cx := (r.MinX + r.MaxX) / 2
	cy := (r.MinY + r.MaxY) / 2
	idx := 0
	if p.Y >= cy {
		idx += 2
	}
	if p.X >= cx {
		idx += 1
	}
	return idx
}

func quadrantRect(r geom.Rect, idx int) geom.Rect {
	cx := (r.MinX + r.MaxX) / 2
	cy := (r.MinY + r.MaxY) / 2
	switch idx {
	case TopLeft:
		return geom.Rect{MinX: r.MinX, MinY: r.MinY, MaxX: cx, MaxY: cy}
	case TopRight:
		return geom.Rect{MinX: cx, MinY: r.MinY, MaxX: r.MaxX, MaxY: cy}
	case BottomLeft:
		return geom.Rect{MinX: r.MinX, MinY: cy, MaxX: cx, MaxY: r.MaxY}
	case BottomRight:
		return geom.Rect{MinX: cx, MinY: cy, MaxX: r.MaxX, MaxY: r.MaxY}
	}
	ierrors.InternalInvariant("quadtree: invalid quadrant index %d", idx)
	return geom.Rect{}
}

// InsertCenterOf walks from the root to the leaf containing g's center,
// splitting a full leaf first if its side is still >= the configured
// minimum cell size, then adds g to that leaf. at is the simulation time
// of this insertion, forwarded to split so it can re-test any guest
// registrations a split cascade turns up; the returned placements are the
// guest re-registrations the caller must fire follow-up events for (spec
// §8 invariant 5), always empty when no split occurs.
func (t *Tree) InsertCenterOf(id glyph.ID, at float64) []GuestPlacement {
	p := t.arena.Get(id).Center()
	cur := t.root
	var placements []GuestPlacement
	for {
		cell := &t.cells[cur]
		if !cell.Leaf {
			cur = cell.Children[quadrantIndex(cell.Rect, p)]
			continue
		}
		if len(cell.Glyphs) >= t.maxGlyphsPerCell && cell.Rect.Width() >= t.minCellSize {
			placements = append(placements, t.split(cur, at)...)
			continue
		}
		cell.Glyphs = append(cell.Glyphs, id)
		t.arena.AddCell(id, cur)
		return placements
	}
}

// split turns leaf c into an internal node with four fresh children,
// re-inserting by center every glyph whose center actually lies in c
// (its "home" glyphs). A glyph registered in c only because its growing
// shape had reached in from a neighboring cell (spec §4.4's out-of-cell
// registration) has no well-defined child to redescend into, since its
// center lies outside c entirely; such a guest is instead re-tested with
// the installed Toucher against each of the four fresh children and
// re-registered into every one it still touches, reporting each
// placement so the caller can fire the same out-of-cell/merge follow-up
// events a direct Register call would get (spec §8 invariant 5). A Tree
// with no Toucher installed drops every guest without testing it.
func (t *Tree) split(c glyph.CellID, at float64) []GuestPlacement {
	t.sink.Split()
	r := t.cells[c].Rect
	oldGlyphs := t.cells[c].Glyphs

	var children [4]glyph.CellID
	for i := 0; i < 4; i++ {
		children[i] = t.newCell(quadrantRect(r, i))
	}

	cell := &t.cells[c]
	cell.Children = children
	cell.Leaf = false
	cell.Glyphs = nil

	var placements []GuestPlacement
	for _, gid := range oldGlyphs {
		t.arena.RemoveCell(gid, c)
		center := t.arena.Get(gid).Center()
		if r.Contains(center) {
			idx := quadrantIndex(r, center)
			child := children[idx]
			t.cells[child].Glyphs = append(t.cells[child].Glyphs, gid)
			t.arena.AddCell(gid, child)
			continue
		}
		if t.toucher == nil {
			continue
		}
		for _, child := range children {
			if !t.toucher(gid, t.cells[child].Rect, at) {
				continue
			}
			t.cells[child].Glyphs = append(t.cells[child].Glyphs, gid)
			t.arena.AddCell(gid, child)
			placements = append(placements, GuestPlacement{Glyph: gid, Cell: child})
		}
	}
	return placements
}

// Register adds glyph id to leaf c's list directly, without walking from
// the root or splitting — used by the engine's out-of-cell handler to
// register a growing glyph into a neighboring leaf its shape has reached,
// per spec §4.4.
func (t *Tree) Register(id glyph.ID, c glyph.CellID) {
	t.cells[c].Glyphs = append(t.cells[c].Glyphs, id)
	t.arena.AddCell(id, c)
}

// Remove deletes g from every cell in its back-reference list (home and
// any out-of-cell guest registrations), then propagates a join check
// upward from each affected leaf's ancestry.
func (t *Tree) Remove(id glyph.ID) {
	cells := append([]glyph.CellID(nil), t.arena.Get(id).Cells...)
	for _, c := range cells {
		t.removeFromLeaf(id, c)
	}
	t.arena.ClearCells(id)
	for _, c := range cells {
		t.joinUp(c)
	}
}

func (t *Tree) removeFromLeaf(id glyph.ID, c glyph.CellID) {
	cell := &t.cells[c]
	for i, gid := range cell.Glyphs {
		if gid == id {
			cell.Glyphs = append(cell.Glyphs[:i], cell.Glyphs[i+1:]...)
			return
		}
	}
}

// joinUp walks the ancestry of leaf from the root (recomputed, since
// cells keep no parent pointer) and collapses the innermost collapsible
// ancestor, cascading upward while the collapse condition keeps holding.
func (t *Tree) joinUp(leaf glyph.CellID) {
	path := t.pathTo(t.cells[leaf].Rect.Center())
	// path[len-1] should be leaf (or whatever now occupies its former
	// position, if it was already collapsed by an earlier iteration).
	for i := len(path) - 2; i >= 0; i-- {
		parent := path[i]
		if !t.tryJoin(parent) {
			break
		}
	}
}

// tryJoin collapses parent into a leaf if all four children are leaves
// whose combined distinct live glyphs fit within MAX_GLYPHS_PER_CELL.
func (t *Tree) tryJoin(parent glyph.CellID) bool {
	cell := &t.cells[parent]
	if cell.Leaf {
		return false
	}
	children := cell.Children
	for _, c := range children {
		if !t.cells[c].Leaf {
			return false
		}
	}
	union := make([]glyph.ID, 0, t.maxGlyphsPerCell+1)
	seen := make(map[glyph.ID]bool)
	for _, c := range children {
		for _, gid := range t.cells[c].Glyphs {
			if !seen[gid] {
				seen[gid] = true
				union = append(union, gid)
			}
		}
	}
	if len(union) > t.maxGlyphsPerCell {
		return false
	}
	t.sink.Join()
	for _, c := range children {
		for _, gid := range t.cells[c].Glyphs {
			t.arena.RemoveCell(gid, c)
		}
	}
	cell = &t.cells[parent]
	cell.Leaf = true
	cell.Children = [4]glyph.CellID{NoCell, NoCell, NoCell, NoCell}
	cell.Glyphs = union
	for _, gid := range union {
		t.arena.AddCell(gid, parent)
	}
	return true
}

// pathTo returns the chain of cell IDs from the root down to the leaf
// containing p, by re-descending via the quadrant rule. Used wherever an
// ancestor is needed, since cells store no parent pointer (spec §9).
func (t *Tree) pathTo(p geom.Point) []glyph.CellID {
	path := []glyph.CellID{t.root}
	cur := t.root
	for !t.cells[cur].Leaf {
		cell := &t.cells[cur]
		cur = cell.Children[quadrantIndex(cell.Rect, p)]
		path = append(path, cur)
	}
	return path
}

// quadrantsOf returns, for each step of path, the quadrant index taken to
// reach path[i+1] from path[i].
func (t *Tree) quadrantsOf(path []glyph.CellID) []int {
	quads := make([]int, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		children := t.cells[path[i]].Children
		for q, c := range children {
			if c == path[i+1] {
				quads[i] = q
				break
			}
		}
	}
	return quads
}

// Leaves returns every current leaf cell ID.
func (t *Tree) Leaves() []glyph.CellID {
	var out []glyph.CellID
	var walk func(glyph.CellID)
	walk = func(c glyph.CellID) {
		cell := &t.cells[c]
		if cell.Leaf {
			out = append(out, c)
			return
		}
		for _, ch := range cell.Children {
			walk(ch)
		}
	}
	walk(t.root)
	slices.SortFunc(out, func(a, b glyph.CellID) bool { return a < b })
	return out
}

// LiveGlyphs returns every distinct glyph ID registered anywhere in the
// tree (home or guest registrations count once).
func (t *Tree) LiveGlyphs() []glyph.ID {
	seen := make(map[glyph.ID]bool)
	var out []glyph.ID
	for _, leaf := range t.Leaves() {
		for _, gid := range t.cells[leaf].Glyphs {
			if !seen[gid] {
				seen[gid] = true
				out = append(out, gid)
			}
		}
	}
	return out
}
