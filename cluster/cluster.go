// Package cluster implements the clustering engine of spec §4.4: the main
// event-driven simulation loop that consumes a global priority queue of
// merge and out-of-cell events in chronological order, maintaining the
// quadtree and merge-tree invariants under insertions, removals,
// subdivisions, and merges.
//
// This is the engine component spec §2 calls "the hard part" — it holds
// the external interface of spec §6 in an ordinary top-level package, the
// way the teacher (noctilu/quadtree) exposes a single flat package rather
// than burying its entry points behind an internal/ boundary.
package cluster

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/noctilu/glyphcluster/config"
	ierrors "github.com/noctilu/glyphcluster/errors"
	"github.com/noctilu/glyphcluster/event"
	"github.com/noctilu/glyphcluster/geom"
	"github.com/noctilu/glyphcluster/glyph"
	"github.com/noctilu/glyphcluster/grow"
	"github.com/noctilu/glyphcluster/mergetree"
	"github.com/noctilu/glyphcluster/quadtree"
	"github.com/noctilu/glyphcluster/stats"
)

// allSides lists the four sides of a quadtree cell, in the order the
// engine fans out out-of-cell events.
var allSides = [4]geom.Side{geom.Top, geom.Right, geom.Bottom, geom.Left}

// Options configures a single Cluster run, per spec §6's
// {include_out_of_cell, step, big_glyph_opt, compression_opt}.
type Options struct {
	// IncludeOutOfCell enables out-of-cell event generation, needed for
	// correctness whenever the quadtree can hold more than one leaf.
	// Disabling it is only sound for worlds small enough that every glyph
	// stays in a single leaf for the whole run (spec §4.4 step 2a).
	IncludeOutOfCell bool
	// BigGlyphOpt enables the big-glyph secondary-queue optimization of
	// spec §4.5.
	BigGlyphOpt bool
	// CompressionOpt enables the compression-threshold weight scaling of
	// spec §4.6.
	CompressionOpt bool
	// Step, if true, blocks after every processed event until StepChan
	// receives or is closed (SPEC_FULL supplement 2: a debugging hook with
	// no TTY/readline dependency, since rendering is out of scope).
	Step     bool
	StepChan <-chan struct{}
}

// DefaultOptions returns the options for a plain, unoptimized run with
// out-of-cell traversal enabled — the only combination that is correct
// for an arbitrarily large world.
func DefaultOptions() Options {
	return Options{IncludeOutOfCell: true}
}

// inputRecord remembers an inserted point's original (x, y, n) for the
// merge tree's leaves, since the glyph arena's own copy mutates on merge
// (it doesn't, for leaves, but the arena slot is shared state we'd rather
// not depend on across the whole run).
type inputRecord struct {
	id   glyph.ID
	x, y float64
	n    uint64
}

// Engine is the clustering engine of spec §6: a glyph arena, an adaptive
// quadtree over a fixed world, and (once Cluster runs) an event queue and
// merge-tree builder, all sharing the engine's lifetime per spec §5.
type Engine struct {
	bounds geom.Rect
	shape  grow.Shape
	speed  grow.Speed
	cfg    config.Config
	sink   stats.Sink
	runID  uuid.UUID

	arena       *glyph.Arena
	tree        *quadtree.Tree
	seenCenters map[geom.Point]bool
	inputs      []inputRecord
	totalWeight float64

	clustered bool

	// Run-scoped state, valid only during/after a call to Cluster.
	opts       Options
	grow       grow.Function
	thresholds config.Thresholds
	queue      *event.Queue
	mergeTree  *mergetree.Builder
	liveCount  int

	secondaries map[glyph.ID]*uncertainHeap
	bigHeap     bigHeapT
}

// New returns an Engine over the given square world, growing glyphs with
// the given shape/speed pair, tuned by cfg. A nil sink installs the no-op
// default of spec §9.
func New(bounds geom.Rect, shape grow.Shape, speed grow.Speed, cfg config.Config, sink stats.Sink) *Engine {
	if sink == nil {
		sink = stats.Noop{}
	}
	arena := glyph.NewArena()
	tree := quadtree.New(bounds, arena, cfg.MaxGlyphsPerCell, cfg.MinCellSize, sink)
	e := &Engine{
		bounds:      bounds,
		shape:       shape,
		speed:       speed,
		cfg:         cfg,
		sink:        sink,
		runID:       uuid.New(),
		arena:       arena,
		tree:        tree,
		seenCenters: make(map[geom.Point]bool),
		secondaries: make(map[glyph.ID]*uncertainHeap),
	}
	tree.SetToucher(e.touchesAt)
	return e
}

// touchesAt implements quadtree.Toucher: whether glyph id's grown shape
// touches rect at time t. The quadtree calls this when a split cascade
// needs to re-test a guest registration against a fresh child, since only
// the engine knows the grow function, effective weight, and compression
// border (spec §4.1).
func (e *Engine) touchesAt(id glyph.ID, rect geom.Rect, t float64) bool {
	g := e.arena.Get(id)
	return e.grow.TouchesRectAt(g.Center(), e.effectiveWeight(id), e.border(id), rect, t)
}

// applyGuestPlacements fires the same out-of-cell/merge follow-up events
// handleOutOfCell's Register branch fires, for every guest glyph a
// quadtree split cascade re-registered into a fresh child leaf, so a
// split never silently drops a guest's merge opportunities (spec §8
// invariant 5).
func (e *Engine) applyGuestPlacements(placements []quadtree.GuestPlacement) {
	for _, p := range placements {
		e.pushOutOfCellEvents(p.Cell, p.Glyph, -1)
		for _, h := range e.tree.Glyphs(p.Cell) {
			if h == p.Glyph || !e.arena.Get(h).Alive {
				continue
			}
			e.pushMergeCandidate(p.Glyph, h)
		}
	}
}

// RunID returns a per-engine correlation identifier a caller's Stats sink
// can use to group log lines from one clustering run (SPEC_FULL domain
// stack: github.com/google/uuid).
func (e *Engine) RunID() uuid.UUID { return e.runID }

// Tree returns the engine's quadtree, for callers wanting leaf/occupancy
// stats (spec §6's "tree() — the current quadtree for stats").
func (e *Engine) Tree() *quadtree.Tree { return e.tree }

// InsertPoint seeds the engine with a weighted input point, before
// Cluster runs. It rejects non-finite coordinates, non-positive weights,
// and duplicate centers per spec §6/§7's input contract; duplicates must
// be pre-summed by the caller.
func (e *Engine) InsertPoint(x, y float64, n uint64) error {
	if e.clustered {
		return ierrors.InvalidInputf("insert_point: called after cluster() has run")
	}
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return ierrors.InvalidInputf("insert_point: non-finite coordinate (%v, %v)", x, y)
	}
	if n == 0 {
		return ierrors.InvalidInputf("insert_point: non-positive weight %d at (%v, %v)", n, x, y)
	}
	center := geom.Point{X: x, Y: y}
	if e.seenCenters[center] {
		return ierrors.InvalidInputf("insert_point: duplicate center (%v, %v)", x, y)
	}
	if !e.bounds.Contains(center) {
		return ierrors.InvalidInputf("insert_point: (%v, %v) outside world bounds", x, y)
	}
	e.seenCenters[center] = true
	id := e.arena.New(x, y, n)
	// Every glyph inserted here is home-placed by center, so no guest
	// registration can exist yet to be displaced by a split; placements
	// is always empty and the simulation clock hasn't started (at=0).
	e.tree.InsertCenterOf(id, 0)
	e.totalWeight += float64(n)
	e.inputs = append(e.inputs, inputRecord{id: id, x: x, y: y, n: n})
	return nil
}

// Cluster runs the event-driven simulation loop of spec §4.4 to
// completion (or until ctx is cancelled) and returns the resulting merge
// tree. It may be called at most once per Engine.
func (e *Engine) Cluster(ctx context.Context, opts Options) (*mergetree.Node, error) {
	if e.clustered {
		return nil, ierrors.InvalidInputf("cluster: already run on this engine")
	}
	e.clustered = true
	e.opts = opts

	if opts.CompressionOpt {
		e.thresholds = e.cfg.Compression
	} else {
		e.thresholds = nil
	}
	e.grow = grow.New(e.shape, e.speed, e.cfg.MaxRadius, e.totalWeight)
	e.queue = event.NewQueue()
	e.mergeTree = mergetree.NewBuilder()
	e.liveCount = len(e.inputs)

	for _, in := range e.inputs {
		e.mergeTree.AddLeaf(in.id, in.x, in.y, in.n)
		if opts.BigGlyphOpt {
			e.promoteIfBig(in.id)
		}
	}

	if e.liveCount < 2 {
		if root, ok := e.mergeTree.Root(); ok {
			return root, nil
		}
		return nil, nil
	}

	e.seed()

	now := 0.0
	for e.liveCount >= 2 {
		select {
		case <-ctx.Done():
			return e.partialRoot(), ierrors.Cancelled
		default:
		}

		if opts.BigGlyphOpt {
			e.drainUncertain()
		}

		ev, ok := e.queue.Pop()
		if !ok {
			break
		}
		// Event times are computed as if every glyph had grown since t=0,
		// so a glyph born at a merge can already overlap a neighbour and
		// get a time earlier than the clock; such an event takes place at
		// the current time, keeping popped times non-decreasing.
		if ev.At < now {
			ev.At = now
		} else {
			now = ev.At
		}
		switch ev.Kind {
		case event.Merge:
			e.handleMerge(ev)
		case event.OutOfCell:
			e.handleOutOfCell(ev)
		}

		if opts.Step && opts.StepChan != nil {
			<-opts.StepChan
		}
	}

	if root, ok := e.mergeTree.Root(); ok {
		return root, nil
	}
	return e.partialRoot(), nil
}

// partialRoot returns the sole remaining root if the forest has collapsed
// to one (spec §7 cancellation: "a partial but structurally valid tree
// reflecting all completed merges"). Since mergetree.Node has no
// multi-root container, a forest of more than one root is reported via
// a single one of its roots, picked by the Builder's map iteration order;
// the other roots are not returned.
func (e *Engine) partialRoot() *mergetree.Node {
	roots := e.mergeTree.Roots()
	if len(roots) == 0 {
		return nil
	}
	return roots[0]
}

// promoteIfBig flags id as a big glyph once its weight crosses the
// configured threshold, per spec §4.5.
func (e *Engine) promoteIfBig(id glyph.ID) {
	g := e.arena.Get(id)
	if !g.Big && float64(g.N) > e.cfg.BigGlyphThreshold {
		g.Big = true
		e.sink.BigGlyphPromoted()
	}
}

// effectiveWeight returns w(g) = n(g)*compression(g) per spec §4.1. When
// compression is disabled, e.thresholds is empty and CompressionFor
// always returns 1.0, so this reduces to the plain weight n(g).
func (e *Engine) effectiveWeight(id glyph.ID) float64 {
	return e.arena.EffectiveWeight(id, e.thresholds)
}

// border returns the per-level border size_at adds around a glyph's
// shape (spec §4.1, §4.6); zero whenever e.thresholds is empty, since
// CompressionLevel then reports level 0 for every glyph.
func (e *Engine) border(id glyph.ID) float64 {
	level := glyph.CompressionLevel(e.thresholds, e.arena.Get(id).N)
	return 2 * float64(level)
}

// intersectTime returns the earliest touching time between two live
// glyphs under the engine's grow function.
func (e *Engine) intersectTime(g, h glyph.ID) (float64, bool) {
	gg, gh := e.arena.Get(g), e.arena.Get(h)
	return e.grow.IntersectGlyphs(gg.Center(), gh.Center(), e.effectiveWeight(g), e.effectiveWeight(h), e.border(g), e.border(h))
}

// sideIntersectTime returns the earliest time glyph id crosses side s of
// rect.
func (e *Engine) sideIntersectTime(id glyph.ID, rect geom.Rect, s geom.Side) (float64, bool) {
	g := e.arena.Get(id)
	return e.grow.IntersectSide(g.Center(), e.effectiveWeight(id), e.border(id), rect, s)
}

// seed implements spec §4.4's initialization: every leaf's glyphs get
// out-of-cell events against their own leaf's four sides, and every
// unordered pair sharing a leaf gets a merge event.
func (e *Engine) seed() {
	for _, leaf := range e.tree.Leaves() {
		glyphs := e.tree.Glyphs(leaf)
		for i, g := range glyphs {
			e.pushOutOfCellEvents(leaf, g, -1)
			for _, h := range glyphs[i+1:] {
				e.pushMergeCandidate(g, h)
			}
		}
	}
}

// pushOutOfCellEvents pushes an OutOfCell event for every side of cell
// except skip (pass -1 to include all four), for glyph id. A no-op when
// out-of-cell tracking is disabled.
func (e *Engine) pushOutOfCellEvents(cell glyph.CellID, id glyph.ID, skip geom.Side) {
	if !e.opts.IncludeOutOfCell {
		return
	}
	rect := e.tree.Rect(cell)
	for _, s := range allSides {
		if s == skip {
			continue
		}
		at, ok := e.sideIntersectTime(id, rect, s)
		if !ok {
			continue
		}
		e.queue.PushOutOfCell(at, id, cell, s)
	}
}

// pushMergeCandidate pushes a Merge event for the pair (g, h), diverting
// it into the big-glyph secondary queue when exactly one side is flagged
// big (spec §4.5).
func (e *Engine) pushMergeCandidate(g, h glyph.ID) {
	if g == h {
		return
	}
	if e.opts.BigGlyphOpt {
		gBig, hBig := e.arena.Get(g).Big, e.arena.Get(h).Big
		if gBig != hBig {
			big, small := g, h
			if hBig {
				big, small = h, g
			}
			e.pushUncertainMerge(big, small)
			return
		}
	}
	at, ok := e.intersectTime(g, h)
	if !ok {
		return
	}
	e.queue.PushMerge(at, g, h)
}

// opposite returns the side facing s.
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

// handleMerge implements spec §4.4's Merge event handler.
func (e *Engine) handleMerge(ev event.Event) {
	a, b := ev.A, ev.B
	ga, gb := e.arena.Get(a), e.arena.Get(b)
	if !ga.Alive || !gb.Alive {
		e.sink.StaleEvent()
		return
	}

	na, nb := ga.N, gb.N
	n := na + nb
	x := (ga.X*float64(na) + gb.X*float64(nb)) / float64(n)
	y := (ga.Y*float64(na) + gb.Y*float64(nb)) / float64(n)

	e.tree.Remove(a)
	e.tree.Remove(b)
	e.arena.Kill(a)
	e.arena.Kill(b)
	e.liveCount--

	m := e.arena.New(x, y, n)
	if e.opts.BigGlyphOpt {
		e.arena.Absorb(a, m)
		e.arena.Absorb(b, m)
		e.promoteIfBig(m)
	}
	e.mergeTree.Merge(m, a, b, ev.At, x, y, n)
	e.sink.Merge()

	e.applyGuestPlacements(e.tree.InsertCenterOf(m, ev.At))
	cells := append([]glyph.CellID(nil), e.arena.Get(m).Cells...)
	for _, c := range cells {
		e.pushOutOfCellEvents(c, m, -1)
		for _, h := range e.tree.Glyphs(c) {
			if h == m || !e.arena.Get(h).Alive {
				continue
			}
			e.pushMergeCandidate(m, h)
		}
	}
}

// handleOutOfCell implements spec §4.4's OutOfCell event handler.
func (e *Engine) handleOutOfCell(ev event.Event) {
	g := e.arena.Get(ev.G)
	if !g.Alive {
		e.sink.StaleEvent()
		return
	}
	if !e.arena.InCell(ev.G, ev.Cell) || !e.tree.IsLeaf(ev.Cell) {
		e.sink.StaleEvent()
		return
	}

	for _, n := range e.tree.Neighbors(ev.Cell, ev.Side) {
		if e.arena.InCell(ev.G, n) {
			continue
		}
		rect := e.tree.Rect(n)
		if !e.grow.TouchesRectAt(g.Center(), e.effectiveWeight(ev.G), e.border(ev.G), rect, ev.At) {
			continue
		}
		e.tree.Register(ev.G, n)
		e.pushOutOfCellEvents(n, ev.G, opposite(ev.Side))
		for _, h := range e.tree.Glyphs(n) {
			if h == ev.G || !e.arena.Get(h).Alive {
				continue
			}
			e.pushMergeCandidate(ev.G, h)
		}
	}
}
