package cluster

import (
	"container/heap"

	ierrors "github.com/noctilu/glyphcluster/errors"
	"github.com/noctilu/glyphcluster/glyph"
)

// UncertainMerge is a still-pending merge with one big participant (spec
// §3, §4.5): stored in the big glyph's secondary queue keyed by a lower
// bound on the real merge time, rather than in the primary event queue,
// since absorbing more weight can only push the big glyph's true merge
// time with a small glyph later.
type UncertainMerge struct {
	Big   glyph.ID // the big glyph's root at the time this entry was created
	Small glyph.ID
	At    float64 // intersection time computed from the state at creation
	LB    float64 // lower bound on the real merge time from here on
}

// uncertainHeap is a container/heap min-heap of UncertainMerge ordered by
// LB, one per big glyph, mirroring event.eventHeap's shape.
type uncertainHeap []UncertainMerge

func (h uncertainHeap) Len() int            { return len(h) }
func (h uncertainHeap) Less(i, j int) bool  { return h[i].LB < h[j].LB }
func (h uncertainHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *uncertainHeap) Push(x interface{}) { *h = append(*h, x.(UncertainMerge)) }
func (h *uncertainHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// bigHead is a lazily-validated pointer into one big glyph's secondary
// queue: the LB its queue's head had when this entry was pushed. Entries
// go stale the moment their glyph's queue head changes; stale entries are
// filtered on pop exactly like event.Queue handles obsolete events
// (spec §4.3's "no decrease-key; filtered lazily on pop").
type bigHead struct {
	big glyph.ID
	lb  float64
}

type bigHeapT []bigHead

func (h bigHeapT) Len() int            { return len(h) }
func (h bigHeapT) Less(i, j int) bool  { return h[i].lb < h[j].lb }
func (h bigHeapT) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *bigHeapT) Push(x interface{}) { *h = append(*h, x.(bigHead)) }
func (h *bigHeapT) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// lowerBound computes lb = (n_big/(n_a+n_b))^2 per spec §4.5's stated
// formula for linear growth; used as a (possibly loose) bound for every
// speed function, since a tighter per-speed formula is not given.
func (e *Engine) lowerBound(big, small glyph.ID) float64 {
	nBig := float64(e.arena.Get(big).N)
	nSmall := float64(e.arena.Get(small).N)
	total := nBig + nSmall
	if total <= 0 {
		return 0
	}
	ratio := nBig / total
	return ratio * ratio
}

// pushUncertainMerge records a pending merge between a big glyph and a
// small one in the big glyph's secondary queue, updating the global
// bigHeap so the minimum lower bound across every big glyph stays
// discoverable in O(log n).
func (e *Engine) pushUncertainMerge(big, small glyph.ID) {
	at, ok := e.intersectTime(big, small)
	if !ok {
		return
	}
	um := UncertainMerge{Big: big, Small: small, At: at, LB: e.lowerBound(big, small)}
	q, ok := e.secondaries[big]
	if !ok {
		q = &uncertainHeap{}
		e.secondaries[big] = q
	}
	heap.Push(q, um)
	heap.Push(&e.bigHeap, bigHead{big: big, lb: (*q)[0].LB})
}

// peekMinUncertainLB returns the smallest lower bound across every big
// glyph's secondary queue, discarding stale bigHeap entries along the
// way.
func (e *Engine) peekMinUncertainLB() (float64, bool) {
	for e.bigHeap.Len() > 0 {
		top := e.bigHeap[0]
		q, ok := e.secondaries[top.big]
		if !ok || q.Len() == 0 || (*q)[0].LB != top.lb {
			heap.Pop(&e.bigHeap)
			continue
		}
		return top.lb, true
	}
	return 0, false
}

// popMinUncertain removes and returns the uncertain merge with the
// smallest lower bound across every big glyph's secondary queue.
func (e *Engine) popMinUncertain() (UncertainMerge, bool) {
	for e.bigHeap.Len() > 0 {
		top := heap.Pop(&e.bigHeap).(bigHead)
		q, ok := e.secondaries[top.big]
		if !ok || q.Len() == 0 || (*q)[0].LB != top.lb {
			continue
		}
		um := heap.Pop(q).(UncertainMerge)
		if q.Len() > 0 {
			heap.Push(&e.bigHeap, bigHead{big: top.big, lb: (*q)[0].LB})
		}
		return um, true
	}
	return UncertainMerge{}, false
}

// resolveUncertain re-validates an UncertainMerge against current state,
// following the big glyph's union-find parent chain to its current root
// (path-compressed by Arena.Root), and pushes a real Merge event onto the
// primary queue using the actual intersection time, recomputed against
// the current root (the cached At is not read) — per spec §9's adopted
// resolution, an actual intersection time is used, never the lower bound
// lb.
//
// um.Big itself may be long dead by the time this runs — every merge it
// took part in chains its old ID to the surviving composite via
// handleMerge's Arena.Absorb calls, so Root always resolves it to a live
// glyph as long as that chain was actually built. A root that still comes
// back dead means the chain is broken, which is an engine bug, not an
// ordinary stale event.
func (e *Engine) resolveUncertain(um UncertainMerge) {
	bigCur := e.arena.Root(um.Big)
	bigG := e.arena.Get(bigCur)
	smallG := e.arena.Get(um.Small)
	if !smallG.Alive || bigCur == um.Small {
		e.sink.StaleEvent()
		return
	}
	if !bigG.Alive {
		ierrors.InternalInvariant("resolveUncertain: big glyph %d resolved to dead root %d", um.Big, bigCur)
	}
	at, ok := e.intersectTime(bigCur, um.Small)
	if !ok {
		return
	}
	e.queue.PushMerge(at, bigCur, um.Small)
}

// drainUncertain resolves every uncertain merge whose lower bound is more
// than DoubleEpsilon before the primary queue's next event (or every one,
// when the primary queue is empty), so the primary queue's head
// is always safe to process once this returns (spec §4.5: uncertain
// events are "lazily re-validated when popped").
func (e *Engine) drainUncertain() {
	for {
		lb, ok := e.peekMinUncertainLB()
		if !ok {
			return
		}
		if top, hasPrimary := e.queue.Peek(); hasPrimary && top.At <= lb+e.cfg.DoubleEpsilon {
			return
		}
		um, ok := e.popMinUncertain()
		if !ok {
			return
		}
		e.resolveUncertain(um)
	}
}
