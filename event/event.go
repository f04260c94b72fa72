// Package event implements the clustering engine's event sum type and its
// priority queue (spec §3, §4.3): a binary min-heap over timestamped
// geometric events, ordered by time with ties broken by event kind and
// then by creation order.
package event

import (
	"container/heap"

	"github.com/noctilu/glyphcluster/geom"
	"github.com/noctilu/glyphcluster/glyph"
)

// Kind distinguishes the two event variants. Merge sorts before OutOfCell
// at equal timestamps, per spec §4.4's tie-break rule.
type Kind int

const (
	Merge Kind = iota
	OutOfCell
)

// Event is a tagged variant: {Merge, A, B} or {OutOfCell, G, Cell, Side}.
// Events are immutable once created — they carry a snapshot of what was
// known at creation time, per spec §3.
type Event struct {
	At   float64
	Kind Kind
	Seq  uint64 // creation order, the final tie-break after (At, Kind)

	// Merge fields.
	A, B glyph.ID

	// OutOfCell fields.
	G    glyph.ID
	Cell glyph.CellID
	Side geom.Side
}

// less implements the total order (at, kind_priority, event_creation_seq)
// adopted in spec §9 to make replay deterministic.
func less(a, b Event) bool {
	if a.At != b.At {
		return a.At < b.At
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Seq < b.Seq
}

// Queue is a binary min-heap of Events ordered by (At, Kind, Seq). It does
// not validate events against live state; stale entries are left in place
// and discarded by the caller when popped (spec §4.3).
type Queue struct {
	h   eventHeap
	seq uint64
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.h)
	return q
}

// PushMerge creates and enqueues a Merge event between a and b at time at.
func (q *Queue) PushMerge(at float64, a, b glyph.ID) {
	q.push(Event{At: at, Kind: Merge, A: a, B: b})
}

// PushOutOfCell creates and enqueues an OutOfCell event for glyph g
// crossing side of cell at time at.
func (q *Queue) PushOutOfCell(at float64, g glyph.ID, cell glyph.CellID, side geom.Side) {
	q.push(Event{At: at, Kind: OutOfCell, G: g, Cell: cell, Side: side})
}

func (q *Queue) push(e Event) {
	q.seq++
	e.Seq = q.seq
	heap.Push(&q.h, e)
}

// Pop removes and returns the earliest event. ok is false if the queue is
// empty.
func (q *Queue) Pop() (Event, bool) {
	if q.h.Len() == 0 {
		return Event{}, false
	}
	return heap.Pop(&q.h).(Event), true
}

// Peek returns the earliest event without removing it.
func (q *Queue) Peek() (Event, bool) {
	if q.h.Len() == 0 {
		return Event{}, false
	}
	return q.h[0], true
}

// Size returns the number of events currently queued.
func (q *Queue) Size() int { return q.h.Len() }

// eventHeap implements heap.Interface, adapted from
// katalvlaran/lvlath's edgePQ (container/heap over a typed slice), ordered
// by the (At, Kind, Seq) total order instead of edge weight.
type eventHeap []Event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(Event)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
