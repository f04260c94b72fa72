package event

import (
	"testing"

	"github.com/noctilu/glyphcluster/glyph"
	"github.com/stretchr/testify/assert"
)

func TestQueueOrdersByTime(t *testing.T) {
	q := NewQueue()
	q.PushMerge(3.0, 0, 1)
	q.PushMerge(1.0, 1, 2)
	q.PushMerge(2.0, 2, 3)

	var times []float64
	for q.Size() > 0 {
		e, ok := q.Pop()
		assert.True(t, ok)
		times = append(times, e.At)
	}
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, times)
}

func TestQueueMergeBeforeOutOfCellAtSameTime(t *testing.T) {
	q := NewQueue()
	q.PushOutOfCell(1.0, 0, glyph.CellID(0), 0)
	q.PushMerge(1.0, 0, 1)

	e, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, Merge, e.Kind)
}

func TestQueuePeekDoesNotRemove(t *testing.T) {
	q := NewQueue()
	q.PushMerge(1.0, 0, 1)
	e1, _ := q.Peek()
	e2, _ := q.Peek()
	assert.Equal(t, e1, e2)
	assert.Equal(t, 1, q.Size())
}

func TestQueueEmptyPop(t *testing.T) {
	q := NewQueue()
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestQueueTieBreakBySeq(t *testing.T) {
	q := NewQueue()
	q.PushMerge(1.0, 0, 1)
	q.PushMerge(1.0, 2, 3)

	first, _ := q.Pop()
	second, _ := q.Pop()
	assert.Less(t, first.Seq, second.Seq)
}
