package glyph

import (
	"testing"

	"github.com/noctilu/glyphcluster/config"
	"github.com/stretchr/testify/assert"
)

func TestArenaNewAndGet(t *testing.T) {
	a := NewArena()
	id := a.New(1, 2, 3)
	g := a.Get(id)
	assert.Equal(t, 1.0, g.X)
	assert.True(t, g.Alive)
	assert.Equal(t, NoParent, g.Parent)
}

func TestCellsRoundTrip(t *testing.T) {
	a := NewArena()
	id := a.New(0, 0, 1)
	a.AddCell(id, CellID(5))
	assert.True(t, a.InCell(id, CellID(5)))
	assert.False(t, a.InCell(id, CellID(6)))
	a.ClearCells(id)
	assert.False(t, a.InCell(id, CellID(5)))
}

func TestRootNoParent(t *testing.T) {
	a := NewArena()
	id := a.New(0, 0, 1)
	assert.Equal(t, id, a.Root(id))
}

func TestRootPathCompression(t *testing.T) {
	a := NewArena()
	g1 := a.New(0, 0, 1)
	g2 := a.New(1, 1, 1)
	g3 := a.New(2, 2, 1)
	a.Absorb(g1, g2)
	a.Absorb(g2, g3)

	assert.Equal(t, g3, a.Root(g1))
	// path compression should now point g1 directly at g3
	assert.Equal(t, g3, a.Get(g1).Parent)
}

func TestEffectiveWeightNoCompression(t *testing.T) {
	a := NewArena()
	id := a.New(0, 0, 100)
	assert.Equal(t, 100.0, a.EffectiveWeight(id, nil))
}

func TestEffectiveWeightWithCompression(t *testing.T) {
	a := NewArena()
	id := a.New(0, 0, 2000)
	ts := config.NewThresholds(config.Threshold{Weight: 1000, Compression: 0.5})
	assert.Equal(t, 1000.0, a.EffectiveWeight(id, ts))
}

func TestCompressionLevel(t *testing.T) {
	ts := config.NewThresholds(
		config.Threshold{Weight: 1000, Compression: 0.5},
		config.Threshold{Weight: 2000, Compression: 0.25},
	)
	assert.Equal(t, 0, CompressionLevel(ts, 500))
	assert.Equal(t, 1, CompressionLevel(ts, 1500))
	assert.Equal(t, 2, CompressionLevel(ts, 3000))
}
