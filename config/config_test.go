package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 10, c.MaxGlyphsPerCell)
	assert.Equal(t, 0.001, c.MinCellSize)
}

func TestCompressionForEmpty(t *testing.T) {
	var ts Thresholds
	assert.Equal(t, 1.0, ts.CompressionFor(5000))
}

func TestCompressionForScenarioF(t *testing.T) {
	ts := NewThresholds(Threshold{Weight: 1000, Compression: 0.5})
	assert.Equal(t, 1.0, ts.CompressionFor(999))
	assert.Equal(t, 0.5, ts.CompressionFor(1000))
	assert.Equal(t, 0.5, ts.CompressionFor(2000))
}

func TestCompressionForMultipleThresholds(t *testing.T) {
	ts := NewThresholds(
		Threshold{Weight: 2000, Compression: 0.25},
		Threshold{Weight: 1000, Compression: 0.5},
	)
	assert.Equal(t, 1.0, ts.CompressionFor(500))
	assert.Equal(t, 0.5, ts.CompressionFor(1500))
	assert.Equal(t, 0.25, ts.CompressionFor(3000))
}
