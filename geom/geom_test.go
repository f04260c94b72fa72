package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEuclidean(t *testing.T) {
	assert.Equal(t, 5.0, Euclidean(Point{0, 0}, Point{3, 4}))
}

func TestChebyshev(t *testing.T) {
	assert.Equal(t, 4.0, Chebyshev(Point{0, 0}, Point{3, 4}))
	assert.Equal(t, 3.0, Chebyshev(Point{0, 0}, Point{3, -2}))
}

func TestRectContains(t *testing.T) {
	r := Rect{0, 0, 10, 10}
	assert.True(t, r.Contains(Point{0, 0}))
	assert.False(t, r.Contains(Point{10, 10}))
	assert.True(t, r.Contains(Point{9.999, 9.999}))
}

func TestRectCenter(t *testing.T) {
	r := Rect{0, 0, 10, 10}
	assert.Equal(t, Point{5, 5}, r.Center())
}

func TestDistanceToSide(t *testing.T) {
	r := Rect{0, 0, 10, 10}
	assert.Equal(t, 5.0, DistanceToSide(Point{5, 5}, r, Top))
	assert.Equal(t, 5.0, DistanceToSide(Point{5, 5}, r, Bottom))
	assert.Equal(t, 5.0, DistanceToSide(Point{5, 5}, r, Left))
	assert.Equal(t, 5.0, DistanceToSide(Point{5, 5}, r, Right))
}
