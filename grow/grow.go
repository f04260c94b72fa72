// Package grow implements the glyph growth model: the (shape, speed) pair
// that determines how a glyph's boundary expands with time, and the
// analytic solvers that find the earliest time two glyphs (or a glyph and
// a quadtree-cell side) first touch.
package grow

import (
	"math"

	"github.com/noctilu/glyphcluster/geom"
)

// Shape selects the distance metric used between glyph centers: circles
// grow under the Euclidean metric, squares under Chebyshev.
type Shape int

const (
	Circle Shape = iota
	Square
)

// Speed selects how radius depends on time and weight.
type Speed int

const (
	Linear Speed = iota
	LinearArea
	Logarithmic
)

// Function is a fully configured grow function: a (shape, speed) pair,
// plus the scale factor logarithmic speed needs.
type Function struct {
	Shape Shape
	Speed Speed

	// fA is the logarithmic speed's scale factor, fA*log2(NTotal) = MaxRadius.
	// Unused for Linear/LinearArea.
	fA float64
}

// New builds a Function. For Logarithmic speed, maxRadius and totalWeight
// fix the scale factor fA via fA*log2(totalWeight) = maxRadius; totalWeight
// must be > 1 for the scale to be finite (a single-glyph input never grows
// under log speed, which is fine: there is nothing to merge).
func New(shape Shape, speed Speed, maxRadius float64, totalWeight float64) Function {
	f := Function{Shape: shape, Speed: speed}
	if speed == Logarithmic {
		lg := math.Log2(totalWeight)
		if lg > 0 {
			f.fA = maxRadius / lg
		}
	}
	return f
}

// Distance returns the distance between two centers under this function's
// shape metric.
func (f Function) Distance(a, b geom.Point) float64 {
	if f.Shape == Square {
		return geom.Chebyshev(a, b)
	}
	return geom.Euclidean(a, b)
}

// Radius returns the current radius of a glyph with effective weight w at
// time t.
func (f Function) Radius(w, t float64) float64 {
	if t <= 0 || w <= 0 {
		return 0
	}
	switch f.Speed {
	case Linear:
		return t * w
	case LinearArea:
		return t * math.Sqrt(w)
	case Logarithmic:
		if f.fA <= 0 {
			return 0
		}
		return f.fA * math.Log2(1+t*w)
	}
	panic("grow: invalid speed")
}

// never is returned by the solvers below when no finite non-negative time
// solves the touching equation.
const never = false

// IntersectGlyphs returns the earliest time t>=0 at which two glyphs with
// centers a, b, effective weights wa, wb and compression borders ba, bb
// first touch, solving
//
//	dist(a,b) - ba - bb = r(wa,t) + r(wb,t)
//
// analytically per speed. ok is false if the boundaries never touch (they
// already overlap is handled by t=0 below; non-finite/negative results are
// reported as "never" per spec's geometry-impossibility rule).
func (f Function) IntersectGlyphs(a, b geom.Point, wa, wb, ba, bb float64) (t float64, ok bool) {
	d := f.Distance(a, b) - ba - bb
	if d <= 0 {
		return 0, true
	}
	if wa <= 0 && wb <= 0 {
		return 0, never
	}
	switch f.Speed {
	case Linear:
		denom := wa + wb
		if denom <= 0 {
			return 0, never
		}
		return finite(d / denom)
	case LinearArea:
		denom := math.Sqrt(wa) + math.Sqrt(wb)
		if denom <= 0 {
			return 0, never
		}
		return finite(d / denom)
	case Logarithmic:
		return f.intersectLogTwoBody(d, wa, wb)
	}
	panic("grow: invalid speed")
}

// intersectLogTwoBody solves d = fA*log2(1+t*a) + fA*log2(1+t*b) for t,
// using the closed form from spec §4.1:
//
//	t = (sqrt(a^2 + 4ab*2^(d/fA) - 2ab + b^2) - a - b) / (2ab)
func (f Function) intersectLogTwoBody(d, a, b float64) (float64, bool) {
	if f.fA <= 0 {
		return 0, never
	}
	if a <= 0 {
		return f.intersectLogOneBody(d, b)
	}
	if b <= 0 {
		return f.intersectLogOneBody(d, a)
	}
	pow := math.Pow(2, d/f.fA)
	under := a*a + 4*a*b*pow - 2*a*b + b*b
	if under < 0 {
		return 0, never
	}
	t := (math.Sqrt(under) - a - b) / (2 * a * b)
	return finite(t)
}

// intersectLogOneBody solves d = fA*log2(1+t*w) for t, the case where only
// one side grows (used both when the other glyph has zero weight and for
// glyph-vs-cell-side crossings).
func (f Function) intersectLogOneBody(d, w float64) (float64, bool) {
	if f.fA <= 0 || w <= 0 {
		return 0, never
	}
	t := (math.Pow(2, d/f.fA) - 1) / w
	return finite(t)
}

// IntersectSide returns the earliest time t>=0 at which a glyph centered
// at p with effective weight w and compression border border crosses the
// side s of rect.
func (f Function) IntersectSide(p geom.Point, w, border float64, rect geom.Rect, s geom.Side) (t float64, ok bool) {
	d := geom.DistanceToSide(p, rect, s) - border
	if d <= 0 {
		return 0, true
	}
	if w <= 0 {
		return 0, never
	}
	switch f.Speed {
	case Linear:
		return finite(d / w)
	case LinearArea:
		return finite(d / math.Sqrt(w))
	case Logarithmic:
		return f.intersectLogOneBody(d, w)
	}
	panic("grow: invalid speed")
}

// TouchesRectAt reports whether a glyph centered at p with effective
// weight w, compression border border, and shape/speed f has grown far
// enough by time t to touch rect — used by the out-of-cell handler to
// decide whether a glyph reaching a neighboring leaf actually belongs
// there (spec §4.4: "determine whether g's shape at time e.at touches
// L's rectangle").
func (f Function) TouchesRectAt(p geom.Point, w, border float64, rect geom.Rect, t float64) bool {
	nearest := geom.ClampToRect(p, rect)
	d := f.Distance(p, nearest) - border
	if d <= 0 {
		return true
	}
	return f.Radius(w, t) >= d
}

// finite reports whether t is a usable (finite, non-negative) time.
func finite(t float64) (float64, bool) {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return 0, never
	}
	return t, true
}
