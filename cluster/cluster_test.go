package cluster

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noctilu/glyphcluster/config"
	"github.com/noctilu/glyphcluster/geom"
	"github.com/noctilu/glyphcluster/grow"
	"github.com/noctilu/glyphcluster/mergetree"
)

func bigWorld() geom.Rect {
	return geom.Rect{MinX: -1000, MinY: -1000, MaxX: 1000, MaxY: 1000}
}

func smallWorld() geom.Rect {
	return geom.Rect{MinX: -10, MinY: -10, MaxX: 10, MaxY: 10}
}

func newLinearSquareEngine(t *testing.T, world geom.Rect, maxGlyphsPerCell int) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.MaxGlyphsPerCell = maxGlyphsPerCell
	return New(world, grow.Square, grow.Linear, cfg, nil)
}

func runCluster(t *testing.T, e *Engine, opts Options) *mergetree.Node {
	t.Helper()
	root, err := e.Cluster(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, root)
	return root
}

// Scenario A: two equal-weight points under linear squares merge at t=1.0
// at the origin, weight 2 (spec §8.A).
func TestScenarioA_TwoEqualPoints(t *testing.T) {
	e := newLinearSquareEngine(t, smallWorld(), 10)
	require.NoError(t, e.InsertPoint(-1, 0, 1))
	require.NoError(t, e.InsertPoint(1, 0, 1))

	root := runCluster(t, e, DefaultOptions())

	assert.InDelta(t, 1.0, root.At, 1e-9)
	assert.InDelta(t, 0, root.X, 1e-9)
	assert.InDelta(t, 0, root.Y, 1e-9)
	assert.Equal(t, uint64(2), root.N)
	assert.Equal(t, 2, root.CountLeaves())
	assert.Equal(t, 1, root.CountInternal())
}

// Scenario B: three collinear equal points; both outer merges occur at
// t=1.0, and the final root has weight 3 at the origin (spec §8.B).
func TestScenarioB_ThreeCollinearPoints(t *testing.T) {
	e := newLinearSquareEngine(t, smallWorld(), 10)
	require.NoError(t, e.InsertPoint(-2, 0, 1))
	require.NoError(t, e.InsertPoint(0, 0, 1))
	require.NoError(t, e.InsertPoint(2, 0, 1))

	root := runCluster(t, e, DefaultOptions())

	assert.Equal(t, uint64(3), root.N)
	assert.InDelta(t, 0, root.X, 1e-9)
	assert.InDelta(t, 0, root.Y, 1e-9)
	assert.Equal(t, 3, root.CountLeaves())
	assert.Equal(t, 2, root.CountInternal())
}

// Scenario C: four-corner unit square under linear squares; all six
// pairwise touching times are 0.5, yielding three merges all at t=0.5 and
// a final root at (0.5, 0.5, 4) (spec §8.C).
func TestScenarioC_FourCornerSquare(t *testing.T) {
	e := newLinearSquareEngine(t, smallWorld(), 10)
	require.NoError(t, e.InsertPoint(0, 0, 1))
	require.NoError(t, e.InsertPoint(1, 0, 1))
	require.NoError(t, e.InsertPoint(0, 1, 1))
	require.NoError(t, e.InsertPoint(1, 1, 1))

	root := runCluster(t, e, DefaultOptions())

	assert.InDelta(t, 0.5, root.At, 1e-9)
	assert.InDelta(t, 0.5, root.X, 1e-9)
	assert.InDelta(t, 0.5, root.Y, 1e-9)
	assert.Equal(t, uint64(4), root.N)
	assert.Equal(t, 4, root.CountLeaves())
	assert.Equal(t, 3, root.CountInternal())
}

// Scenario D: weighted circles. Distance 10, weights 4 and 1 give
// t=10/(4+1)=2.0; the merge center is the weighted midpoint (2,0) with
// weight 5 (spec §8.D).
func TestScenarioD_WeightedCircles(t *testing.T) {
	cfg := config.Default()
	e := New(bigWorld(), grow.Circle, grow.Linear, cfg, nil)
	require.NoError(t, e.InsertPoint(0, 0, 4))
	require.NoError(t, e.InsertPoint(10, 0, 1))

	root := runCluster(t, e, DefaultOptions())

	assert.InDelta(t, 2.0, root.At, 1e-9)
	assert.InDelta(t, 2.0, root.X, 1e-9)
	assert.InDelta(t, 0, root.Y, 1e-9)
	assert.Equal(t, uint64(5), root.N)
}

// Scenario E: a world large enough, with MAX_GLYPHS_PER_CELL=1, that a
// distant pair must traverse at least one out-of-cell event before
// merging; the reported merge time must still equal the analytic
// intersect_at and no extra merges should appear (spec §8.E).
func TestScenarioE_OutOfCellTraversal(t *testing.T) {
	world := geom.Rect{MinX: -128, MinY: -128, MaxX: 128, MaxY: 128}
	cfg := config.Default()
	cfg.MaxGlyphsPerCell = 1
	e := New(world, grow.Square, grow.Linear, cfg, nil)
	// Chebyshev distance 200 between the two points, with a leaf capacity
	// of 1, forces at least one out-of-cell hop across the 256-wide
	// world's leaves before the merge is discovered.
	require.NoError(t, e.InsertPoint(-100, 0, 1))
	require.NoError(t, e.InsertPoint(100, 0, 1))

	root := runCluster(t, e, DefaultOptions())

	wantAt := 200.0 / 2.0 // distance 200, weights 1+1
	assert.InDelta(t, wantAt, root.At, 1e-9)
	assert.Equal(t, uint64(2), root.N)
	assert.Equal(t, 2, root.CountLeaves())
	assert.Equal(t, 1, root.CountInternal())
}

// Scenario F: with a {(1000, 0.5)} compression threshold and two glyphs
// of n=2000 each, the merge time must match the analytic value obtained
// from the same effective-weight computation the engine uses internally
// (w(g) = n(g)*compression(g), then the area-linear speed's sqrt), with
// the border 2*level that each glyph at compression level 1 carries —
// spec §8.F, §4.1, §4.6.
func TestScenarioF_CompressionThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.Compression = config.NewThresholds(config.Threshold{Weight: 1000, Compression: 0.5})
	e := New(bigWorld(), grow.Square, grow.LinearArea, cfg, nil)
	require.NoError(t, e.InsertPoint(0, 0, 2000))
	require.NoError(t, e.InsertPoint(100, 0, 2000))

	root := runCluster(t, e, Options{IncludeOutOfCell: true, CompressionOpt: true})

	w := 2000.0 * 0.5
	border := 2.0 * 1 // n=2000 is at or above one threshold: level 1
	f := grow.New(grow.Square, grow.LinearArea, cfg.MaxRadius, 4000)
	wantAt, ok := f.IntersectGlyphs(geom.Point{X: 0, Y: 0}, geom.Point{X: 100, Y: 0}, w, w, border, border)
	require.True(t, ok)

	assert.InDelta(t, wantAt, root.At, 1e-9)
	assert.Equal(t, uint64(4000), root.N)
}

// Running the same input/options twice on separate engines yields
// isomorphic (at, n, x, y) tuples at the root (spec §8 property 6).
func TestRoundTrip_Deterministic(t *testing.T) {
	build := func() *mergetree.Node {
		e := newLinearSquareEngine(t, smallWorld(), 10)
		require.NoError(t, e.InsertPoint(0, 0, 1))
		require.NoError(t, e.InsertPoint(1, 0, 1))
		require.NoError(t, e.InsertPoint(0, 1, 1))
		require.NoError(t, e.InsertPoint(1, 1, 1))
		return runCluster(t, e, DefaultOptions())
	}
	r1 := build()
	r2 := build()
	assert.Equal(t, r1.At, r2.At)
	assert.Equal(t, r1.N, r2.N)
	assert.Equal(t, r1.X, r2.X)
	assert.Equal(t, r1.Y, r2.Y)
}

// The big-glyph optimization must not change the set of (at, n, x, y)
// tuples at the root, up to DOUBLE_EPSILON (spec §8 property 7).
func TestBigGlyphOptimization_MatchesUnoptimized(t *testing.T) {
	cfg := config.Default()
	cfg.BigGlyphThreshold = 1 // any glyph past the first merge (n>=2) counts as big

	plain := New(smallWorld(), grow.Square, grow.Linear, cfg, nil)
	require.NoError(t, plain.InsertPoint(0, 0, 1))
	require.NoError(t, plain.InsertPoint(1, 0, 1))
	require.NoError(t, plain.InsertPoint(0, 1, 1))
	require.NoError(t, plain.InsertPoint(1, 1, 1))
	rootPlain := runCluster(t, plain, DefaultOptions())

	opt := New(smallWorld(), grow.Square, grow.Linear, cfg, nil)
	require.NoError(t, opt.InsertPoint(0, 0, 1))
	require.NoError(t, opt.InsertPoint(1, 0, 1))
	require.NoError(t, opt.InsertPoint(0, 1, 1))
	require.NoError(t, opt.InsertPoint(1, 1, 1))
	rootOpt := runCluster(t, opt, Options{IncludeOutOfCell: true, BigGlyphOpt: true})

	assert.InDelta(t, rootPlain.At, rootOpt.At, cfg.DoubleEpsilon)
	assert.Equal(t, rootPlain.N, rootOpt.N)
	assert.InDelta(t, rootPlain.X, rootOpt.X, cfg.DoubleEpsilon)
	assert.InDelta(t, rootPlain.Y, rootOpt.Y, cfg.DoubleEpsilon)
}

func TestInsertPoint_RejectsNonFiniteAndDuplicates(t *testing.T) {
	e := newLinearSquareEngine(t, smallWorld(), 10)
	require.NoError(t, e.InsertPoint(0, 0, 1))
	assert.Error(t, e.InsertPoint(math.Inf(1), 0, 1)) // non-finite coordinate
	assert.Error(t, e.InsertPoint(0, 0, 1))           // duplicate center
	assert.Error(t, e.InsertPoint(1, 1, 0))           // non-positive weight
}

func TestCluster_SingleInputReturnsLeaf(t *testing.T) {
	e := newLinearSquareEngine(t, smallWorld(), 10)
	require.NoError(t, e.InsertPoint(0, 0, 5))

	root, err := e.Cluster(context.Background(), DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.True(t, root.IsLeaf())
	assert.Equal(t, uint64(5), root.N)
}

func TestCluster_CancellationReturnsPartialTree(t *testing.T) {
	e := newLinearSquareEngine(t, smallWorld(), 10)
	require.NoError(t, e.InsertPoint(-2, 0, 1))
	require.NoError(t, e.InsertPoint(0, 0, 1))
	require.NoError(t, e.InsertPoint(2, 0, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root, err := e.Cluster(ctx, DefaultOptions())
	assert.Error(t, err)
	assert.NotNil(t, root)
}
