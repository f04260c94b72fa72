// Package config holds the clustering engine's tunable constants (spec §6)
// and the compression-threshold table (spec §4.6), with an optional YAML
// loader for callers who want to externalize tuning rather than hardcode
// it, following SnellerInc/sneller's convention of sigs.k8s.io/yaml-backed
// config objects.
package config

import (
	"os"
	"sort"

	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

// Config bundles the tunables listed in spec §6.
type Config struct {
	// MaxGlyphsPerCell is a leaf's capacity before it splits.
	MaxGlyphsPerCell int `json:"maxGlyphsPerCell"`
	// MinCellSize is the smallest leaf side length; below it, a full leaf
	// no longer splits (glyphs simply accumulate).
	MinCellSize float64 `json:"minCellSize"`
	// MaxRadius scales the logarithmic speed function's fA factor.
	MaxRadius float64 `json:"maxRadius"`
	// BigGlyphThreshold is the weight above which a glyph is flagged big
	// and tracked through the secondary uncertain-merge queue.
	BigGlyphThreshold float64 `json:"bigGlyphThreshold"`
	// DoubleEpsilon is the tie-break tolerance for "same time" comparisons.
	DoubleEpsilon float64 `json:"doubleEpsilon"`
	// Compression is the sorted threshold->factor table of spec §4.6.
	Compression Thresholds `json:"compression"`
}

// Default returns the documented defaults of spec §6: a leaf capacity of
// 10, a minimum cell side of 0.001, and no compression thresholds.
func Default() Config {
	return Config{
		MaxGlyphsPerCell:  10,
		MinCellSize:       0.001,
		MaxRadius:         100,
		BigGlyphThreshold: 0,
		DoubleEpsilon:     1e-9,
	}
}

// Load reads a Config from a YAML file, starting from Default() and
// overlaying whatever fields the file sets.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	cfg.Compression.sort()
	return cfg, nil
}

// Threshold is one (weight, compression-factor) entry.
type Threshold struct {
	Weight      float64 `json:"weight"`
	Compression float64 `json:"compression"`
}

// Thresholds is a set of Threshold entries, kept sorted ascending by
// Weight so CompressionFor can binary-search it.
type Thresholds []Threshold

func (ts Thresholds) sort() {
	slices.SortFunc(ts, func(a, b Threshold) bool { return a.Weight < b.Weight })
}

// NewThresholds builds a sorted Thresholds table from unordered entries.
func NewThresholds(entries ...Threshold) Thresholds {
	ts := Thresholds(append([]Threshold(nil), entries...))
	ts.sort()
	return ts
}

// CompressionFor returns the compression factor that applies to a glyph
// of weight n: the factor of the greatest threshold <= n, or 1.0 (no
// compression) if n is below every threshold or the table is empty.
func (ts Thresholds) CompressionFor(n float64) float64 {
	if len(ts) == 0 {
		return 1.0
	}
	// sort.Search finds the first index whose Weight > n; the threshold
	// just before it (if any) is the greatest <= n.
	i := sort.Search(len(ts), func(i int) bool { return ts[i].Weight > n })
	if i == 0 {
		return 1.0
	}
	return ts[i-1].Compression
}
