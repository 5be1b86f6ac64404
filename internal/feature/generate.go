package feature

import (
	"math"
	"math/rand/v2"

	"github.com/atoll-dev/siteplanner/internal/geo"
)

// Source supplies randomness for feature generation. Injectable so tests can
// substitute fixed values.
type Source interface {
	// IntN returns a uniform int in [0, n).
	IntN(n int) int
	// Float64 returns a uniform float64 in [0, 1).
	Float64() float64
}

type defaultSource struct{}

func (defaultSource) IntN(n int) int    { return rand.IntN(n) }
func (defaultSource) Float64() float64 { return rand.Float64() }

// DefaultSource returns the process-wide random source.
func DefaultSource() Source { return defaultSource{} }

// Generator produces synthetic POI features for a coordinate. The spatial
// patterns are a deliberately simple prior standing in for a real POI data
// source: more cafés to the north, more houses to the east, parks near the
// center, clinics and schools to the south and west.
type Generator struct {
	bounds geo.Bounds
	src    Source
}

// NewGenerator creates a Generator over the given region. A nil src falls
// back to the process-wide random source.
func NewGenerator(bounds geo.Bounds, src Source) *Generator {
	if src == nil {
		src = DefaultSource()
	}
	return &Generator{bounds: bounds, src: src}
}

// randInt returns a uniform int in [lo, hi], both inclusive.
func (g *Generator) randInt(lo, hi int) int {
	return lo + g.src.IntN(hi-lo+1)
}

// Counts generates the six POI count features for a coordinate. Each count is
// a linear function of the normalized position plus a small random offset,
// floored and clamped at zero.
func (g *Generator) Counts(lat, lon float64) Set {
	nlat, nlon := g.bounds.Normalize(lat, lon)
	centerDist := g.bounds.CenterDistance(lat, lon)

	counts := map[string]float64{
		NearbyCafes:     math.Floor(3*nlat + float64(g.randInt(0, 2))),
		NearbyGroceries: math.Floor(2*(1-nlon) + float64(g.randInt(0, 2))),
		NearbySchools:   math.Floor(3*(1-nlat)*(1-nlon) + float64(g.randInt(0, 1))),
		NearbyHouses:    math.Floor(15*nlon + float64(g.randInt(5, 15))),
		NearbyParks:     math.Floor(3*(1-centerDist*10) + float64(g.randInt(0, 1))),
		NearbyClinics:   math.Floor(2*(1-nlat) + float64(g.randInt(0, 1))),
	}

	out := make(Set, len(counts))
	for name, v := range counts {
		out[name] = math.Max(0, v)
	}
	return out
}

// Auxiliary generates the two position-independent scores: a foot traffic
// score in [1, 100] and a distance to the nearest main road in [10, 500)
// meters.
func (g *Generator) Auxiliary() Set {
	return Set{
		FootTraffic:  float64(g.randInt(1, 100)),
		RoadDistance: 10 + g.src.Float64()*490,
	}
}

// Generate returns a full eight-feature set for a coordinate.
func (g *Generator) Generate(lat, lon float64) Set {
	return g.Counts(lat, lon).Merge(g.Auxiliary())
}
