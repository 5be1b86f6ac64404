// Package geo models the bounded region the predictor operates within.
package geo

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/atoll-dev/siteplanner/internal/config"
)

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64
	Lon float64
}

// Bounds is the rectangular region of interest.
type Bounds struct {
	rect *geom.Bounds
}

// New creates Bounds from the four scalar extents.
func New(minLat, maxLat, minLon, maxLon float64) Bounds {
	return Bounds{rect: geom.NewBounds(geom.XY).Set(minLon, minLat, maxLon, maxLat)}
}

// FromConfig creates Bounds from configuration.
func FromConfig(cfg config.BoundsConfig) Bounds {
	return New(cfg.MinLat, cfg.MaxLat, cfg.MinLon, cfg.MaxLon)
}

func (b Bounds) MinLat() float64 { return b.rect.Min(1) }
func (b Bounds) MaxLat() float64 { return b.rect.Max(1) }
func (b Bounds) MinLon() float64 { return b.rect.Min(0) }
func (b Bounds) MaxLon() float64 { return b.rect.Max(0) }

// Contains reports whether the point lies within the region.
func (b Bounds) Contains(lat, lon float64) bool {
	return b.rect.OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

// Normalize maps a coordinate to its position within the bounds, 0 at the
// min corner and 1 at the max. Points outside the region map outside [0, 1];
// callers tolerate that.
func (b Bounds) Normalize(lat, lon float64) (nlat, nlon float64) {
	nlat = (lat - b.MinLat()) / (b.MaxLat() - b.MinLat())
	nlon = (lon - b.MinLon()) / (b.MaxLon() - b.MinLon())
	return nlat, nlon
}

// Center returns the midpoint of the region.
func (b Bounds) Center() (lat, lon float64) {
	return (b.MinLat() + b.MaxLat()) / 2, (b.MinLon() + b.MaxLon()) / 2
}

// CenterDistance returns the Euclidean distance from the region's center in
// raw coordinate units.
func (b Bounds) CenterDistance(lat, lon float64) float64 {
	cLat, cLon := b.Center()
	return math.Sqrt((lat-cLat)*(lat-cLat) + (lon-cLon)*(lon-cLon))
}

// Grid returns a row-major lattice of sample points spaced by the given step
// in degrees, inclusive of the bounds on both axes.
func (b Bounds) Grid(spacing float64) []Point {
	var points []Point
	for lat := b.MinLat(); lat <= b.MaxLat(); lat += spacing {
		for lon := b.MinLon(); lon <= b.MaxLon(); lon += spacing {
			points = append(points, Point{Lat: lat, Lon: lon})
		}
	}
	return points
}
