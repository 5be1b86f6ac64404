// Package survey collects training samples from live OpenStreetMap data. POI
// counts come from the Overpass API; foot traffic and road distance are
// estimated from POI density and the island's main road layout.
package survey

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atoll-dev/siteplanner/internal/dataset"
	"github.com/atoll-dev/siteplanner/internal/feature"
	"github.com/atoll-dev/siteplanner/internal/geo"
	"github.com/atoll-dev/siteplanner/internal/label"
	"github.com/atoll-dev/siteplanner/pkg/overpass"
)

// Approximate main roads of Hulhumalé used for the road distance estimate:
// two north-south roads by longitude and three east-west roads by latitude.
var (
	westRoadLon     = 73.5365
	eastRoadLon     = 73.5435
	centralRoadLats = []float64{4.215, 4.225, 4.235}
)

// categoryFeature maps an Overpass category onto its feature name.
var categoryFeature = map[string]string{
	"cafes":     feature.NearbyCafes,
	"groceries": feature.NearbyGroceries,
	"schools":   feature.NearbySchools,
	"houses":    feature.NearbyHouses,
	"parks":     feature.NearbyParks,
	"clinics":   feature.NearbyClinics,
}

// noiseSource yields the multiplicative noise applied to estimates.
type noiseSource interface {
	Float64() float64
}

type defaultNoise struct{}

func (defaultNoise) Float64() float64 { return rand.Float64() }

// Option configures the Runner.
type Option func(*Runner)

// WithWorkers sets the number of grid points processed concurrently.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithNoise overrides the randomness source, used by tests.
func WithNoise(src noiseSource) Option {
	return func(r *Runner) {
		r.noise = src
	}
}

// WithRule overrides the labeling rule. Collected samples record the given
// version string.
func WithRule(version string, rule label.Rule) Option {
	return func(r *Runner) {
		if rule != nil {
			r.rule = rule
			r.ruleVersion = version
		}
	}
}

// Runner walks the bounding box grid and collects one labeled sample per
// point.
type Runner struct {
	client      overpass.Client
	store       dataset.Store
	bounds      geo.Bounds
	spacing     float64
	workers     int
	rule        label.Rule
	ruleVersion string
	noise       noiseSource
}

// NewRunner creates a survey runner. Samples are labeled with the v2 rules.
func NewRunner(client overpass.Client, store dataset.Store, bounds geo.Bounds, spacing float64, opts ...Option) *Runner {
	r := &Runner{
		client:      client,
		store:       store,
		bounds:      bounds,
		spacing:     spacing,
		workers:     4,
		rule:        label.V2,
		ruleVersion: "v2",
		noise:       defaultNoise{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run collects a sample for every grid point and appends them to the store.
// Points whose Overpass queries fail are skipped with a warning; the run only
// fails when nothing could be collected or the store rejects the batch.
func (r *Runner) Run(ctx context.Context) (int64, error) {
	points := r.bounds.Grid(r.spacing)
	zap.L().Info("starting survey collection",
		zap.Int("points", len(points)),
		zap.Float64("spacing_deg", r.spacing),
		zap.Int("workers", r.workers),
	)

	var mu sync.Mutex
	samples := make([]dataset.Sample, 0, len(points))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)

	for _, pt := range points {
		eg.Go(func() error {
			smp, err := r.collectPoint(gCtx, pt)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				zap.L().Warn("skipping grid point",
					zap.Float64("lat", pt.Lat),
					zap.Float64("lon", pt.Lon),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			samples = append(samples, smp)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, eris.Wrap(err, "survey: collection aborted")
	}
	if len(samples) == 0 {
		return 0, eris.New("survey: no samples collected")
	}

	n, err := r.store.AppendSamples(ctx, samples)
	if err != nil {
		return 0, eris.Wrap(err, "survey: store samples")
	}
	zap.L().Info("survey collection complete",
		zap.Int64("stored", n),
		zap.Int("skipped", len(points)-len(samples)),
	)
	return n, nil
}

func (r *Runner) collectPoint(ctx context.Context, pt geo.Point) (dataset.Sample, error) {
	counts, err := r.client.CountAll(ctx, pt.Lat, pt.Lon)
	if err != nil {
		return dataset.Sample{}, err
	}

	fs := feature.Set{}
	for category, name := range categoryFeature {
		fs[name] = float64(counts[category])
	}
	fs[feature.FootTraffic] = float64(r.estimateFootTraffic(fs))
	fs[feature.RoadDistance] = r.estimateRoadDistance(pt.Lat, pt.Lon)

	return dataset.Sample{
		Latitude:    pt.Lat,
		Longitude:   pt.Lon,
		Label:       r.rule(fs),
		RuleVersion: r.ruleVersion,
		Source:      dataset.SourceSurvey,
		Features:    fs,
	}, nil
}

// estimateFootTraffic scores pedestrian activity from POI density. A stand-in
// for real pedestrian count data, clamped to [1, 100].
func (r *Runner) estimateFootTraffic(fs feature.Set) int {
	poiFactor := fs[feature.NearbyCafes]*15 +
		fs[feature.NearbyGroceries]*12 +
		fs[feature.NearbySchools]*20 +
		fs[feature.NearbyHouses]*0.5 +
		fs[feature.NearbyParks]*10 +
		fs[feature.NearbyClinics]*15

	score := 30 + poiFactor*r.uniform()
	return int(math.Min(100, math.Max(1, score)))
}

// estimateRoadDistance returns the distance in meters to the nearest main
// road, with noise, clamped to [10, 500].
func (r *Runner) estimateRoadDistance(lat, lon float64) float64 {
	minDist := math.Min(
		math.Abs(lon-westRoadLon)*geo.MetersPerDegree,
		math.Abs(lon-eastRoadLon)*geo.MetersPerDegree,
	)
	for _, roadLat := range centralRoadLats {
		minDist = math.Min(minDist, math.Abs(lat-roadLat)*geo.MetersPerDegree)
	}
	return math.Max(10, math.Min(500, minDist*r.uniform()))
}

// uniform draws the noise multiplier from [0.8, 1.2).
func (r *Runner) uniform() float64 {
	return 0.8 + r.noise.Float64()*0.4
}
