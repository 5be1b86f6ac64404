package predict

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atoll-dev/siteplanner/internal/feature"
	"github.com/atoll-dev/siteplanner/internal/geo"
)

// stubClassifier returns a fixed distribution, or an error.
type stubClassifier struct {
	probs []float64
	err   error
}

func (s *stubClassifier) PredictProba([]float64) ([]float64, error) {
	return s.probs, s.err
}

var labels = []string{"Café", "Clinic", "Park", "Residential"}

func newResolver(cache feature.Cache) *feature.Resolver {
	bounds := geo.New(4.2090, 4.2400, 73.5350, 73.5450)
	return feature.NewResolver(cache, feature.NewGenerator(bounds, nil))
}

func TestPredictSeededCacheScenario(t *testing.T) {
	cache := feature.NewMemCache(24 * time.Hour)
	seeded := feature.Set{
		feature.NearbyCafes:     3,
		feature.NearbyGroceries: 1,
		feature.NearbySchools:   1,
		feature.NearbyHouses:    8,
		feature.NearbyParks:     1,
		feature.NearbyClinics:   1,
		feature.FootTraffic:     75,
		feature.RoadDistance:    150,
	}
	require.NoError(t, cache.Put(feature.Key(4.2150, 73.5380), seeded))

	clf := &stubClassifier{probs: []float64{0.85, 0.10, 0.03, 0.02}}
	svc := NewService(newResolver(cache), clf, labels)

	res, err := svc.Predict(context.Background(), 4.2150, 73.5380)
	require.NoError(t, err)

	assert.Equal(t, "Café", res.Prediction)
	assert.Contains(t, res.Why, "cafes=3")
	assert.Contains(t, res.Why, "dist. to road=150m")
	assert.Equal(t, seeded, res.Features)
	assert.Equal(t, map[string]float64{
		"Café":        0.85,
		"Clinic":      0.10,
		"Park":        0.03,
		"Residential": 0.02,
	}, res.ConfidenceScores)
}

func TestPredictExplanationWording(t *testing.T) {
	cache := feature.NewMemCache(24 * time.Hour)
	require.NoError(t, cache.Put(feature.Key(4.2150, 73.5380), feature.Set{
		feature.NearbyCafes:     3,
		feature.NearbyGroceries: 1,
		feature.NearbySchools:   1,
		feature.NearbyHouses:    8,
		feature.NearbyParks:     1,
		feature.NearbyClinics:   1,
		feature.FootTraffic:     75,
		feature.RoadDistance:    150.4, // rounds to the nearest meter
	}))

	svc := NewService(newResolver(cache), &stubClassifier{probs: []float64{0.85, 0.10, 0.03, 0.02}}, labels)
	res, err := svc.Predict(context.Background(), 4.2150, 73.5380)
	require.NoError(t, err)

	assert.Equal(t,
		"Recommended 'Café' based on nearby features: cafes=3, groceries=1, schools=1, houses=8, parks=1, clinics=1, foot traffic=75, dist. to road=150m.",
		res.Why)
}

func TestPredictConfidenceSumsToOne(t *testing.T) {
	svc := NewService(
		newResolver(feature.NewMemCache(24*time.Hour)),
		&stubClassifier{probs: []float64{0.25, 0.25, 0.25, 0.25}},
		labels,
	)

	res, err := svc.Predict(context.Background(), 4.2200, 73.5400)
	require.NoError(t, err)

	require.Len(t, res.ConfidenceScores, len(labels))
	sum := 0.0
	for _, l := range labels {
		sum += res.ConfidenceScores[l]
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestPredictModelUnavailable(t *testing.T) {
	svc := NewService(newResolver(feature.NewMemCache(time.Hour)), nil, nil)

	_, err := svc.Predict(context.Background(), 4.2150, 73.5380)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.False(t, svc.Available())
}

func TestPredictClassifierFailure(t *testing.T) {
	svc := NewService(newResolver(feature.NewMemCache(time.Hour)), &stubClassifier{err: assert.AnError}, labels)

	_, err := svc.Predict(context.Background(), 4.2150, 73.5380)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPredictionFailed)
}

func TestPredictClassCountMismatch(t *testing.T) {
	svc := NewService(newResolver(feature.NewMemCache(time.Hour)), &stubClassifier{probs: []float64{1}}, labels)

	_, err := svc.Predict(context.Background(), 4.2150, 73.5380)
	assert.ErrorIs(t, err, ErrPredictionFailed)
}

func TestPredictHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(newResolver(feature.NewMemCache(time.Hour)), &stubClassifier{probs: []float64{1, 0, 0, 0}}, labels)
	_, err := svc.Predict(ctx, 4.2150, 73.5380)
	assert.ErrorIs(t, err, context.Canceled)
}
