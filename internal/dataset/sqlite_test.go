package dataset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atoll-dev/siteplanner/internal/config"
	"github.com/atoll-dev/siteplanner/internal/feature"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "samples.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testSample(lat, lon float64, label, source string) Sample {
	return Sample{
		Latitude:    lat,
		Longitude:   lon,
		Label:       label,
		RuleVersion: "v1",
		Source:      source,
		Features: feature.Set{
			feature.NearbyCafes:  2,
			feature.FootTraffic:  60,
			feature.RoadDistance: 120.5,
		},
	}
}

func TestSQLiteAppendAndList(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := s.AppendSamples(ctx, []Sample{
		testSample(4.2150, 73.5380, "Café", SourceSynthetic),
		testSample(4.2200, 73.5400, "Park", SourceSynthetic),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	samples, err := s.ListSamples(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.NotEmpty(t, samples[0].ID, "missing IDs are generated")
	assert.False(t, samples[0].CreatedAt.IsZero())
	assert.Equal(t, "Café", samples[0].Label)
	assert.Equal(t, 2.0, samples[0].Features[feature.NearbyCafes])
	assert.Equal(t, 120.5, samples[0].Features[feature.RoadDistance])
}

func TestSQLiteListFilters(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.AppendSamples(ctx, []Sample{
		testSample(4.2150, 73.5380, "Café", SourceSynthetic),
		testSample(4.2200, 73.5400, "Park", SourceSynthetic),
		testSample(4.2250, 73.5420, "Café", SourceSurvey),
	})
	require.NoError(t, err)

	byLabel, err := s.ListSamples(ctx, Filter{Label: "Café"})
	require.NoError(t, err)
	assert.Len(t, byLabel, 2)

	bySource, err := s.ListSamples(ctx, Filter{Label: "Café", Source: SourceSurvey})
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, SourceSurvey, bySource[0].Source)

	limited, err := s.ListSamples(ctx, Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteCountByLabel(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.AppendSamples(ctx, []Sample{
		testSample(4.2150, 73.5380, "Café", SourceSynthetic),
		testSample(4.2200, 73.5400, "Park", SourceSynthetic),
		testSample(4.2250, 73.5420, "Café", SourceSurvey),
	})
	require.NoError(t, err)

	counts, err := s.CountByLabel(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Café": 2, "Park": 1}, counts)
}

func TestSQLiteAppendEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)

	n, err := s.AppendSamples(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatasetConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
