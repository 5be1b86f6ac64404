package dataset

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atoll-dev/siteplanner/internal/feature"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS samples`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendSamples(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO samples`).
		WithArgs(pgxmock.AnyArg(), 4.2150, 73.5380, "Café", "v1", SourceSynthetic,
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := s.AppendSamples(context.Background(), []Sample{
		testSample(4.2150, 73.5380, "Café", SourceSynthetic),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendSamplesInsertError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO samples`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	_, err := s.AppendSamples(context.Background(), []Sample{
		testSample(4.2150, 73.5380, "Café", SourceSynthetic),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert sample")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListSamples(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "latitude", "longitude", "label", "rule_version", "source", "features", "created_at",
	}).AddRow("abc", 4.2150, 73.5380, "Café", "v1", SourceSynthetic,
		`{"nearby_cafes":3,"foot_traffic_score":75}`, now)

	mock.ExpectQuery(`SELECT .* FROM samples`).
		WithArgs("Café").
		WillReturnRows(rows)

	samples, err := s.ListSamples(context.Background(), Filter{Label: "Café"})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "abc", samples[0].ID)
	assert.Equal(t, 3.0, samples[0].Features[feature.NearbyCafes])
	assert.Equal(t, 75.0, samples[0].Features[feature.FootTraffic])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCountByLabel(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"label", "count"}).
		AddRow("Café", int64(12)).
		AddRow("Park", int64(3))

	mock.ExpectQuery(`SELECT label, COUNT`).WillReturnRows(rows)

	counts, err := s.CountByLabel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Café": 12, "Park": 3}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
