package dataset

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/atoll-dev/siteplanner/internal/feature"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS samples (
	id           TEXT PRIMARY KEY,
	latitude     DOUBLE PRECISION NOT NULL,
	longitude    DOUBLE PRECISION NOT NULL,
	label        TEXT NOT NULL,
	rule_version TEXT NOT NULL,
	source       TEXT NOT NULL,
	features     JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_samples_label ON samples(label);
CREATE INDEX IF NOT EXISTS idx_samples_source ON samples(source)`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) AppendSamples(ctx context.Context, samples []Sample) (int64, error) {
	var inserted int64
	for _, smp := range samples {
		id := smp.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := smp.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		featuresJSON, err := json.Marshal(smp.Features)
		if err != nil {
			return inserted, eris.Wrap(err, "postgres: marshal features")
		}

		tag, err := s.pool.Exec(ctx,
			`INSERT INTO samples (id, latitude, longitude, label, rule_version, source, features, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, smp.Latitude, smp.Longitude, smp.Label, smp.RuleVersion, smp.Source,
			string(featuresJSON), createdAt,
		)
		if err != nil {
			return inserted, eris.Wrap(err, "postgres: insert sample")
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func (s *PostgresStore) ListSamples(ctx context.Context, filter Filter) ([]Sample, error) {
	query := `SELECT id, latitude, longitude, label, rule_version, source, features, created_at
	          FROM samples WHERE 1=1`
	var args []any

	if filter.Label != "" {
		args = append(args, filter.Label)
		query += ` AND label = $1`
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		query += ` AND source = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at, id`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += ` OFFSET $` + strconv.Itoa(len(args))
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list samples")
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var smp Sample
		var featuresJSON string
		if err := rows.Scan(&smp.ID, &smp.Latitude, &smp.Longitude, &smp.Label,
			&smp.RuleVersion, &smp.Source, &featuresJSON, &smp.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sample")
		}
		smp.Features = feature.Set{}
		if err := json.Unmarshal([]byte(featuresJSON), &smp.Features); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal features")
		}
		samples = append(samples, smp)
	}
	return samples, eris.Wrap(rows.Err(), "postgres: list samples iterate")
}

func (s *PostgresStore) CountByLabel(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT label, COUNT(*) FROM samples GROUP BY label`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by label")
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var label string
		var n int64
		if err := rows.Scan(&label, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan count")
		}
		counts[label] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count iterate")
}
