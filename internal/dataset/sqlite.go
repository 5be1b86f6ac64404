package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/atoll-dev/siteplanner/internal/feature"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS samples (
	id           TEXT PRIMARY KEY,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	label        TEXT NOT NULL,
	rule_version TEXT NOT NULL,
	source       TEXT NOT NULL,
	features     TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_samples_label ON samples(label);
CREATE INDEX IF NOT EXISTS idx_samples_source ON samples(source);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AppendSamples(ctx context.Context, samples []Sample) (int64, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (id, latitude, longitude, label, rule_version, source, features, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

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
			return inserted, eris.Wrap(err, "sqlite: marshal features")
		}

		if _, err := stmt.ExecContext(ctx,
			id, smp.Latitude, smp.Longitude, smp.Label, smp.RuleVersion, smp.Source,
			string(featuresJSON), createdAt,
		); err != nil {
			return inserted, eris.Wrap(err, "sqlite: insert sample")
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return inserted, nil
}

func (s *SQLiteStore) ListSamples(ctx context.Context, filter Filter) ([]Sample, error) {
	query := `SELECT id, latitude, longitude, label, rule_version, source, features, created_at
	          FROM samples WHERE 1=1`
	var args []any

	if filter.Label != "" {
		query += ` AND label = ?`
		args = append(args, filter.Label)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY created_at, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list samples")
	}
	defer rows.Close() //nolint:errcheck

	var samples []Sample
	for rows.Next() {
		var smp Sample
		var featuresJSON string
		if err := rows.Scan(&smp.ID, &smp.Latitude, &smp.Longitude, &smp.Label,
			&smp.RuleVersion, &smp.Source, &featuresJSON, &smp.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sample")
		}
		smp.Features = feature.Set{}
		if err := json.Unmarshal([]byte(featuresJSON), &smp.Features); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal features")
		}
		samples = append(samples, smp)
	}
	return samples, eris.Wrap(rows.Err(), "sqlite: list samples iterate")
}

func (s *SQLiteStore) CountByLabel(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, COUNT(*) FROM samples GROUP BY label`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by label")
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[string]int64)
	for rows.Next() {
		var label string
		var n int64
		if err := rows.Scan(&label, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan count")
		}
		counts[label] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count iterate")
}
