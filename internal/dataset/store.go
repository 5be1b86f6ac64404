// Package dataset persists labeled training samples produced by the offline
// collection pipelines.
package dataset

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/atoll-dev/siteplanner/internal/config"
	"github.com/atoll-dev/siteplanner/internal/feature"
)

// Sample sources.
const (
	SourceSynthetic = "synthetic"
	SourceSurvey    = "survey"
)

// Sample is one labeled grid point.
type Sample struct {
	ID          string      `json:"id"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Label       string      `json:"label"`
	RuleVersion string      `json:"rule_version"`
	Source      string      `json:"source"`
	Features    feature.Set `json:"features"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Filter narrows ListSamples.
type Filter struct {
	Label  string
	Source string
	Limit  int
	Offset int
}

// Store defines the persistence interface for training samples.
type Store interface {
	AppendSamples(ctx context.Context, samples []Sample) (int64, error)
	ListSamples(ctx context.Context, filter Filter) ([]Sample, error)
	CountByLabel(ctx context.Context) (map[string]int64, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the Store selected by configuration.
func Open(ctx context.Context, cfg config.DatasetConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("dataset: unknown driver %q", cfg.Driver)
	}
}
