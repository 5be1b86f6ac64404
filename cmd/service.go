package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/atoll-dev/siteplanner/internal/classifier"
	"github.com/atoll-dev/siteplanner/internal/config"
	"github.com/atoll-dev/siteplanner/internal/dataset"
	"github.com/atoll-dev/siteplanner/internal/feature"
	"github.com/atoll-dev/siteplanner/internal/geo"
	"github.com/atoll-dev/siteplanner/internal/predict"
)

// newPredictService wires the feature resolver and the classifier artifact.
// A missing or invalid artifact leaves the service in the degraded state
// where every prediction fails; serving still starts so the health endpoint
// stays reachable.
func newPredictService(cfg *config.Config) *predict.Service {
	bounds := geo.FromConfig(cfg.Bounds)
	cache := feature.NewFileCache(cfg.Cache.Dir, cfg.Cache.TTL())
	resolver := feature.NewResolver(cache, feature.NewGenerator(bounds, nil))

	artifact, err := classifier.Load(cfg.Model.Path)
	if err != nil {
		zap.L().Warn("model artifact unavailable, serving degraded",
			zap.String("path", cfg.Model.Path),
			zap.Error(err),
		)
		return predict.NewService(resolver, nil, nil)
	}

	zap.L().Info("model artifact loaded",
		zap.String("path", cfg.Model.Path),
		zap.Strings("classes", artifact.LabelClasses),
		zap.Int("trees", len(artifact.Forest.Trees)),
	)
	return predict.NewService(resolver, artifact.Forest, artifact.LabelClasses)
}

// openStore opens the configured dataset store and runs migrations.
func openStore(ctx context.Context) (dataset.Store, error) {
	store, err := dataset.Open(ctx, cfg.Dataset)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}
	return store, nil
}
