package feature

import "go.uber.org/zap"

// Resolver produces the feature set for a coordinate: cached when a fresh
// entry exists, freshly generated and cached otherwise.
type Resolver struct {
	cache Cache
	gen   *Generator
}

// NewResolver creates a Resolver over the given cache and generator.
func NewResolver(cache Cache, gen *Generator) *Resolver {
	return &Resolver{cache: cache, gen: gen}
}

// Resolve returns the feature set for a coordinate. A cache hit is returned
// verbatim. On a miss the six POI counts are generated from position, merged
// with two fresh auxiliary scores, and written back; a failed write is logged
// and the freshly generated set is still returned. Concurrent misses on the
// same key race benignly — each generates independently and the last write
// wins.
func (r *Resolver) Resolve(lat, lon float64) Set {
	key := Key(lat, lon)

	if fs, ok := r.cache.Get(key); ok {
		return fs
	}

	fs := r.gen.Counts(lat, lon).Merge(r.gen.Auxiliary())

	if err := r.cache.Put(key, fs); err != nil {
		zap.L().Warn("poi cache write failed",
			zap.String("key", shortKey(key)),
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
	}

	return fs
}
