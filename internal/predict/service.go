// Package predict turns a coordinate into a development-type recommendation
// using the resolved POI features and the loaded classifier.
package predict

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atoll-dev/siteplanner/internal/classifier"
	"github.com/atoll-dev/siteplanner/internal/feature"
)

// ErrModelUnavailable means no classifier artifact was loaded at startup.
// Every prediction fails with it until an operator provides a valid artifact
// and restarts.
var ErrModelUnavailable = eris.New("predict: model unavailable")

// ErrPredictionFailed means the classifier rejected the feature vector. Not
// retried; surfaced as an opaque failure.
var ErrPredictionFailed = eris.New("predict: prediction failed")

// Result is a single prediction with its supporting evidence.
type Result struct {
	Prediction       string             `json:"prediction"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	Why              string             `json:"why"`
	Features         feature.Set        `json:"features"`
}

// Service holds the resolver and the classifier for the process lifetime.
// Construct it once at startup; it is immutable and safe for concurrent use.
type Service struct {
	resolver *feature.Resolver
	clf      classifier.Classifier
	labels   []string
}

// NewService creates a prediction service. A nil clf or empty labels puts the
// service into the degraded state where every Predict call fails with
// ErrModelUnavailable.
func NewService(resolver *feature.Resolver, clf classifier.Classifier, labels []string) *Service {
	return &Service{resolver: resolver, clf: clf, labels: labels}
}

// Available reports whether a classifier is loaded.
func (s *Service) Available() bool {
	return s.clf != nil && len(s.labels) > 0
}

// Predict resolves the features for a coordinate, classifies them, and
// formats the explanation.
func (s *Service) Predict(ctx context.Context, lat, lon float64) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.Available() {
		return nil, ErrModelUnavailable
	}

	fs := s.resolver.Resolve(lat, lon)

	probs, err := s.clf.PredictProba(fs.Vector())
	if err != nil {
		zap.L().Error("classifier invocation failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return nil, eris.Wrap(ErrPredictionFailed, err.Error())
	}
	if len(probs) != len(s.labels) {
		zap.L().Error("classifier returned wrong class count",
			zap.Int("got", len(probs)),
			zap.Int("want", len(s.labels)),
		)
		return nil, eris.Wrap(ErrPredictionFailed, "class count mismatch")
	}

	scores := make(map[string]float64, len(s.labels))
	for i, name := range s.labels {
		scores[name] = probs[i]
	}
	predicted := s.labels[classifier.Argmax(probs)]

	return &Result{
		Prediction:       predicted,
		ConfidenceScores: scores,
		Why:              explain(predicted, fs),
		Features:         fs,
	}, nil
}

// explain renders the fixed-template explanation. Field order and wording
// are part of the contract toward callers.
func explain(predicted string, fs feature.Set) string {
	parts := make([]string, 0, len(feature.POINames))
	for _, name := range feature.POINames {
		parts = append(parts, fmt.Sprintf("%s=%d",
			strings.TrimPrefix(name, "nearby_"), int(fs[name])))
	}
	return fmt.Sprintf("Recommended '%s' based on nearby features: %s, foot traffic=%d, dist. to road=%dm.",
		predicted,
		strings.Join(parts, ", "),
		int(fs[feature.FootTraffic]),
		int(math.Round(fs[feature.RoadDistance])),
	)
}
