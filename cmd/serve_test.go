package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atoll-dev/siteplanner/internal/classifier"
	"github.com/atoll-dev/siteplanner/internal/feature"
	"github.com/atoll-dev/siteplanner/internal/geo"
	"github.com/atoll-dev/siteplanner/internal/predict"
)

type fixedClassifier struct {
	probs []float64
	err   error
}

func (f *fixedClassifier) PredictProba([]float64) ([]float64, error) {
	return f.probs, f.err
}

func newTestService(clf classifier.Classifier, labels []string) *predict.Service {
	bounds := geo.New(4.2090, 4.2400, 73.5350, 73.5450)
	resolver := feature.NewResolver(
		feature.NewMemCache(24*time.Hour),
		feature.NewGenerator(bounds, nil),
	)
	return predict.NewService(resolver, clf, labels)
}

func TestHealthEndpoint(t *testing.T) {
	router := newRouter(newTestService(&fixedClassifier{probs: []float64{1, 0, 0, 0}},
		[]string{"Café", "Clinic", "Park", "Residential"}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestPredictEndpoint(t *testing.T) {
	router := newRouter(newTestService(&fixedClassifier{probs: []float64{0.85, 0.10, 0.03, 0.02}},
		[]string{"Café", "Clinic", "Park", "Residential"}))

	body := strings.NewReader(`{"latitude": 4.2150, "longitude": 73.5380}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predict", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Prediction       string             `json:"prediction"`
		ConfidenceScores map[string]float64 `json:"confidence_scores"`
		Why              string             `json:"why"`
		Features         map[string]float64 `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "Café", resp.Prediction)
	assert.Len(t, resp.ConfidenceScores, 4)
	assert.Contains(t, resp.Why, "Recommended 'Café'")
	assert.Len(t, resp.Features, 8)
}

func TestPredictEndpointBadBody(t *testing.T) {
	router := newRouter(newTestService(&fixedClassifier{probs: []float64{1, 0, 0, 0}},
		[]string{"Café", "Clinic", "Park", "Residential"}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, rec.Body.String())
}

func TestPredictEndpointModelUnavailable(t *testing.T) {
	router := newRouter(newTestService(nil, nil))

	body := strings.NewReader(`{"latitude": 4.2150, "longitude": 73.5380}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predict", body))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"prediction failed"}`, rec.Body.String())
}

func TestPredictEndpointClassifierFailure(t *testing.T) {
	router := newRouter(newTestService(&fixedClassifier{err: assert.AnError},
		[]string{"Café", "Clinic", "Park", "Residential"}))

	body := strings.NewReader(`{"latitude": 4.2150, "longitude": 73.5380}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predict", body))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"prediction failed"}`, rec.Body.String())
}
