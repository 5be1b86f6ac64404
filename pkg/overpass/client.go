// Package overpass counts OpenStreetMap points of interest around a
// coordinate via the Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultEndpoint is the public Overpass API interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// Categories in query order. Each maps onto one of the POI count features.
var Categories = []string{"cafes", "groceries", "schools", "houses", "parks", "clinics"}

// categoryQueries holds an Overpass QL count query per category with
// {radius}, {lat} and {lon} placeholders.
var categoryQueries = map[string]string{
	"cafes":     `[out:json];(node["amenity"="cafe"](around:{radius},{lat},{lon});way["amenity"="cafe"](around:{radius},{lat},{lon});relation["amenity"="cafe"](around:{radius},{lat},{lon});node["amenity"="restaurant"](around:{radius},{lat},{lon});way["amenity"="restaurant"](around:{radius},{lat},{lon});relation["amenity"="restaurant"](around:{radius},{lat},{lon}));out count;`,
	"groceries": `[out:json];(node["shop"~"convenience|supermarket|grocery"](around:{radius},{lat},{lon});way["shop"~"convenience|supermarket|grocery"](around:{radius},{lat},{lon});relation["shop"~"convenience|supermarket|grocery"](around:{radius},{lat},{lon}));out count;`,
	"schools":   `[out:json];(node["amenity"~"school|kindergarten|college|university"](around:{radius},{lat},{lon});way["amenity"~"school|kindergarten|college|university"](around:{radius},{lat},{lon});relation["amenity"~"school|kindergarten|college|university"](around:{radius},{lat},{lon}));out count;`,
	"houses":    `[out:json];(node["building"~"house|residential|apartments"](around:{radius},{lat},{lon});way["building"~"house|residential|apartments"](around:{radius},{lat},{lon});relation["building"~"house|residential|apartments"](around:{radius},{lat},{lon}));out count;`,
	"parks":     `[out:json];(node["leisure"~"park|garden"](around:{radius},{lat},{lon});way["leisure"~"park|garden"](around:{radius},{lat},{lon});relation["leisure"~"park|garden"](around:{radius},{lat},{lon}));out count;`,
	"clinics":   `[out:json];(node["amenity"~"clinic|doctors|hospital|pharmacy"](around:{radius},{lat},{lon});way["amenity"~"clinic|doctors|hospital|pharmacy"](around:{radius},{lat},{lon});relation["amenity"~"clinic|doctors|hospital|pharmacy"](around:{radius},{lat},{lon}));out count;`,
}

// Client defines the Overpass operations used by the survey pipeline.
type Client interface {
	CountNearby(ctx context.Context, category string, lat, lon float64) (int, error)
	CountAll(ctx context.Context, lat, lon float64) (map[string]int, error)
}

// ClientOption configures the Overpass client.
type ClientOption func(*httpClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *httpClient) {
		c.hc = hc
	}
}

// WithEndpoint overrides the Overpass interpreter URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *httpClient) {
		c.endpoint = endpoint
	}
}

// WithRadius sets the search radius in meters around each coordinate.
func WithRadius(meters int) ClientOption {
	return func(c *httpClient) {
		if meters > 0 {
			c.radius = meters
		}
	}
}

// WithRateLimit overrides the default request rate (0.5 req/s, the public
// instance's tolerance). Zero or negative disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithRetries sets the retry budget and base delay for rate-limited or
// failing requests. The delay grows linearly with each attempt.
func WithRetries(maxRetries int, delay time.Duration) ClientOption {
	return func(c *httpClient) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

type httpClient struct {
	hc         *http.Client
	endpoint   string
	radius     int
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates an Overpass client against the public interpreter.
func NewClient(opts ...ClientOption) Client {
	c := &httpClient{
		hc:         &http.Client{Timeout: 60 * time.Second},
		endpoint:   DefaultEndpoint,
		radius:     200,
		limiter:    rate.NewLimiter(rate.Limit(0.5), 1),
		maxRetries: 3,
		retryDelay: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// buildQuery substitutes the radius and coordinate into a category template.
func (c *httpClient) buildQuery(category string, lat, lon float64) (string, error) {
	tmpl, ok := categoryQueries[category]
	if !ok {
		return "", eris.Errorf("overpass: unknown category %q", category)
	}
	r := strings.NewReplacer(
		"{radius}", strconv.Itoa(c.radius),
		"{lat}", strconv.FormatFloat(lat, 'f', -1, 64),
		"{lon}", strconv.FormatFloat(lon, 'f', -1, 64),
	)
	return r.Replace(tmpl), nil
}

// countResponse is the subset of the Overpass JSON response we read. Count
// queries return elements of type "count" whose total arrives as a string.
type countResponse struct {
	Elements []struct {
		Type string `json:"type"`
		Tags struct {
			Total string `json:"total"`
		} `json:"tags"`
	} `json:"elements"`
}

// CountNearby returns the number of POIs of one category around a coordinate.
// Rate-limited and server-error responses are retried with a linearly growing
// delay; other HTTP errors fail immediately.
func (c *httpClient) CountNearby(ctx context.Context, category string, lat, lon float64) (int, error) {
	query, err := c.buildQuery(category, lat, lon)
	if err != nil {
		return 0, err
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.wait(ctx); err != nil {
			return 0, eris.Wrap(err, "overpass: rate limit")
		}

		count, retry, err := c.doCount(ctx, query)
		if err == nil {
			return count, nil
		}
		lastErr = err
		if !retry {
			return 0, err
		}

		backoff := c.retryDelay * time.Duration(attempt+1)
		zap.L().Warn("overpass request failed, retrying",
			zap.String("category", category),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return 0, eris.Wrap(ctx.Err(), "overpass: retry wait")
		}
	}
	return 0, eris.Wrapf(lastErr, "overpass: %s query exhausted %d retries", category, c.maxRetries)
}

// doCount performs one request. The second return value reports whether the
// failure is retryable.
func (c *httpClient) doCount(ctx context.Context, query string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(query))
	if err != nil {
		return 0, false, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, true, eris.Wrap(err, "overpass: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return 0, true, eris.Errorf("overpass: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, false, eris.Errorf("overpass: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed countResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, false, eris.Wrap(err, "overpass: decode response")
	}

	total := 0
	for _, el := range parsed.Elements {
		if el.Type != "count" {
			continue
		}
		n, err := strconv.Atoi(el.Tags.Total)
		if err != nil {
			continue
		}
		total += n
	}
	return total, false, nil
}

// CountAll queries every category for a coordinate sequentially, respecting
// the shared rate limit.
func (c *httpClient) CountAll(ctx context.Context, lat, lon float64) (map[string]int, error) {
	counts := make(map[string]int, len(Categories))
	for _, category := range Categories {
		n, err := c.CountNearby(ctx, category, lat, lon)
		if err != nil {
			return nil, err
		}
		counts[category] = n
	}
	return counts, nil
}
