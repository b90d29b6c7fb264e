// Package nominatim implements domain.Geocoder against the OSM Nominatim
// search API, with an in-memory, optionally file-persisted result cache.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/flatscout/flatscout/internal/domain"
	"github.com/flatscout/flatscout/internal/observability"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Retry budget for transient failures: one initial attempt plus two retries.
const (
	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond
)

// Client performs raw geocoding lookups. A rate limiter serializes outbound
// requests to the configured minimum interval (Nominatim usage policy);
// cache hits never touch it because the CachedResolver sits in front.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Nominatim client. minInterval is the minimum delay
// between outbound requests.
func NewClient(baseURL, userAgent string, timeout, minInterval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		retryDelay: retryBaseDelay,
		logger:     logger,
		metrics:    metrics,
	}
}

// Lookup resolves query to coordinates. found=false with a nil error is the
// terminal "no result" outcome; a non-nil error means the retry budget was
// exhausted on transient failures.
func (c *Client) Lookup(ctx context.Context, query string) (domain.Coordinate, bool, error) {
	var lastErr error
	delay := c.retryDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		coord, found, err := c.search(ctx, query)
		if err == nil {
			return coord, found, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < maxAttempts {
			c.logger.Warn("geocode lookup failed, retrying",
				"query", query,
				"attempt", attempt,
				"error", err,
			)
			if !sleepWithContext(ctx, delay) {
				break
			}
			delay *= 2
		}
	}

	c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
	return domain.Coordinate{}, false, fmt.Errorf("geocode %q: %w", query, lastErr)
}

func (c *Client) search(ctx context.Context, query string) (domain.Coordinate, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Coordinate{}, false, err
	}

	params := url.Values{
		"format": {"json"},
		"limit":  {"1"},
		"q":      {query},
	}
	u := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Coordinate{}, false, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("decode response: %w", err)
	}

	if len(places) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		return domain.Coordinate{}, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("parse lon: %w", err)
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return domain.Coordinate{Lat: lat, Lon: lon}, true, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Nominatim API response types. Coordinates arrive as strings.

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}
