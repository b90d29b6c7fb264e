// Package osrm implements domain.Router against the OSRM HTTP API.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/flatscout/flatscout/internal/domain"
	"github.com/flatscout/flatscout/internal/observability"
)

// DefaultBaseURL is the public OSRM demo instance.
const DefaultBaseURL = "https://router.project-osrm.org"

// Client computes routed distance and duration via OSRM. The straight-line
// distance is computed locally and is present in every result, so a routing
// failure degrades the result instead of discarding it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an OSRM routing client. minInterval is the minimum
// delay between outbound routing calls.
func NewClient(baseURL string, timeout, minInterval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		logger:     logger,
		metrics:    metrics,
	}
}

// Route implements domain.Router. On failure the returned RouteResult still
// carries the straight-line distance; the caller records the error as a
// per-listing warning.
func (c *Client) Route(ctx context.Context, origin, destination domain.Coordinate, mode domain.TransportMode) (domain.RouteResult, error) {
	result := domain.RouteResult{
		StraightLineKm: domain.Haversine(origin, destination),
		Mode:           mode,
	}

	profile, err := osrmProfile(mode)
	if err != nil {
		return result, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return result, err
	}

	// OSRM takes lon,lat pairs.
	u := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=false&steps=false",
		c.baseURL, profile,
		origin.Lon, origin.Lat,
		destination.Lon, destination.Lat,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return result, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RouteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.RouteRequests.WithLabelValues("error").Inc()
		return result, fmt.Errorf("route request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.metrics.RouteRequests.WithLabelValues("error").Inc()
		return result, fmt.Errorf("osrm API error: status %d: %s", resp.StatusCode, body)
	}

	var osrmResp response
	if err := json.NewDecoder(resp.Body).Decode(&osrmResp); err != nil {
		c.metrics.RouteRequests.WithLabelValues("error").Inc()
		return result, fmt.Errorf("decode response: %w", err)
	}

	if osrmResp.Code != "Ok" || len(osrmResp.Routes) == 0 {
		c.metrics.RouteRequests.WithLabelValues("no_route").Inc()
		return result, fmt.Errorf("no route found (code %q)", osrmResp.Code)
	}

	route := osrmResp.Routes[0]
	routedKm := domain.RoundKm(route.Distance / 1000)
	durationMin := domain.RoundMinutes(route.Duration / 60)
	result.RoutedKm = &routedKm
	result.DurationMin = &durationMin

	c.metrics.RouteRequests.WithLabelValues("success").Inc()
	return result, nil
}

// osrmProfile maps a normalized transport mode to an OSRM profile name.
func osrmProfile(mode domain.TransportMode) (string, error) {
	switch mode {
	case domain.ModeDriving:
		return "car", nil
	case domain.ModeCycling:
		return "bike", nil
	case domain.ModeWalking:
		return "foot", nil
	default:
		return "", &domain.InvalidModeError{Mode: string(mode)}
	}
}

// OSRM API response types. Distances arrive in meters, durations in seconds.

type response struct {
	Code   string  `json:"code"`
	Routes []route `json:"routes"`
}

type route struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}
