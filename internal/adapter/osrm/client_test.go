package osrm

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatscout/flatscout/internal/domain"
	"github.com/flatscout/flatscout/internal/observability"
)

var (
	testOrigin      = domain.Coordinate{Lat: 48.7758, Lon: 9.1829}
	testDestination = domain.Coordinate{Lat: 48.7839, Lon: 9.1829}
)

func testRouter(baseURL string) *Client {
	return NewClient(
		baseURL,
		5*time.Second,
		time.Millisecond,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting(),
	)
}

func TestClient_Route_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/route/v1/car/"), "path %q", r.URL.Path)
		// lon,lat ordering with origin first.
		assert.Contains(t, r.URL.Path, "9.182900,48.775800;9.182900,48.783900")
		assert.Equal(t, "false", r.URL.Query().Get("overview"))
		assert.Equal(t, "false", r.URL.Query().Get("steps"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":8532,"duration":754}]}`))
	}))
	defer srv.Close()

	c := testRouter(srv.URL)
	result, err := c.Route(context.Background(), testOrigin, testDestination, domain.ModeDriving)
	require.NoError(t, err)

	require.NotNil(t, result.RoutedKm)
	require.NotNil(t, result.DurationMin)
	assert.Equal(t, 8.53, *result.RoutedKm)
	assert.Equal(t, 12.6, *result.DurationMin)
	assert.Equal(t, domain.ModeDriving, result.Mode)
	assert.Greater(t, result.StraightLineKm, 0.0)
}

func TestClient_Route_ProfileMapping(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":1000,"duration":60}]}`))
	}))
	defer srv.Close()

	cases := []struct {
		mode    domain.TransportMode
		profile string
	}{
		{domain.ModeDriving, "car"},
		{domain.ModeCycling, "bike"},
		{domain.ModeWalking, "foot"},
	}
	for _, tc := range cases {
		c := testRouter(srv.URL)
		_, err := c.Route(context.Background(), testOrigin, testDestination, tc.mode)
		require.NoError(t, err)
		assert.Contains(t, gotPath, "/route/v1/"+tc.profile+"/")
	}
}

func TestClient_Route_NoRouteKeepsStraightLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer srv.Close()

	c := testRouter(srv.URL)
	result, err := c.Route(context.Background(), testOrigin, testDestination, domain.ModeWalking)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoRoute")

	assert.Nil(t, result.RoutedKm)
	assert.Nil(t, result.DurationMin)
	assert.Greater(t, result.StraightLineKm, 0.0, "straight-line distance survives a routing failure")
}

func TestClient_Route_ServerErrorKeepsStraightLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testRouter(srv.URL)
	result, err := c.Route(context.Background(), testOrigin, testDestination, domain.ModeCycling)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Greater(t, result.StraightLineKm, 0.0)
}

func TestClient_Route_InvalidMode(t *testing.T) {
	c := testRouter("http://unused.invalid")
	_, err := c.Route(context.Background(), testOrigin, testDestination, domain.TransportMode("teleport"))

	var invalid *domain.InvalidModeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "teleport", invalid.Mode)
}

func TestClient_Route_Rounding(t *testing.T) {
	cases := []struct {
		name        string
		meters      float64
		seconds     float64
		wantKm      float64
		wantMinutes float64
	}{
		{"half rounds up", 125, 45, 0.13, 0.8},
		{"long route", 503751, 18322, 503.75, 305.4},
		{"zero", 0, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				resp := `{"code":"Ok","routes":[{"distance":` +
					formatFloat(tc.meters) + `,"duration":` + formatFloat(tc.seconds) + `}]}`
				_, _ = w.Write([]byte(resp))
			}))
			defer srv.Close()

			c := testRouter(srv.URL)
			result, err := c.Route(context.Background(), testOrigin, testDestination, domain.ModeDriving)
			require.NoError(t, err)
			assert.Equal(t, tc.wantKm, *result.RoutedKm)
			assert.Equal(t, tc.wantMinutes, *result.DurationMin)
		})
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
