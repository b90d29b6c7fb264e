package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// query and route-ranking core.
type Metrics struct {
	ListingsImported prometheus.Counter
	ListingsExported prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,not_found,error}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeDuration prometheus.Histogram

	// Routing metrics.
	RouteRequests *prometheus.CounterVec // labels: outcome={success,no_route,error}
	RouteDuration prometheus.Histogram

	// Route pipeline metrics.
	PipelineRunning  prometheus.Gauge
	PipelineListings prometheus.Histogram
	PipelineDuration prometheus.Histogram
	PipelineWarnings prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ListingsImported,
		m.ListingsExported,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeDuration,
		m.RouteRequests,
		m.RouteDuration,
		m.PipelineRunning,
		m.PipelineListings,
		m.PipelineDuration,
		m.PipelineWarnings,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ListingsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flatscout",
			Name:      "listings_imported_total",
			Help:      "Listings accepted into the store from import files.",
		}),
		ListingsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flatscout",
			Name:      "listings_exported_total",
			Help:      "Listings published to the export sink.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flatscout",
			Name:      "geocode_requests_total",
			Help:      "Outbound geocoding lookups by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flatscout",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		GeocodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flatscout",
			Name:      "geocode_request_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RouteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flatscout",
			Name:      "route_requests_total",
			Help:      "Outbound routing calls by outcome.",
		}, []string{"outcome"}),
		RouteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flatscout",
			Name:      "route_request_duration_seconds",
			Help:      "Routing API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flatscout",
			Name:      "route_pipeline_running",
			Help:      "1 while a route pipeline run is active.",
		}),
		PipelineListings: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flatscout",
			Name:      "route_pipeline_listings",
			Help:      "Listings processed per pipeline run.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flatscout",
			Name:      "route_pipeline_duration_seconds",
			Help:      "Wall-clock duration of a complete pipeline run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),
		PipelineWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flatscout",
			Name:      "route_pipeline_warnings_total",
			Help:      "Per-listing geocoding or routing warnings.",
		}),
	}
}
