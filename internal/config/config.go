// Package config loads service settings from environment variables, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Nominatim geocoding configuration.
	NominatimBaseURL   string
	NominatimUserAgent string
	GeocodeTimeout     time.Duration
	GeocodeMinInterval time.Duration
	GeocodeCachePath   string

	// OSRM routing configuration.
	OSRMBaseURL      string
	RouteTimeout     time.Duration
	RouteMinInterval time.Duration
	RouteWorkers     int

	// Kafka export configuration. The export sink is off unless brokers
	// are configured.
	KafkaBrokers     []string
	KafkaExportTopic string
	KafkaEnabled     bool
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is merged in first without
// overriding variables already set.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := parseDuration("GEOCODE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geocodeMinInterval, err := parseDuration("GEOCODE_MIN_INTERVAL", "1100ms")
	if err != nil {
		return nil, err
	}
	routeTimeout, err := parseDuration("ROUTE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	routeMinInterval, err := parseDuration("ROUTE_MIN_INTERVAL", "200ms")
	if err != nil {
		return nil, err
	}
	routeWorkers, err := parseInt("ROUTE_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		NominatimBaseURL:   envOrDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent: envOrDefault("NOMINATIM_USER_AGENT", "flatscout/1.0"),
		GeocodeTimeout:     geocodeTimeout,
		GeocodeMinInterval: geocodeMinInterval,
		GeocodeCachePath:   envOrDefault("GEOCODE_CACHE_PATH", "geocode_cache.json"),

		OSRMBaseURL:      envOrDefault("OSRM_BASE_URL", "https://router.project-osrm.org"),
		RouteTimeout:     routeTimeout,
		RouteMinInterval: routeMinInterval,
		RouteWorkers:     routeWorkers,

		KafkaBrokers:     kafkaBrokers,
		KafkaExportTopic: envOrDefault("KAFKA_EXPORT_TOPIC", "flatscout-listings"),
		KafkaEnabled:     kafkaEnabled,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.NominatimUserAgent == "" {
		return nil, errors.New("NOMINATIM_USER_AGENT is required")
	}
	if cfg.RouteWorkers < 1 {
		return nil, errors.New("ROUTE_WORKERS must be at least 1")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
