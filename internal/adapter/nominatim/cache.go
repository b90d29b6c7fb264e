package nominatim

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/flatscout/flatscout/internal/domain"
	"github.com/flatscout/flatscout/internal/observability"
)

// lookuper is the raw lookup the resolver caches; *Client in production,
// a counting fake in tests.
type lookuper interface {
	Lookup(ctx context.Context, query string) (domain.Coordinate, bool, error)
}

// CacheEntry is one resolved (or terminally unresolvable) query.
type CacheEntry struct {
	Query    string    `json:"query"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Found    bool      `json:"found"`
	CachedAt time.Time `json:"cached_at"`
}

// CachedResolver implements domain.Geocoder with a cache-first policy.
// Both successful resolutions and terminal "not found" results are cached,
// so repeated queries never re-hit the network. Concurrent resolutions of
// the same normalized query share one in-flight lookup.
type CachedResolver struct {
	inner   lookuper
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	entries  map[string]CacheEntry
	inflight map[string]*inflightLookup
}

type inflightLookup struct {
	done  chan struct{}
	coord domain.Coordinate
	found bool
	err   error
}

// NewCachedResolver creates a cache decorator around a raw lookup.
func NewCachedResolver(inner lookuper, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *CachedResolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedResolver{
		inner:    inner,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		entries:  make(map[string]CacheEntry),
		inflight: make(map[string]*inflightLookup),
	}
}

// Resolve implements domain.Geocoder.
func (r *CachedResolver) Resolve(ctx context.Context, query string) (domain.Coordinate, error) {
	key := normalizeQuery(query)

	r.mu.Lock()
	if entry, ok := r.entries[key]; ok {
		r.mu.Unlock()
		r.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return entryResult(entry, query)
	}

	if call, ok := r.inflight[key]; ok {
		// Another goroutine is already looking this up; wait for it.
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return domain.Coordinate{}, ctx.Err()
		case <-call.done:
		}
		return lookupResult(call.coord, call.found, call.err, query)
	}

	call := &inflightLookup{done: make(chan struct{})}
	r.inflight[key] = call
	r.mu.Unlock()

	r.metrics.GeocodeCache.WithLabelValues("miss").Inc()
	call.coord, call.found, call.err = r.inner.Lookup(ctx, query)

	r.mu.Lock()
	delete(r.inflight, key)
	if call.err == nil {
		// Cache hits and terminal not-founds alike; transient failures
		// stay uncached so a later attempt can retry.
		r.entries[key] = CacheEntry{
			Query:    query,
			Lat:      call.coord.Lat,
			Lon:      call.coord.Lon,
			Found:    call.found,
			CachedAt: r.clock.Now(),
		}
	}
	r.mu.Unlock()
	close(call.done)

	if call.err == nil && !call.found {
		r.logger.Debug("cached unresolvable location", "query", query)
	}
	return lookupResult(call.coord, call.found, call.err, query)
}

func entryResult(entry CacheEntry, query string) (domain.Coordinate, error) {
	if !entry.Found {
		return domain.Coordinate{}, &domain.UnresolvableLocationError{Query: query, Err: domain.ErrLocationNotFound}
	}
	return domain.Coordinate{Lat: entry.Lat, Lon: entry.Lon}, nil
}

func lookupResult(coord domain.Coordinate, found bool, err error, query string) (domain.Coordinate, error) {
	if err != nil {
		return domain.Coordinate{}, &domain.UnresolvableLocationError{Query: query, Err: err}
	}
	if !found {
		return domain.Coordinate{}, &domain.UnresolvableLocationError{Query: query, Err: domain.ErrLocationNotFound}
	}
	return coord, nil
}

// LoadFile seeds the cache from a JSON file written by SaveFile. A missing
// file is not an error; the cache just starts empty.
func (r *CachedResolver) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var entries map[string]CacheEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return err
	}

	r.mu.Lock()
	for key, entry := range entries {
		r.entries[key] = entry
	}
	r.mu.Unlock()
	return nil
}

// SaveFile persists the cache so later runs skip already-resolved queries.
func (r *CachedResolver) SaveFile(path string) error {
	if path == "" {
		return nil
	}

	r.mu.Lock()
	payload, err := json.Marshal(r.entries)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}

// Len returns the number of cached entries.
func (r *CachedResolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// normalizeQuery case-folds and collapses whitespace so "Berlin  Mitte" and
// "berlin mitte" share a cache entry.
func normalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
