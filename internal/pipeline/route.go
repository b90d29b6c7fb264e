// Package pipeline ranks stored listings by travel distance to a
// destination. It resolves the destination once, geocodes listings that
// carry no coordinates, and asks the router for door-to-door distance and
// duration. Failures on individual listings degrade to warnings; only an
// unresolvable destination fails a run.
package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flatscout/flatscout/internal/domain"
	"github.com/flatscout/flatscout/internal/observability"
)

// State is the lifecycle phase of a ranking run.
type State int32

const (
	StateInit State = iota
	StateResolvingDestination
	StateProcessingListings
	StateAggregating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateResolvingDestination:
		return "resolving_destination"
	case StateProcessingListings:
		return "processing_listings"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request describes one ranking run.
type Request struct {
	// Destination is a free-form location query, resolved once per run.
	Destination string
	Mode        domain.TransportMode
	// Limit caps how many listings are routed. It applies before any
	// routing work, so a limit of 10 costs at most 10 routing calls.
	// Zero means no limit.
	Limit int
	// SortByDistance orders results by straight-line distance ascending,
	// listings without route data last.
	SortByDistance bool
	// Progress, when set, is called after each listing completes. Calls
	// are serialized.
	Progress func(done, total int)
}

// Warning records a non-fatal per-listing failure.
type Warning struct {
	ListingID string `json:"listing_id"`
	Stage     string `json:"stage"`
	Reason    string `json:"reason"`
}

// RankedListing pairs a listing with its route annotation. Route is nil
// when the listing could not be located.
type RankedListing struct {
	Listing domain.Listing      `json:"listing"`
	Route   *domain.RouteResult `json:"route,omitempty"`
}

// Result is the outcome of a ranking run. Every input listing (after the
// limit) appears exactly once in Listings, warnings or not.
type Result struct {
	Destination domain.Coordinate `json:"destination"`
	Listings    []RankedListing   `json:"listings"`
	Warnings    []Warning         `json:"warnings,omitempty"`
}

// Ranker runs ranking requests over a geocoder and a router.
type Ranker struct {
	geocoder domain.Geocoder
	router   domain.Router
	logger   *slog.Logger
	metrics  *observability.Metrics
	workers  int
	state    atomic.Int32
}

// NewRanker creates a Ranker that routes up to workers listings
// concurrently.
func NewRanker(geocoder domain.Geocoder, router domain.Router, workers int, logger *slog.Logger, metrics *observability.Metrics) *Ranker {
	if workers < 1 {
		workers = 1
	}
	return &Ranker{
		geocoder: geocoder,
		router:   router,
		logger:   logger,
		metrics:  metrics,
		workers:  workers,
	}
}

// State reports the current lifecycle phase. Safe to call from other
// goroutines while Run is in flight.
func (r *Ranker) State() State {
	return State(r.state.Load())
}

func (r *Ranker) setState(s State) {
	r.state.Store(int32(s))
}

// slot carries one listing's outcome back to the aggregation phase with
// its input position intact.
type slot struct {
	ranked   RankedListing
	warnings []Warning
}

// Run executes one ranking request. The returned error is non-nil only
// when the destination cannot be resolved or the context is cancelled.
//
// StateFailed is reserved for an unresolvable destination. A cancelled run
// returns the context error and leaves State at the phase it was
// interrupted in, so observers can still tell how far the run got.
func (r *Ranker) Run(ctx context.Context, listings []domain.Listing, req Request) (Result, error) {
	start := time.Now()
	r.setState(StateInit)
	r.metrics.PipelineRunning.Set(1)
	defer r.metrics.PipelineRunning.Set(0)

	r.setState(StateResolvingDestination)
	destination, err := r.geocoder.Resolve(ctx, req.Destination)
	if err != nil {
		r.setState(StateFailed)
		r.logger.Error("destination resolution failed", "destination", req.Destination, "error", err)
		return Result{}, err
	}
	r.logger.Info("destination resolved",
		"destination", req.Destination,
		"lat", destination.Lat,
		"lon", destination.Lon,
	)

	if req.Limit > 0 && len(listings) > req.Limit {
		listings = listings[:req.Limit]
	}
	total := len(listings)
	r.metrics.PipelineListings.Observe(float64(total))

	r.setState(StateProcessingListings)
	slots := make([]slot, total)

	var progressMu sync.Mutex
	done := 0
	reportProgress := func() {
		if req.Progress == nil {
			return
		}
		progressMu.Lock()
		done++
		req.Progress(done, total)
		progressMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range listings {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			slots[i] = r.processListing(gctx, listings[i], destination, req.Mode)
			reportProgress()
			return nil
		})
	}
	// Worker errors only ever carry context cancellation; per-listing
	// failures are folded into warnings instead.
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	r.setState(StateAggregating)
	result := Result{
		Destination: destination,
		Listings:    make([]RankedListing, 0, total),
	}
	for _, s := range slots {
		result.Listings = append(result.Listings, s.ranked)
		result.Warnings = append(result.Warnings, s.warnings...)
	}
	r.metrics.PipelineWarnings.Add(float64(len(result.Warnings)))

	if req.SortByDistance {
		sortByDistance(result.Listings)
	}

	r.setState(StateDone)
	r.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	r.logger.Info("ranking run finished",
		"listings", total,
		"warnings", len(result.Warnings),
		"duration", time.Since(start),
	)
	return result, nil
}

// processListing locates one listing and routes it to the destination.
// Every failure becomes a warning; the listing always lands in the result.
func (r *Ranker) processListing(ctx context.Context, listing domain.Listing, destination domain.Coordinate, mode domain.TransportMode) slot {
	s := slot{ranked: RankedListing{Listing: listing}}

	origin, warning := r.locate(ctx, listing)
	if warning != nil {
		s.warnings = append(s.warnings, *warning)
		return s
	}

	route, err := r.router.Route(ctx, origin, destination, mode)
	if err != nil {
		r.logger.Warn("routing failed",
			"listing_id", listing.ListingID,
			"error", err,
		)
		s.warnings = append(s.warnings, Warning{
			ListingID: listing.ListingID,
			Stage:     "route",
			Reason:    err.Error(),
		})
	}
	// A failed routing call still yields the straight-line distance.
	s.ranked.Route = &route
	return s
}

// locate returns the listing's coordinates, geocoding its address when the
// source page carried none.
func (r *Ranker) locate(ctx context.Context, listing domain.Listing) (domain.Coordinate, *Warning) {
	if listing.Location != nil {
		return *listing.Location, nil
	}

	query := geocodeQuery(listing)
	if query == "" {
		return domain.Coordinate{}, &Warning{
			ListingID: listing.ListingID,
			Stage:     "geocode",
			Reason:    "listing has no address",
		}
	}

	coord, err := r.geocoder.Resolve(ctx, query)
	if err != nil {
		r.logger.Warn("listing geocode failed",
			"listing_id", listing.ListingID,
			"query", query,
			"error", err,
		)
		return domain.Coordinate{}, &Warning{
			ListingID: listing.ListingID,
			Stage:     "geocode",
			Reason:    err.Error(),
		}
	}
	return coord, nil
}

// sortByDistance orders listings by straight-line distance ascending. The
// sort is stable and listings without route data keep their relative order
// at the end.
func sortByDistance(listings []RankedListing) {
	sort.SliceStable(listings, func(i, j int) bool {
		ri, rj := listings[i].Route, listings[j].Route
		if ri == nil || rj == nil {
			return ri != nil && rj == nil
		}
		return ri.StraightLineKm < rj.StraightLineKm
	})
}

// geocodeQuery builds the lookup string from the address parts the listing
// actually has.
func geocodeQuery(listing domain.Listing) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{listing.Address, listing.District, listing.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
