package domain

import "context"

// Geocoder resolves a free-text place description to coordinates.
type Geocoder interface {
	// Resolve returns the coordinates for query, or an
	// *UnresolvableLocationError when the query cannot be resolved.
	Resolve(ctx context.Context, query string) (Coordinate, error)
}

// Router computes routed distance and duration between two coordinates for
// a transport mode. The returned RouteResult always carries the straight-line
// distance, even when err is non-nil and the routed fields are absent; a
// routing failure degrades the result, it never discards it.
type Router interface {
	Route(ctx context.Context, origin, destination Coordinate, mode TransportMode) (RouteResult, error)
}
