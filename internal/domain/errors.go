package domain

import (
	"errors"
	"fmt"
)

// ErrLocationNotFound is the terminal "no result" from a geocoding lookup.
// It is cached and never retried, unlike transient transport failures.
var ErrLocationNotFound = errors.New("location not found")

// UnresolvableLocationError reports that a place query could not be resolved
// to coordinates, either because the service returned no result or because
// the retry budget was exhausted. Fatal for the route destination, a
// per-listing warning otherwise.
type UnresolvableLocationError struct {
	Query string
	Err   error
}

func (e *UnresolvableLocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unresolvable location %q: %v", e.Query, e.Err)
	}
	return fmt.Sprintf("unresolvable location %q", e.Query)
}

func (e *UnresolvableLocationError) Unwrap() error { return e.Err }

// InvalidModeError reports an unrecognized transport mode. Configuration
// error, raised before any external call.
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid transport mode %q (want driving|car, cycling|bike, walking|foot)", e.Mode)
}

// UnknownFieldError reports a filter or sort reference to a field that is
// not in the listing schema.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// TypeMismatchError reports a filter value that cannot be coerced to the
// schema kind of its field.
type TypeMismatchError struct {
	Field string
	Value string
	Kind  FieldKind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %q: value %q is not a valid %s", e.Field, e.Value, e.Kind)
}
