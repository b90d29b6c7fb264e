package domain

import "strings"

// TransportMode selects the routing profile.
type TransportMode string

const (
	ModeDriving TransportMode = "driving"
	ModeCycling TransportMode = "cycling"
	ModeWalking TransportMode = "walking"
)

// ParseTransportMode normalizes a user-supplied mode, accepting the aliases
// car, bike, and foot (case-insensitive). Unrecognized values fail with
// InvalidModeError before any network call is made.
func ParseTransportMode(s string) (TransportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "driving", "car":
		return ModeDriving, nil
	case "cycling", "bike":
		return ModeCycling, nil
	case "walking", "foot":
		return ModeWalking, nil
	default:
		return "", &InvalidModeError{Mode: s}
	}
}
