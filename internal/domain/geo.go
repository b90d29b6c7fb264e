package domain

import "math"

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies within latitude [-90, 90] and
// longitude [-180, 180].
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Haversine returns the great-circle distance between a and b in kilometers,
// rounded to the reporting precision (two decimal places).
func Haversine(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * earthRadiusKm * math.Asin(math.Sqrt(h))

	return RoundKm(d)
}

// RoundKm rounds a distance to two decimal places (output contract).
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

// RoundMinutes rounds a duration to one decimal place (output contract).
func RoundMinutes(min float64) float64 {
	return math.Round(min*10) / 10
}

// RouteResult holds the distances computed for one listing against the
// destination. StraightLineKm is always present; RoutedKm and DurationMin
// are nil when the routing service could not produce a route.
type RouteResult struct {
	StraightLineKm float64       `json:"straight_line_km"`
	RoutedKm       *float64      `json:"routed_km,omitempty"`
	DurationMin    *float64      `json:"duration_min,omitempty"`
	Mode           TransportMode `json:"mode"`
}
