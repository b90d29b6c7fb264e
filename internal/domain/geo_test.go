package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	stuttgartMitte = Coordinate{Lat: 48.7758, Lon: 9.1829}
	stuttgartHbf   = Coordinate{Lat: 48.7839, Lon: 9.1829}
)

func TestHaversine_IdenticalCoordinatesIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(stuttgartMitte, stuttgartMitte))
}

func TestHaversine_SmallPositiveAndSymmetric(t *testing.T) {
	ab := Haversine(stuttgartMitte, stuttgartHbf)
	ba := Haversine(stuttgartHbf, stuttgartMitte)

	assert.Greater(t, ab, 0.0)
	assert.Less(t, ab, 2.0, "city-center hop should be under 2 km")
	assert.Equal(t, ab, ba)
}

func TestHaversine_KnownDistance(t *testing.T) {
	berlin := Coordinate{Lat: 52.5200, Lon: 13.4050}
	munich := Coordinate{Lat: 48.1374, Lon: 11.5755}

	d := Haversine(berlin, munich)
	assert.InDelta(t, 504.0, d, 2.0)
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 8.53, RoundKm(8.532))
	assert.Equal(t, 8.54, RoundKm(8.536))
	assert.Equal(t, 0.0, RoundKm(0))
}

func TestRoundMinutes(t *testing.T) {
	assert.Equal(t, 12.6, RoundMinutes(12.5666))
	assert.Equal(t, 0.0, RoundMinutes(0.04))
}

func TestCoordinate_Valid(t *testing.T) {
	assert.True(t, Coordinate{Lat: 48.77, Lon: 9.18}.Valid())
	assert.True(t, Coordinate{Lat: -90, Lon: 180}.Valid())
	assert.False(t, Coordinate{Lat: 91, Lon: 0}.Valid())
	assert.False(t, Coordinate{Lat: 0, Lon: -181}.Valid())
}
