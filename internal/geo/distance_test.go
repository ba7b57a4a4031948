package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emberapp/ember-backend/internal/geo"
)

func TestDistanceKmSamePointIsZero(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{47.5596, 7.5886},
		{-33.8688, 151.2093},
		{90, 0},
	}
	for _, p := range points {
		assert.Equal(t, 0.0, geo.DistanceKm(p[0], p[1], p[0], p[1]))
	}
}

func TestDistanceKmSymmetry(t *testing.T) {
	d1 := geo.DistanceKm(47.5596, 7.5886, 47.3769, 8.5417)
	d2 := geo.DistanceKm(47.3769, 8.5417, 47.5596, 7.5886)
	assert.Equal(t, d1, d2)
}

func TestDistanceKmBaselZurich(t *testing.T) {
	// Basel to Zurich is roughly 74 km great-circle.
	d := geo.DistanceKm(47.5596, 7.5886, 47.3769, 8.5417)
	assert.InDelta(t, 74, d, 3)
	assert.Greater(t, d, 50.0)
	assert.Less(t, d, 100.0)
}

func TestDistanceKmNonNegative(t *testing.T) {
	d := geo.DistanceKm(-45.0, -170.0, 60.0, 179.0)
	assert.GreaterOrEqual(t, d, 0.0)
}
