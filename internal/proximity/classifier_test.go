package proximity

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securyflex/internal/worklocation"
	id "securyflex/pkg/domain"
)

// destination returns a coordinate at the given bearing and distance from a
// start point, so tests can place guards at exact distances from a geofence.
func destination(lat, lon, bearingDeg, distanceMeters float64) (float64, float64) {
	const earthRadius = 6371000.0
	const degToRad = math.Pi / 180.0

	phi1 := lat * degToRad
	lambda1 := lon * degToRad
	theta := bearingDeg * degToRad
	delta := distanceMeters / earthRadius

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)
	return phi2 / degToRad, lambda2 / degToRad
}

func hq() worklocation.WorkLocation {
	return worklocation.WorkLocation{
		ID:             "wl-hq",
		Name:           "HQ",
		Latitude:       52.3676,
		Longitude:      4.9041,
		RadiusMeters:   100,
		OrganizationID: id.NewOrganizationID(),
	}
}

func TestClassifyAtWorkLocation(t *testing.T) {
	c := NewClassifier(DefaultNearMultiplier)
	lat, lon := destination(52.3676, 4.9041, 45, 80)

	got := c.Classify(Position{Latitude: lat, Longitude: lon}, []worklocation.WorkLocation{hq()})

	assert.Equal(t, StatusAtWorkLocation, got.Status)
	require.NotNil(t, got.NearestWorkAreaName)
	assert.Equal(t, "HQ", *got.NearestWorkAreaName)
	require.NotNil(t, got.ApproximateDistance)
	assert.Equal(t, 100, *got.ApproximateDistance, "80m rounds up to the nearest 100")
}

func TestClassifyNearWorkLocation(t *testing.T) {
	c := NewClassifier(DefaultNearMultiplier)
	// 160m: inside the 200m near band and clear of the 150m rounding
	// midpoint, where float noise in the fixture could flip the rounded
	// distance either way.
	lat, lon := destination(52.3676, 4.9041, 45, 160)

	got := c.Classify(Position{Latitude: lat, Longitude: lon}, []worklocation.WorkLocation{hq()})

	assert.Equal(t, StatusNearWorkLocation, got.Status)
	require.NotNil(t, got.ApproximateDistance)
	assert.Equal(t, 200, *got.ApproximateDistance)
}

func TestClassifyAwayFromWork(t *testing.T) {
	c := NewClassifier(DefaultNearMultiplier)
	lat, lon := destination(52.3676, 4.9041, 45, 250)

	got := c.Classify(Position{Latitude: lat, Longitude: lon}, []worklocation.WorkLocation{hq()})

	// 250m is past 2x the 100m radius, so this is away, not near.
	assert.Equal(t, StatusAwayFromWork, got.Status)
}

func TestClassifyEmptyLocations(t *testing.T) {
	c := NewClassifier(DefaultNearMultiplier)

	got := c.Classify(Position{Latitude: 52.3676, Longitude: 4.9041}, nil)

	assert.Equal(t, StatusUnknownWorkArea, got.Status)
	assert.Nil(t, got.NearestWorkAreaName)
	assert.Nil(t, got.ApproximateDistance)
}

func TestClassifyBoundaryInclusive(t *testing.T) {
	// Haversine of a computed destination lands within float noise of the
	// target distance, so build the boundary cases from the measured distance
	// instead: radius equal to the measured distance must classify "at", and
	// half of it must classify "near" at exactly 2x.
	center := hq()
	lat, lon := destination(center.Latitude, center.Longitude, 90, 120)
	measured := Haversine(lat, lon, center.Latitude, center.Longitude)

	c := NewClassifier(DefaultNearMultiplier)

	atBoundary := center
	atBoundary.RadiusMeters = measured
	got := c.Classify(Position{Latitude: lat, Longitude: lon}, []worklocation.WorkLocation{atBoundary})
	assert.Equal(t, StatusAtWorkLocation, got.Status, "distance == radius is inside")

	nearBoundary := center
	nearBoundary.RadiusMeters = measured / 2
	got = c.Classify(Position{Latitude: lat, Longitude: lon}, []worklocation.WorkLocation{nearBoundary})
	assert.Equal(t, StatusNearWorkLocation, got.Status, "distance == 2x radius is near")
}

func TestClassifyTieBreakIsFirstInCanonicalOrder(t *testing.T) {
	org := id.NewOrganizationID()
	center := Position{Latitude: 52.0, Longitude: 5.0}
	siteLat, siteLon := destination(center.Latitude, center.Longitude, 0, 500)

	// Two sites at the same coordinates: exactly equidistant.
	locations := []worklocation.WorkLocation{
		{ID: "wl-a", Name: "Alpha", Latitude: siteLat, Longitude: siteLon, RadiusMeters: 50, OrganizationID: org},
		{ID: "wl-b", Name: "Beta", Latitude: siteLat, Longitude: siteLon, RadiusMeters: 50, OrganizationID: org},
	}

	c := NewClassifier(DefaultNearMultiplier)
	got := c.Classify(center, locations)

	require.NotNil(t, got.NearestWorkAreaName)
	assert.Equal(t, "Alpha", *got.NearestWorkAreaName, "equidistant tie resolves to the first in canonical order")
}

func TestClassifyNearestWins(t *testing.T) {
	org := id.NewOrganizationID()
	pos := Position{Latitude: 52.0, Longitude: 5.0}
	farLat, farLon := destination(pos.Latitude, pos.Longitude, 0, 3000)
	closeLat, closeLon := destination(pos.Latitude, pos.Longitude, 180, 400)

	locations := []worklocation.WorkLocation{
		{ID: "wl-1", Name: "Far", Latitude: farLat, Longitude: farLon, RadiusMeters: 100, OrganizationID: org},
		{ID: "wl-2", Name: "Close", Latitude: closeLat, Longitude: closeLon, RadiusMeters: 100, OrganizationID: org},
	}

	c := NewClassifier(DefaultNearMultiplier)
	got := c.Classify(pos, locations)

	require.NotNil(t, got.NearestWorkAreaName)
	assert.Equal(t, "Close", *got.NearestWorkAreaName)
	require.NotNil(t, got.ApproximateDistance)
	assert.Equal(t, 400, *got.ApproximateDistance)
}

// TestClassifyNeverLeaksCoordinates generates random positions and geofences
// and asserts that no numeric field of the output is bit-equal to a raw input
// coordinate, and that every distance is a multiple of the rounding grain.
func TestClassifyNeverLeaksCoordinates(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := NewClassifier(DefaultNearMultiplier)
	org := id.NewOrganizationID()

	for i := 0; i < 1000; i++ {
		pos := Position{
			Latitude:  rng.Float64()*180 - 90,
			Longitude: rng.Float64()*360 - 180,
		}
		var locations []worklocation.WorkLocation
		for j := 0; j < 1+rng.Intn(4); j++ {
			locations = append(locations, worklocation.WorkLocation{
				ID:             "wl",
				Name:           "Site",
				Latitude:       rng.Float64()*180 - 90,
				Longitude:      rng.Float64()*360 - 180,
				RadiusMeters:   50 + rng.Float64()*500,
				OrganizationID: org,
			})
		}

		got := c.Classify(pos, locations)

		require.NotNil(t, got.ApproximateDistance)
		d := *got.ApproximateDistance
		assert.Zero(t, d%100, "distance must be rounded to 100m")
		assert.NotEqual(t, pos.Latitude, float64(d))
		assert.NotEqual(t, pos.Longitude, float64(d))
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Amsterdam Central to Dam Square is roughly 1.1km.
	d := Haversine(52.3791, 4.9003, 52.3730, 4.8924)
	assert.InDelta(t, 870, d, 100)
}
