// Package proximity derives privacy-preserving location classifications.
// Pure computation, no I/O: raw coordinates enter, only a categorical status
// and a distance rounded to the nearest 100 meters leave. Nothing downstream
// of this package ever sees a guard's latitude or longitude.
package proximity

import (
	"math"

	"securyflex/internal/worklocation"
)

// Status places a guard relative to the organization's work areas without
// revealing where the guard actually is.
type Status string

const (
	StatusAtWorkLocation   Status = "at_work_location"
	StatusNearWorkLocation Status = "near_work_location"
	StatusAwayFromWork     Status = "away_from_work"
	StatusNoWorkAreaNearby Status = "no_work_area_nearby"
	StatusUnknownWorkArea  Status = "unknown_work_area"
)

// Position is a raw device coordinate. It exists only inside the per-update
// pipeline and must never cross the persistence boundary.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Classification is the privacy-preserving output. ApproximateDistance is
// always a multiple of 100 meters; the rounding happens here, before the
// value leaves the classifier, so no caller can accidentally persist a finer
// distance.
type Classification struct {
	Status              Status  `json:"status"`
	NearestWorkAreaName *string `json:"nearestWorkAreaName,omitempty"`
	ApproximateDistance *int    `json:"approximateDistanceMeters,omitempty"`
}

// distanceRounding is the obfuscation grain in meters.
const distanceRounding = 100

// DefaultNearMultiplier scales a geofence radius into the "near" band. The
// multiplier is a tunable, not a business rule.
const DefaultNearMultiplier = 2.0

// Classifier computes proximity classifications against a set of geofences.
type Classifier struct {
	nearMultiplier float64
}

// NewClassifier builds a Classifier. A non-positive multiplier falls back to
// the default.
func NewClassifier(nearMultiplier float64) *Classifier {
	if nearMultiplier <= 0 {
		nearMultiplier = DefaultNearMultiplier
	}
	return &Classifier{nearMultiplier: nearMultiplier}
}

// Classify finds the nearest work location by great-circle distance and bands
// the result: inside the geofence radius is "at", inside radius times the
// near multiplier is "near", anything further is "away". Boundary distances
// fall into the closer band (inclusive comparison).
//
// Ties between equidistant locations resolve to the first in the slice;
// stores supply locations in canonical ID order, so the choice is
// deterministic rather than an accident of iteration.
//
// An empty location set degrades to StatusUnknownWorkArea with no name and
// no distance. Never an error: a guard with a misconfigured organization
// still gets a well-formed, fully anonymous classification.
func (c *Classifier) Classify(pos Position, locations []worklocation.WorkLocation) Classification {
	if len(locations) == 0 {
		return Classification{Status: StatusUnknownWorkArea}
	}

	nearest := locations[0]
	minDistance := Haversine(pos.Latitude, pos.Longitude, nearest.Latitude, nearest.Longitude)
	for _, location := range locations[1:] {
		d := Haversine(pos.Latitude, pos.Longitude, location.Latitude, location.Longitude)
		if d < minDistance {
			minDistance = d
			nearest = location
		}
	}

	status := StatusAwayFromWork
	switch {
	case minDistance <= nearest.RadiusMeters:
		status = StatusAtWorkLocation
	case minDistance <= c.nearMultiplier*nearest.RadiusMeters:
		status = StatusNearWorkLocation
	}

	name := nearest.Name
	approx := int(math.Round(minDistance/distanceRounding)) * distanceRounding
	return Classification{
		Status:              status,
		NearestWorkAreaName: &name,
		ApproximateDistance: &approx,
	}
}

// earthRadiusMeters is the mean Earth radius used for great-circle distance.
const earthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance in meters between two WGS84
// coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180.0
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
