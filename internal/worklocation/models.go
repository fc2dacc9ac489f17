// Package worklocation holds the organization's named geofences. Reference
// data: created and maintained by organization administrators elsewhere in
// the platform, read-only to the location engine.
package worklocation

import (
	id "securyflex/pkg/domain"
)

// WorkLocation is a named circular geofence belonging to an organization.
type WorkLocation struct {
	ID             string
	Name           string
	Latitude       float64
	Longitude      float64
	RadiusMeters   float64
	OrganizationID id.OrganizationID
}
