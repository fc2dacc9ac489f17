package consent

import (
	"time"

	id "securyflex/pkg/domain"
)

// Status tracks the lifecycle of a consent record. The engine only ever reads
// status; transitions come from the guard's explicit action in the consent UI.
type Status string

const (
	StatusPending Status = "pending"
	StatusGranted Status = "granted"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// Record captures a guard's decision for a specific purpose. One record per
// (guard, purpose); re-granting overwrites the prior decision.
type Record struct {
	GuardID        id.GuardID
	OrganizationID id.OrganizationID
	Purpose        id.ConsentPurpose
	Status         Status
	RequestedAt    time.Time
	GrantedAt      *time.Time
	ExpiresAt      *time.Time
	RevokedAt      *time.Time
}

// IsActive returns true when consent is currently valid. A granted record
// past its expiry is treated identically to a revoked one, without requiring
// a status write (fail closed).
func (r Record) IsActive(now time.Time) bool {
	if r.Status != StatusGranted {
		return false
	}
	if r.ExpiresAt != nil && !now.Before(*r.ExpiresAt) {
		return false
	}
	return true
}

// RequestResult reports the outcome of a consent request so the UI can route
// the guard into the consent screen exactly once.
type RequestResult struct {
	Created bool   `json:"created"`
	Status  Status `json:"status"`
}
