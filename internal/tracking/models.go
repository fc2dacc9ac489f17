package tracking

import (
	"time"

	"securyflex/internal/proximity"
	id "securyflex/pkg/domain"
)

// AvailabilityStatus mirrors the guard's shift state as shown on the
// company dashboard.
type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "available"
	AvailabilityOnDuty      AvailabilityStatus = "on_duty"
	AvailabilityUnavailable AvailabilityStatus = "unavailable"
)

// GuardLocationRecord is the persisted per-guard state. It carries only the
// derived proximity classification, never coordinates. Overwritten in place
// on every update; ExpiresAt slides to now+TTL on each write so the record
// self-destructs 24 hours after the last update.
type GuardLocationRecord struct {
	GuardID            id.GuardID               `json:"guardId"`
	OrganizationID     id.OrganizationID        `json:"organizationId"`
	AvailabilityStatus AvailabilityStatus       `json:"availabilityStatus"`
	AssignmentID       string                   `json:"assignmentId,omitempty"`
	Classification     proximity.Classification `json:"classification"`
	IsLocationEnabled  bool                     `json:"isLocationEnabled"`
	UpdatedAt          time.Time                `json:"updatedAt"`
	ExpiresAt          time.Time                `json:"expiresAt"`
}

// TrackingResult reports initializeTracking's outcome. RequiresConsent is an
// expected state, not an error: the UI branches into the consent-request
// flow when it is set.
type TrackingResult struct {
	Success         bool   `json:"success"`
	RequiresConsent bool   `json:"requiresConsent"`
	Message         string `json:"message"`
}

// SessionState names the tracking session lifecycle states.
type SessionState string

const (
	StateIdle            SessionState = "idle"
	StateAwaitingConsent SessionState = "awaiting_consent"
	StateTracking        SessionState = "tracking"
	StateStopped         SessionState = "stopped"
)

// Stop reasons recorded in audit events and metrics.
const (
	StopReasonRequested      = "requested"
	StopReasonConsentRevoked = "consent_revoked"
	StopReasonFailureLimit   = "failure_limit"
	StopReasonRestarted      = "restarted"
	StopReasonShutdown       = "shutdown"
)
