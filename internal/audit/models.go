package audit

import (
	"time"

	id "securyflex/pkg/domain"
)

// Category classifies audit events by their primary purpose. This enables
// different retention policies, storage backends, and routing.
type Category string

const (
	// CategoryCompliance covers events with legal significance: consent
	// changes, tracking lifecycle, data subject rights. Tamper-proof storage,
	// long retention.
	CategoryCompliance Category = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations Category = "operations"
)

// Action names a lifecycle event in the audit trail.
type Action string

const (
	ActionTrackingStarted  Action = "TRACKING_STARTED"
	ActionTrackingStopped  Action = "TRACKING_STOPPED"
	ActionConsentChecked   Action = "CONSENT_CHECKED"
	ActionConsentRequested Action = "CONSENT_REQUESTED"
	ActionConsentGranted   Action = "CONSENT_GRANTED"
	ActionConsentRevoked   Action = "CONSENT_REVOKED"
	ActionDataExported     Action = "DATA_EXPORTED"
)

// actionCategories maps each action to its category. Consent checks happen on
// every position update; they are operations events so they can be sampled.
var actionCategories = map[Action]Category{
	ActionTrackingStarted:  CategoryCompliance,
	ActionTrackingStopped:  CategoryCompliance,
	ActionConsentRequested: CategoryCompliance,
	ActionConsentGranted:   CategoryCompliance,
	ActionConsentRevoked:   CategoryCompliance,
	ActionDataExported:     CategoryCompliance,
	ActionConsentChecked:   CategoryOperations,
}

// Category returns the Category for this action. Unknown actions default to
// CategoryOperations.
func (a Action) Category() Category {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// LegalBasis annotates the GDPR ground an event was processed under.
type LegalBasis string

const (
	// BasisConsent: processing rests on the guard's explicit grant (art. 6(1)(a)).
	BasisConsent LegalBasis = "consent"
	// BasisLegitimateInterest: processing needed to operate the platform itself,
	// such as recording that tracking stopped (art. 6(1)(f)).
	BasisLegitimateInterest LegalBasis = "legitimate_interest"
)

// Event is an immutable record of a tracking lifecycle action. Append-only:
// nothing in this service ever mutates or deletes one.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	GuardID    id.GuardID        `json:"guardId"`
	Action     Action            `json:"action"`
	Decision   string            `json:"decision"`
	Reason     string            `json:"reason,omitempty"`
	LegalBasis LegalBasis        `json:"legalBasis"`
	RequestID  string            `json:"requestId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
