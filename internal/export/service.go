// Package export assembles a guard's data-subject export: the live location
// record held for them, their audit trail, and a plain description of the
// processing. Everything comes from stores that already exist; export never
// copies data into a second system.
package export

import (
	"context"
	"errors"
	"time"

	"securyflex/internal/audit"
	"securyflex/internal/tracking"
	id "securyflex/pkg/domain"
	pkgerrors "securyflex/pkg/domain-errors"
	"securyflex/pkg/platform/sentinel"
)

// AuditTrail lists a guard's audit events and records the export itself.
// Satisfied by audit.Publisher.
type AuditTrail interface {
	List(ctx context.Context, guardID id.GuardID, from, to time.Time) ([]audit.Event, error)
	Emit(ctx context.Context, event audit.Event)
}

// StateReader fetches the guard's current location record. Satisfied by the
// tracking state store.
type StateReader interface {
	Get(ctx context.Context, guardID id.GuardID) (tracking.GuardLocationRecord, error)
}

// PrivacyInfo is the static processing description included with every
// export. It is the machine-readable counterpart of the privacy notice shown
// when consent is requested.
type PrivacyInfo struct {
	Purposes          []string `json:"purposes"`
	LegalBasis        string   `json:"legalBasis"`
	RetentionPeriod   string   `json:"retentionPeriod"`
	LocationPrecision string   `json:"locationPrecision"`
	Controller        string   `json:"controller"`
}

// SubjectData is the full export payload for one guard.
type SubjectData struct {
	GuardID       string                        `json:"guardId"`
	GeneratedAt   time.Time                     `json:"generatedAt"`
	ProximityData *tracking.GuardLocationRecord `json:"proximityData,omitempty"`
	AuditTrail    []audit.Event                 `json:"auditTrail"`
	PrivacyInfo   PrivacyInfo                   `json:"privacyInfo"`
}

// Service builds subject exports.
type Service struct {
	state StateReader
	trail AuditTrail
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects a deterministic time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(state StateReader, trail AuditTrail, opts ...Option) *Service {
	s := &Service{
		state: state,
		trail: trail,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export returns everything held about the guard in the given window. A guard
// with no live location record still gets an export; ProximityData is simply
// omitted. Audit store failures abort the export rather than returning a
// partial answer.
func (s *Service) Export(ctx context.Context, guardID id.GuardID, from, to time.Time) (SubjectData, error) {
	data := SubjectData{
		GuardID:     guardID.String(),
		GeneratedAt: s.now().UTC(),
		PrivacyInfo: describeProcessing(),
	}

	record, err := s.state.Get(ctx, guardID)
	switch {
	case err == nil:
		data.ProximityData = &record
	case errors.Is(err, sentinel.ErrNotFound):
		// No active session; nothing to include.
	default:
		return SubjectData{}, pkgerrors.Wrap(pkgerrors.CodeUnavailable, "location state unavailable", err)
	}

	events, err := s.trail.List(ctx, guardID, from, to)
	if err != nil {
		return SubjectData{}, pkgerrors.Wrap(pkgerrors.CodeUnavailable, "audit trail unavailable", err)
	}
	if events == nil {
		events = []audit.Event{}
	}
	data.AuditTrail = events

	// The export is itself a data subject rights action; it lands in the
	// trail the next export will include.
	s.trail.Emit(ctx, audit.Event{
		Timestamp:  data.GeneratedAt,
		GuardID:    guardID,
		Action:     audit.ActionDataExported,
		Decision:   "completed",
		LegalBasis: audit.BasisLegitimateInterest,
	})

	return data, nil
}

func describeProcessing() PrivacyInfo {
	return PrivacyInfo{
		Purposes: []string{
			string(id.PurposeCompanyMonitoring),
			string(id.PurposeShiftVerification),
		},
		LegalBasis:        string(audit.BasisConsent),
		RetentionPeriod:   "24 hours, sliding, from last position update",
		LocationPrecision: "proximity category and distance rounded to 100 metres",
		Controller:        "employing security organization",
	}
}
