package consent

import (
	"context"
	"errors"
	"time"

	"securyflex/internal/audit"
	"securyflex/internal/platform/metrics"
	id "securyflex/pkg/domain"
	pkgerrors "securyflex/pkg/domain-errors"
	"securyflex/pkg/platform/sentinel"
)

// Auditor records consent lifecycle events. Satisfied by audit.Publisher.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service persists consent decisions and provides purpose-aware checks. It
// keeps orchestration out of handlers and domain logic thin.
//
// The location engine only ever calls HasActiveConsent; Grant and Revoke are
// invoked by the consent UI through the HTTP layer.
type Service struct {
	store   Store
	auditor Auditor
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects a deterministic time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, auditor Auditor, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{store: store, auditor: auditor, metrics: m, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request creates a pending consent record for the external consent UI to act
// on. Idempotent: an existing pending or granted record is left untouched.
func (s *Service) Request(ctx context.Context, guardID id.GuardID, orgID id.OrganizationID, purpose id.ConsentPurpose) (RequestResult, error) {
	existing, err := s.store.Get(ctx, guardID, purpose)
	switch {
	case err == nil:
		if existing.Status == StatusPending || existing.IsActive(s.now()) {
			return RequestResult{Created: false, Status: existing.Status}, nil
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// fall through to create
	default:
		return RequestResult{}, pkgerrors.Wrap(pkgerrors.CodeUnavailable, "consent store read failed", err)
	}

	record := Record{
		GuardID:        guardID,
		OrganizationID: orgID,
		Purpose:        purpose,
		Status:         StatusPending,
		RequestedAt:    s.now(),
	}
	if err := s.store.Save(ctx, record); err != nil {
		return RequestResult{}, pkgerrors.Wrap(pkgerrors.CodePersistenceFailed, "failed to save consent request", err)
	}
	s.auditor.Emit(ctx, audit.Event{
		GuardID:    guardID,
		Action:     audit.ActionConsentRequested,
		LegalBasis: audit.BasisLegitimateInterest,
		Metadata:   map[string]string{"purpose": purpose.String(), "organization_id": orgID.String()},
	})
	return RequestResult{Created: true, Status: StatusPending}, nil
}

// Grant records the guard's explicit approval. A zero ttl grants without
// expiry; otherwise the grant expires automatically and HasActiveConsent
// fails closed past the deadline.
func (s *Service) Grant(ctx context.Context, guardID id.GuardID, purpose id.ConsentPurpose, ttl time.Duration) (Record, error) {
	now := s.now()
	record, err := s.store.Get(ctx, guardID, purpose)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return Record{}, pkgerrors.Wrap(pkgerrors.CodeUnavailable, "consent store read failed", err)
	}
	record.GuardID = guardID
	record.Purpose = purpose
	record.Status = StatusGranted
	record.GrantedAt = &now
	record.RevokedAt = nil
	if record.RequestedAt.IsZero() {
		record.RequestedAt = now
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		record.ExpiresAt = &expires
	} else {
		record.ExpiresAt = nil
	}
	if err := s.store.Save(ctx, record); err != nil {
		return Record{}, pkgerrors.Wrap(pkgerrors.CodePersistenceFailed, "failed to save consent grant", err)
	}
	s.auditor.Emit(ctx, audit.Event{
		GuardID:    guardID,
		Action:     audit.ActionConsentGranted,
		Decision:   string(StatusGranted),
		LegalBasis: audit.BasisConsent,
		Metadata:   map[string]string{"purpose": purpose.String()},
	})
	return record, nil
}

// Revoke withdraws a previously granted consent. Any active tracking session
// for the guard halts within one update cycle as its per-update gate check
// starts failing.
func (s *Service) Revoke(ctx context.Context, guardID id.GuardID, purpose id.ConsentPurpose) error {
	if err := s.store.UpdateStatus(ctx, guardID, purpose, StatusRevoked, s.now()); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no consent record for purpose")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailed, "failed to revoke consent", err)
	}
	s.auditor.Emit(ctx, audit.Event{
		GuardID:    guardID,
		Action:     audit.ActionConsentRevoked,
		Decision:   string(StatusRevoked),
		LegalBasis: audit.BasisConsent,
		Metadata:   map[string]string{"purpose": purpose.String()},
	})
	return nil
}

// HasActiveConsent is the consent gate. It returns true iff a record exists
// for (guard, purpose) with status granted and no elapsed expiry. A missing
// record is false with no error (fail closed, not a fault); a store error
// propagates so the caller treats the cycle as unconsented rather than
// guessing.
//
// No side effects: the gate never mutates consent records. Audit emission for
// check outcomes belongs to the tracking engine, which knows the session
// context.
func (s *Service) HasActiveConsent(ctx context.Context, guardID id.GuardID, purpose id.ConsentPurpose) (bool, error) {
	record, err := s.store.Get(ctx, guardID, purpose)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.metrics.IncConsentCheck("denied")
		return false, nil
	}
	if err != nil {
		s.metrics.IncConsentCheck("error")
		return false, pkgerrors.Wrap(pkgerrors.CodeUnavailable, "consent store read failed", err)
	}
	active := record.IsActive(s.now())
	if active {
		s.metrics.IncConsentCheck("granted")
	} else {
		s.metrics.IncConsentCheck("denied")
	}
	return active, nil
}

// List returns all consent records for a guard.
func (s *Service) List(ctx context.Context, guardID id.GuardID) ([]Record, error) {
	return s.store.ListByGuard(ctx, guardID)
}
