// Package tracking implements the privacy-compliant guard location engine:
// consent-gated position ingestion, proximity classification, state
// publishing and the audit trail around the session lifecycle.
package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"securyflex/internal/audit"
	"securyflex/internal/consent"
	"securyflex/internal/platform/config"
	"securyflex/internal/platform/metrics"
	"securyflex/internal/position"
	"securyflex/internal/proximity"
	"securyflex/internal/worklocation"
	id "securyflex/pkg/domain"
	pkgerrors "securyflex/pkg/domain-errors"
	"securyflex/pkg/requestcontext"
)

// ConsentGate checks and requests processing consent. Satisfied by
// consent.Service.
type ConsentGate interface {
	HasActiveConsent(ctx context.Context, guardID id.GuardID, purpose id.ConsentPurpose) (bool, error)
	Request(ctx context.Context, guardID id.GuardID, orgID id.OrganizationID, purpose id.ConsentPurpose) (consent.RequestResult, error)
}

// Auditor records tracking lifecycle events. Satisfied by audit.Publisher.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service owns tracking sessions. One session per guard at a time; each
// session runs a single goroutine, so its update pipeline executions are
// serialized in arrival order and never overlap.
type Service struct {
	consents    ConsentGate
	positions   position.Source
	permissions position.PermissionChecker
	locations   worklocation.Store
	state       StateStore
	classifier  *proximity.Classifier
	auditor     Auditor
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	cfg         config.TrackingConfig
	now         func() time.Time

	mu       sync.Mutex
	sessions map[id.GuardID]*session
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects a deterministic time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the engine. Every collaborator is injected; there is no
// global instance.
func NewService(
	consents ConsentGate,
	positions position.Source,
	permissions position.PermissionChecker,
	locations worklocation.Store,
	state StateStore,
	auditor Auditor,
	logger *slog.Logger,
	m *metrics.Metrics,
	cfg config.TrackingConfig,
	opts ...Option,
) *Service {
	s := &Service{
		consents:    consents,
		positions:   positions,
		permissions: permissions,
		locations:   locations,
		state:       state,
		classifier:  proximity.NewClassifier(cfg.NearMultiplier),
		auditor:     auditor,
		logger:      logger,
		metrics:     m,
		tracer:      otel.Tracer("securyflex/tracking"),
		cfg:         cfg,
		now:         time.Now,
		sessions:    make(map[id.GuardID]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// session is the per-guard tracking state. All pipeline work happens on the
// session goroutine; other goroutines only cancel it or read done.
type session struct {
	guardID id.GuardID
	orgID   id.OrganizationID
	cancel  context.CancelFunc
	done    chan struct{}

	mu           sync.Mutex
	availability AvailabilityStatus
	assignment   string
	stopReason   string
}

func (sess *session) setStopReason(reason string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stopReason == "" {
		sess.stopReason = reason
	}
}

func (sess *session) getStopReason() string {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stopReason == "" {
		return StopReasonRequested
	}
	return sess.stopReason
}

// InitializeTracking starts a tracking session for a guard. Preconditions, in
// order: any prior session is stopped first (at most one subscription per
// guard), the consent gate must pass, and the device-level location
// permission must be granted. Missing consent is an expected outcome that
// triggers the consent-request flow, not an error; a device permission denial
// is a distinct failure the UI reports differently.
func (s *Service) InitializeTracking(ctx context.Context, guardID id.GuardID, orgID id.OrganizationID) (TrackingResult, error) {
	s.stopSession(guardID, StopReasonRestarted)

	active, err := s.consents.HasActiveConsent(ctx, guardID, id.PurposeCompanyMonitoring)
	if err != nil {
		// Store unavailable: fail closed for this attempt, report retryable.
		return TrackingResult{}, pkgerrors.Wrap(pkgerrors.CodeUnavailable, "consent check failed", err)
	}
	s.auditConsentCheck(ctx, guardID, active)
	if !active {
		if _, err := s.consents.Request(ctx, guardID, orgID, id.PurposeCompanyMonitoring); err != nil {
			s.logger.WarnContext(ctx, "consent request failed", "guard_id", guardID, "error", err)
		}
		return TrackingResult{
			Success:         false,
			RequiresConsent: true,
			Message:         "consent required for company monitoring",
		}, nil
	}

	granted, err := s.permissions.HasLocationPermission(ctx, guardID)
	if err != nil {
		return TrackingResult{}, pkgerrors.Wrap(pkgerrors.CodeUnavailable, "device permission check failed", err)
	}
	if !granted {
		return TrackingResult{
			Success:         false,
			RequiresConsent: false,
			Message:         "device location permission denied",
		}, pkgerrors.New(pkgerrors.CodePermissionDenied, "device location permission denied")
	}

	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := s.positions.Subscribe(sessCtx, guardID, position.SubscribeOptions{
		Accuracy:             position.AccuracyReduced,
		DistanceFilterMeters: s.cfg.DistanceFilterMeters,
	})
	if err != nil {
		cancel()
		return TrackingResult{}, pkgerrors.Wrap(pkgerrors.CodePositionFetchFailed, "position stream unavailable", err)
	}

	sess := &session{
		guardID:      guardID,
		orgID:        orgID,
		cancel:       cancel,
		done:         make(chan struct{}),
		availability: AvailabilityOnDuty,
	}
	s.mu.Lock()
	s.sessions[guardID] = sess
	s.mu.Unlock()

	device := requestcontext.DeviceInfo(ctx)
	s.auditor.Emit(ctx, audit.Event{
		GuardID:    guardID,
		Action:     audit.ActionTrackingStarted,
		LegalBasis: audit.BasisConsent,
		RequestID:  requestcontext.RequestID(ctx),
		Metadata: map[string]string{
			"organization_id": orgID.String(),
			"device_os":       device.OS,
			"purpose":         id.PurposeCompanyMonitoring.String(),
		},
	})
	s.metrics.IncSessionStarted()
	s.logger.InfoContext(ctx, "tracking session started",
		"guard_id", guardID,
		"organization_id", orgID,
	)

	go s.run(sessCtx, sess, stream)

	return TrackingResult{Success: true, Message: "tracking started"}, nil
}

// StopTracking halts the guard's session. Idempotent: stopping an already
// stopped (or never started) guard does nothing, errors nothing, and writes
// no second TRACKING_STOPPED event. When StopTracking returns, no update
// from the stopped session can reach persistence.
func (s *Service) StopTracking(ctx context.Context, guardID id.GuardID) error {
	done := s.stopSession(guardID, StopReasonRequested)
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopSession cancels the guard's session if one exists and returns its done
// channel, or nil when there was nothing to stop. The final state write and
// TRACKING_STOPPED event run on the session goroutine before done closes.
func (s *Service) stopSession(guardID id.GuardID, reason string) <-chan struct{} {
	s.mu.Lock()
	sess, ok := s.sessions[guardID]
	if ok {
		delete(s.sessions, guardID)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	sess.setStopReason(reason)
	sess.cancel()
	if reason == StopReasonRestarted {
		<-sess.done
		return nil
	}
	return sess.done
}

// SetAvailability updates the shift status carried on subsequent records.
func (s *Service) SetAvailability(guardID id.GuardID, status AvailabilityStatus) {
	s.mu.Lock()
	sess, ok := s.sessions[guardID]
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.availability = status
	sess.mu.Unlock()
}

// SetAssignment updates the assignment reference carried on subsequent
// records. An empty id clears it between shifts.
func (s *Service) SetAssignment(guardID id.GuardID, assignmentID string) {
	s.mu.Lock()
	sess, ok := s.sessions[guardID]
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.assignment = assignmentID
	sess.mu.Unlock()
}

// run is the session goroutine. The push stream and the poll ticker are two
// producers feeding the same pipeline; because both are handled here, updates
// are processed strictly one at a time in arrival order.
func (s *Service) run(ctx context.Context, sess *session, stream <-chan position.Position) {
	defer close(sess.done)
	defer s.finalize(sess)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case pos, ok := <-stream:
			if !ok {
				// Stream ended; the poll ticker keeps the session alive.
				stream = nil
				continue
			}
			if s.handleUpdate(ctx, sess, pos, &consecutiveFailures) {
				return
			}
		case <-ticker.C:
			pos, err := s.fetchCurrent(ctx, sess.guardID)
			if err != nil {
				// One failed fetch is a missed cycle. A dead source keeps
				// counting toward the same bound as any other transient
				// failure, otherwise a silent stream would leave the
				// session running forever.
				consecutiveFailures++
				s.logger.WarnContext(ctx, "poll cycle failed",
					"guard_id", sess.guardID,
					"consecutive_failures", consecutiveFailures,
					"error", err,
				)
				if consecutiveFailures >= s.cfg.MaxConsecutiveFailures {
					sess.setStopReason(StopReasonFailureLimit)
					return
				}
				continue
			}
			if s.handleUpdate(ctx, sess, pos, &consecutiveFailures) {
				return
			}
		}
	}
}

// fetchCurrent bounds the one-shot position fetch so a stalled device call
// cannot block the session past the next cycle.
func (s *Service) fetchCurrent(ctx context.Context, guardID id.GuardID) (position.Position, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	return s.positions.Current(fetchCtx, guardID)
}

// handleUpdate runs one pipeline execution and returns true when the session
// must stop. Transient failures accumulate; crossing the bound stops the
// session with a reported reason rather than looping forever against a dead
// backend.
func (s *Service) handleUpdate(ctx context.Context, sess *session, pos position.Position, consecutiveFailures *int) bool {
	err := s.processUpdate(ctx, sess, pos)
	switch {
	case err == nil:
		*consecutiveFailures = 0
		return false
	case pkgerrors.Is(err, pkgerrors.CodeConsentRevoked):
		sess.setStopReason(StopReasonConsentRevoked)
		return true
	default:
		*consecutiveFailures++
		s.logger.WarnContext(ctx, "update cycle failed",
			"guard_id", sess.guardID,
			"consecutive_failures", *consecutiveFailures,
			"error", err,
		)
		if *consecutiveFailures >= s.cfg.MaxConsecutiveFailures {
			sess.setStopReason(StopReasonFailureLimit)
			return true
		}
		return false
	}
}

// processUpdate is the per-update pipeline: re-check consent, classify,
// persist, publish, audit. Persistence success is a precondition for
// subscriber emission; the state store enforces that coupling. Raw
// coordinates never survive past the classify step.
func (s *Service) processUpdate(ctx context.Context, sess *session, pos position.Position) error {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "tracking.processUpdate",
		trace.WithAttributes(attribute.String("guard.id", sess.guardID.String())))
	defer span.End()
	defer func() { s.metrics.ObservePipeline(s.now().Sub(start)) }()

	// Consent can be revoked mid-session; every update re-checks. A store
	// error means this cycle is treated as unconsented (skipped) but the
	// session survives: fail closed, retry next cycle.
	active, err := s.consents.HasActiveConsent(ctx, sess.guardID, id.PurposeCompanyMonitoring)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, "consent re-check failed", err)
	}
	s.auditConsentCheck(ctx, sess.guardID, active)
	if !active {
		return pkgerrors.New(pkgerrors.CodeConsentRevoked, "consent no longer active")
	}

	locations, err := s.locations.ListByOrganization(ctx, sess.orgID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, "work location lookup failed", err)
	}

	classification := s.classifier.Classify(proximity.Position{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
	}, locations)
	s.metrics.IncClassification(string(classification.Status))

	sess.mu.Lock()
	availability := sess.availability
	assignment := sess.assignment
	sess.mu.Unlock()

	record := GuardLocationRecord{
		GuardID:            sess.guardID,
		OrganizationID:     sess.orgID,
		AvailabilityStatus: availability,
		AssignmentID:       assignment,
		Classification:     classification,
		IsLocationEnabled:  true,
		UpdatedAt:          s.now(),
	}
	if err := s.state.Upsert(ctx, record, s.cfg.StateTTL); err != nil {
		s.metrics.IncPersistenceFailure()
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailed, "guard location write failed", err)
	}
	return nil
}

// finalize writes the terminal isLocationEnabled=false state and the single
// TRACKING_STOPPED event. It runs exactly once, on the session goroutine,
// after the pipeline loop has exited, so it cannot race an in-flight update.
func (s *Service) finalize(sess *session) {
	reason := sess.getStopReason()

	// The session context is already cancelled; the final write gets its own
	// bounded context.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess.mu.Lock()
	availability := sess.availability
	assignment := sess.assignment
	sess.mu.Unlock()

	record := GuardLocationRecord{
		GuardID:            sess.guardID,
		OrganizationID:     sess.orgID,
		AvailabilityStatus: availability,
		AssignmentID:       assignment,
		Classification:     proximity.Classification{Status: proximity.StatusUnknownWorkArea},
		IsLocationEnabled:  false,
		UpdatedAt:          s.now(),
	}
	if err := s.state.Upsert(ctx, record, s.cfg.StateTTL); err != nil {
		s.metrics.IncPersistenceFailure()
		s.logger.Error("final tracking state write failed",
			"guard_id", sess.guardID,
			"error", err,
		)
	}

	s.auditor.Emit(ctx, audit.Event{
		GuardID:    sess.guardID,
		Action:     audit.ActionTrackingStopped,
		Reason:     reason,
		LegalBasis: audit.BasisLegitimateInterest,
		Metadata:   map[string]string{"organization_id": sess.orgID.String()},
	})
	s.metrics.IncSessionStopped(reason)
	s.logger.Info("tracking session stopped",
		"guard_id", sess.guardID,
		"reason", reason,
	)
}

func (s *Service) auditConsentCheck(ctx context.Context, guardID id.GuardID, active bool) {
	decision := "denied"
	if active {
		decision = "granted"
	}
	s.auditor.Emit(ctx, audit.Event{
		GuardID:    guardID,
		Action:     audit.ActionConsentChecked,
		Decision:   decision,
		LegalBasis: audit.BasisConsent,
		Metadata:   map[string]string{"purpose": id.PurposeCompanyMonitoring.String()},
	})
}

// CurrentLocation returns the guard's persisted record.
func (s *Service) CurrentLocation(ctx context.Context, guardID id.GuardID) (GuardLocationRecord, error) {
	record, err := s.state.Get(ctx, guardID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return GuardLocationRecord{}, err
		}
		return GuardLocationRecord{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, "no location record", err)
	}
	return record, nil
}

// GuardLocationStream streams the guard's record updates until ctx ends.
func (s *Service) GuardLocationStream(ctx context.Context, guardID id.GuardID) (<-chan GuardLocationRecord, error) {
	return s.state.Subscribe(ctx, guardID)
}

// OrganizationLocationsStream streams the organization roster after every
// change. The company monitoring path only ever sees persisted
// classifications, never raw positions.
func (s *Service) OrganizationLocationsStream(ctx context.Context, orgID id.OrganizationID) (<-chan []GuardLocationRecord, error) {
	return s.state.SubscribeOrganization(ctx, orgID)
}

// OrganizationLocations returns the current roster snapshot.
func (s *Service) OrganizationLocations(ctx context.Context, orgID id.OrganizationID) ([]GuardLocationRecord, error) {
	return s.state.ListByOrganization(ctx, orgID)
}

// Shutdown stops every active session, used on server shutdown.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	guards := make([]id.GuardID, 0, len(s.sessions))
	for guardID := range s.sessions {
		guards = append(guards, guardID)
	}
	s.mu.Unlock()

	for _, guardID := range guards {
		s.mu.Lock()
		sess, ok := s.sessions[guardID]
		if ok {
			delete(s.sessions, guardID)
		}
		s.mu.Unlock()
		if !ok {
			continue
		}
		sess.setStopReason(StopReasonShutdown)
		sess.cancel()
		select {
		case <-sess.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
