// Package handler exposes the tracking lifecycle and location read endpoints.
// Stream endpoints use server-sent events; the response flusher pushes each
// state store notification to the dashboard as it happens.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"securyflex/internal/platform/metrics"
	"securyflex/internal/platform/middleware"
	"securyflex/internal/tracking"
	"securyflex/internal/transport/http/shared"
	id "securyflex/pkg/domain"
	dErrors "securyflex/pkg/domain-errors"
	"securyflex/pkg/requestcontext"
)

// Service defines the tracking operations the handler needs.
type Service interface {
	InitializeTracking(ctx context.Context, guardID id.GuardID, orgID id.OrganizationID) (tracking.TrackingResult, error)
	StopTracking(ctx context.Context, guardID id.GuardID) error
	SetAvailability(guardID id.GuardID, status tracking.AvailabilityStatus)
	SetAssignment(guardID id.GuardID, assignmentID string)
	CurrentLocation(ctx context.Context, guardID id.GuardID) (tracking.GuardLocationRecord, error)
	GuardLocationStream(ctx context.Context, guardID id.GuardID) (<-chan tracking.GuardLocationRecord, error)
	OrganizationLocations(ctx context.Context, orgID id.OrganizationID) ([]tracking.GuardLocationRecord, error)
	OrganizationLocationsStream(ctx context.Context, orgID id.OrganizationID) (<-chan []tracking.GuardLocationRecord, error)
}

// Handler handles tracking endpoints.
type Handler struct {
	logger       *slog.Logger
	tracking     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a tracking Handler.
func New(
	svc Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		tracking:     svc,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the tracking routes. Lifecycle routes run under a request
// timeout; stream routes must not, so they get their own subrouter.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Latency(h.metrics))
		r.Use(middleware.Device)
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/tracking/initialize", h.handleInitialize)
		r.Post("/tracking/stop", h.handleStop)
		r.Put("/tracking/availability", h.handleSetAvailability)
		r.Get("/guards/{guardID}/location", h.handleCurrentLocation)
		r.Get("/organizations/{orgID}/guards/locations", h.handleOrganizationLocations)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/guards/{guardID}/location/stream", h.handleLocationStream)
		r.Get("/organizations/{orgID}/guards/locations/stream", h.handleOrganizationStream)
	})
}

func (h *Handler) authenticatedGuard(ctx context.Context, w http.ResponseWriter) (id.GuardID, bool) {
	raw := requestcontext.GuardID(ctx)
	if raw == "" {
		h.logger.ErrorContext(ctx, "guard id missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.GuardID{}, false
	}
	guardID, err := id.ParseGuardID(raw)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid guard identity"))
		return id.GuardID{}, false
	}
	return guardID, true
}

// handleInitialize starts (or restarts) the caller's tracking session. The
// consent-missing outcome is a 200 with requiresConsent set; only real
// failures surface as errors.
func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guardID, ok := h.authenticatedGuard(ctx, w)
	if !ok {
		return
	}
	orgID, err := id.ParseOrganizationID(requestcontext.OrganizationID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid organization identity"))
		return
	}

	result, err := h.tracking.InitializeTracking(ctx, guardID, orgID)
	if err != nil {
		h.logger.ErrorContext(ctx, "tracking initialization failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, result)
}

// handleStop is idempotent: stopping a guard with no session still returns
// 204.
func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guardID, ok := h.authenticatedGuard(ctx, w)
	if !ok {
		return
	}

	if err := h.tracking.StopTracking(ctx, guardID); err != nil {
		h.logger.ErrorContext(ctx, "tracking stop failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type availabilityRequest struct {
	Status string `json:"status"`
	// AssignmentID, when present, replaces the assignment carried on
	// subsequent records. An explicit empty string clears it.
	AssignmentID *string `json:"assignmentId,omitempty"`
}

func (h *Handler) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guardID, ok := h.authenticatedGuard(ctx, w)
	if !ok {
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	status := tracking.AvailabilityStatus(req.Status)
	switch status {
	case tracking.AvailabilityAvailable, tracking.AvailabilityOnDuty, tracking.AvailabilityUnavailable:
	default:
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown availability status: "+req.Status))
		return
	}

	h.tracking.SetAvailability(guardID, status)
	if req.AssignmentID != nil {
		h.tracking.SetAssignment(guardID, *req.AssignmentID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathGuardID parses the guard id route parameter and checks the caller may
// read that guard's state: the guard themselves, or any caller from the same
// organization as the record.
func (h *Handler) pathGuardID(w http.ResponseWriter, r *http.Request) (id.GuardID, bool) {
	guardID, err := id.ParseGuardID(chi.URLParam(r, "guardID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid guard id"))
		return id.GuardID{}, false
	}
	return guardID, true
}

func (h *Handler) mayReadGuard(ctx context.Context, target id.GuardID, record tracking.GuardLocationRecord) bool {
	if requestcontext.GuardID(ctx) == target.String() {
		return true
	}
	return requestcontext.OrganizationID(ctx) == record.OrganizationID.String()
}

func (h *Handler) handleCurrentLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guardID, ok := h.pathGuardID(w, r)
	if !ok {
		return
	}

	record, err := h.tracking.CurrentLocation(ctx, guardID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !h.mayReadGuard(ctx, guardID, record) {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not authorized for this guard"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, record)
}

// pathOrgID parses the organization route parameter and requires the caller
// to belong to that organization.
func (h *Handler) pathOrgID(w http.ResponseWriter, r *http.Request) (id.OrganizationID, bool) {
	orgID, err := id.ParseOrganizationID(chi.URLParam(r, "orgID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid organization id"))
		return id.OrganizationID{}, false
	}
	if requestcontext.OrganizationID(r.Context()) != orgID.String() {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not authorized for this organization"))
		return id.OrganizationID{}, false
	}
	return orgID, true
}

func (h *Handler) handleOrganizationLocations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.pathOrgID(w, r)
	if !ok {
		return
	}

	records, err := h.tracking.OrganizationLocations(ctx, orgID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if records == nil {
		records = []tracking.GuardLocationRecord{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"guards": records})
}

// sseSetup prepares the response for server-sent events. Returns the flusher,
// or nil when the connection cannot stream.
func sseSetup(w http.ResponseWriter) http.Flusher {
	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return nil
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return flusher
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// handleLocationStream pushes each accepted state write for one guard. The
// current record, when present, is sent immediately so the client does not
// wait for the next position update.
func (h *Handler) handleLocationStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guardID, ok := h.pathGuardID(w, r)
	if !ok {
		return
	}

	stream, err := h.tracking.GuardLocationStream(ctx, guardID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	flusher := sseSetup(w)
	if flusher == nil {
		return
	}

	if record, err := h.tracking.CurrentLocation(ctx, guardID); err == nil {
		if !h.mayReadGuard(ctx, guardID, record) {
			return
		}
		if err := writeEvent(w, flusher, record); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case record, open := <-stream:
			if !open {
				return
			}
			if !h.mayReadGuard(ctx, guardID, record) {
				return
			}
			if err := writeEvent(w, flusher, record); err != nil {
				return
			}
		}
	}
}

// handleOrganizationStream pushes the full roster snapshot after every write
// by any guard in the organization.
func (h *Handler) handleOrganizationStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.pathOrgID(w, r)
	if !ok {
		return
	}

	stream, err := h.tracking.OrganizationLocationsStream(ctx, orgID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	flusher := sseSetup(w)
	if flusher == nil {
		return
	}

	if records, err := h.tracking.OrganizationLocations(ctx, orgID); err == nil {
		if err := writeEvent(w, flusher, records); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case records, open := <-stream:
			if !open {
				return
			}
			if err := writeEvent(w, flusher, records); err != nil {
				return
			}
		}
	}
}
