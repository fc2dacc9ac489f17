// Package handler exposes the consent endpoints. Handlers stay thin: decode,
// resolve the authenticated guard, delegate to the service, translate errors.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"securyflex/internal/consent"
	"securyflex/internal/platform/metrics"
	"securyflex/internal/platform/middleware"
	"securyflex/internal/transport/http/shared"
	id "securyflex/pkg/domain"
	dErrors "securyflex/pkg/domain-errors"
	"securyflex/pkg/requestcontext"
)

// Service defines the consent operations the handler needs.
type Service interface {
	Request(ctx context.Context, guardID id.GuardID, orgID id.OrganizationID, purpose id.ConsentPurpose) (consent.RequestResult, error)
	Grant(ctx context.Context, guardID id.GuardID, purpose id.ConsentPurpose, ttl time.Duration) (consent.Record, error)
	Revoke(ctx context.Context, guardID id.GuardID, purpose id.ConsentPurpose) error
	List(ctx context.Context, guardID id.GuardID) ([]consent.Record, error)
}

// Handler handles consent-related endpoints.
type Handler struct {
	logger       *slog.Logger
	consent      Service
	metrics      *metrics.Metrics
	consentTTL   time.Duration
	jwtValidator middleware.JWTValidator
}

// New creates a consent Handler. ttl bounds every grant; zero means grants do
// not expire.
func New(
	svc Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	ttl time.Duration) *Handler {
	return &Handler{
		logger:       logger,
		consent:      svc,
		metrics:      m,
		consentTTL:   ttl,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the consent routes with their middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Latency(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/consent/request", h.handleRequestConsent)
		r.Post("/consent/grant", h.handleGrantConsent)
		r.Post("/consent/revoke", h.handleRevokeConsent)
		r.Get("/consent", h.handleListConsent)
	})
}

type purposeRequest struct {
	Purpose string `json:"purpose"`
}

// authenticatedGuard resolves the guard id set by RequireAuth. A missing id
// means the middleware chain is miswired, not a client fault.
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

func (h *Handler) decodePurpose(w http.ResponseWriter, r *http.Request) (id.ConsentPurpose, bool) {
	var req purposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return "", false
	}
	purpose, err := id.ParseConsentPurpose(req.Purpose)
	if err != nil {
		shared.WriteError(w, err)
		return "", false
	}
	return purpose, true
}

// handleRequestConsent records a pending consent request. Idempotent: a
// repeat request for the same purpose reports the existing status.
func (h *Handler) handleRequestConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guardID, ok := h.authenticatedGuard(ctx, w)
	if !ok {
		return
	}
	purpose, ok := h.decodePurpose(w, r)
	if !ok {
		return
	}

	orgID, err := id.ParseOrganizationID(requestcontext.OrganizationID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid organization identity"))
		return
	}

	result, err := h.consent.Request(ctx, guardID, orgID, purpose)
	if err != nil {
		h.logger.ErrorContext(ctx, "consent request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	shared.WriteJSON(w, status, result)
}

func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guardID, ok := h.authenticatedGuard(ctx, w)
	if !ok {
		return
	}
	purpose, ok := h.decodePurpose(w, r)
	if !ok {
		return
	}

	record, err := h.consent.Grant(ctx, guardID, purpose, h.consentTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "consent grant failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toResponse(record))
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guardID, ok := h.authenticatedGuard(ctx, w)
	if !ok {
		return
	}
	purpose, ok := h.decodePurpose(w, r)
	if !ok {
		return
	}

	if err := h.consent.Revoke(ctx, guardID, purpose); err != nil {
		h.logger.ErrorContext(ctx, "consent revoke failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guardID, ok := h.authenticatedGuard(ctx, w)
	if !ok {
		return
	}

	records, err := h.consent.List(ctx, guardID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	out := make([]consentResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toResponse(rec))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"consents": out})
}
