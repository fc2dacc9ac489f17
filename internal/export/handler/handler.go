// Package handler exposes the GDPR data-subject export endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"securyflex/internal/export"
	"securyflex/internal/platform/metrics"
	"securyflex/internal/platform/middleware"
	"securyflex/internal/transport/http/shared"
	id "securyflex/pkg/domain"
	dErrors "securyflex/pkg/domain-errors"
	"securyflex/pkg/requestcontext"
)

// Service defines the export operation the handler needs.
type Service interface {
	Export(ctx context.Context, guardID id.GuardID, from, to time.Time) (export.SubjectData, error)
}

// Handler handles the data export endpoint.
type Handler struct {
	logger       *slog.Logger
	export       Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates an export Handler.
func New(
	svc Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		export:       svc,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the export route.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Latency(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/me/data-export", h.handleDataExport)
	})
}

// handleDataExport returns everything held about the authenticated guard.
// Optional from/to query parameters (RFC 3339) bound the audit trail; the
// default window is the preceding year.
func (h *Handler) handleDataExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := requestcontext.GuardID(ctx)
	if raw == "" {
		h.logger.ErrorContext(ctx, "guard id missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	guardID, err := id.ParseGuardID(raw)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid guard identity"))
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(-1, 0, 0)
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse(time.RFC3339, v)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid from timestamp"))
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse(time.RFC3339, v)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid to timestamp"))
			return
		}
	}

	data, err := h.export.Export(ctx, guardID, from, to)
	if err != nil {
		h.logger.ErrorContext(ctx, "data export failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="data-export.json"`)
	shared.WriteJSON(w, http.StatusOK, data)
}
