package audit

import (
	"context"
	"log/slog"
	"time"

	"securyflex/internal/platform/metrics"
	id "securyflex/pkg/domain"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
//
// Emit never fails from the caller's point of view: audit is best-effort
// observability, not a transactional guarantee. Failures are logged and
// counted so operators see them, but state updates are never blocked or
// rolled back over a missing audit line.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewPublisher(store Store, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	return &Publisher{store: store, logger: logger, metrics: m}
}

// Emit appends one audit event, stamping the time when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncAuditFailure()
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"guard_id", event.GuardID,
			"error", err,
		)
	}
}

// List returns the guard's audit trail within the given range. Zero times
// mean unbounded.
func (p *Publisher) List(ctx context.Context, guardID id.GuardID, from, to time.Time) ([]Event, error) {
	return p.store.ListByGuard(ctx, guardID, from, to)
}
