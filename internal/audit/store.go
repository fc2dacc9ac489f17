package audit

import (
	"context"
	"time"

	id "securyflex/pkg/domain"
)

// Store persists audit events. Append-only: implementations must not expose
// update or delete operations.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByGuard(ctx context.Context, guardID id.GuardID, from, to time.Time) ([]Event, error)
}
