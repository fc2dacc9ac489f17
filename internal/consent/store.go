package consent

import (
	"context"
	"time"

	id "securyflex/pkg/domain"
)

// Store persists consent records keyed by (guard, purpose). Implementations
// return sentinel.ErrNotFound when no record exists for the key.
type Store interface {
	Save(ctx context.Context, record Record) error
	Get(ctx context.Context, guardID id.GuardID, purpose id.ConsentPurpose) (Record, error)
	ListByGuard(ctx context.Context, guardID id.GuardID) ([]Record, error)
	UpdateStatus(ctx context.Context, guardID id.GuardID, purpose id.ConsentPurpose, status Status, at time.Time) error
}
