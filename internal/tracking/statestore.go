package tracking

import (
	"context"
	"time"

	id "securyflex/pkg/domain"
)

// StateStore is the guard location state backend. Records have
// last-writer-wins overwrite semantics keyed by guard id, with a sliding TTL
// refreshed on every write. Implementations return sentinel.ErrNotFound from
// Get when the record is absent or expired.
//
// Storage success is a precondition for subscriber emission: a failed Upsert
// never produces a notification.
type StateStore interface {
	// Upsert overwrites the guard's record and resets its TTL, then notifies
	// the guard's subscribers and the organization's aggregate subscribers.
	Upsert(ctx context.Context, record GuardLocationRecord, ttl time.Duration) error
	Get(ctx context.Context, guardID id.GuardID) (GuardLocationRecord, error)
	ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]GuardLocationRecord, error)
	// Subscribe streams every accepted write for one guard until ctx ends.
	Subscribe(ctx context.Context, guardID id.GuardID) (<-chan GuardLocationRecord, error)
	// SubscribeOrganization streams the full organization roster snapshot
	// after every accepted write by any of its guards.
	SubscribeOrganization(ctx context.Context, orgID id.OrganizationID) (<-chan []GuardLocationRecord, error)
}
