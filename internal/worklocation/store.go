package worklocation

import (
	"context"

	id "securyflex/pkg/domain"
)

// Store reads work locations. ListByOrganization returns locations in
// canonical order (ID ascending); the proximity classifier's tie-break
// depends on that ordering being stable.
type Store interface {
	ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]WorkLocation, error)
	Get(ctx context.Context, locationID string) (WorkLocation, error)
}
