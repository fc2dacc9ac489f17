package worklocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "securyflex/pkg/domain"
	"securyflex/pkg/platform/sentinel"
)

// PostgresStore reads work locations from the work_locations table. The
// engine never writes this table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]WorkLocation, error) {
	query := `
		SELECT id, name, latitude, longitude, radius_meters, organization_id
		FROM work_locations
		WHERE organization_id = $1
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(orgID))
	if err != nil {
		return nil, fmt.Errorf("list work locations: %w", err)
	}
	defer rows.Close()

	var locations []WorkLocation
	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work location: %w", err)
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, locationID string) (WorkLocation, error) {
	query := `
		SELECT id, name, latitude, longitude, radius_meters, organization_id
		FROM work_locations
		WHERE id = $1
	`
	location, err := scanLocation(s.db.QueryRowContext(ctx, query, locationID))
	if errors.Is(err, sql.ErrNoRows) {
		return WorkLocation{}, sentinel.ErrNotFound
	}
	if err != nil {
		return WorkLocation{}, fmt.Errorf("get work location: %w", err)
	}
	return location, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (WorkLocation, error) {
	var (
		location WorkLocation
		orgID    uuid.UUID
	)
	err := row.Scan(&location.ID, &location.Name, &location.Latitude, &location.Longitude, &location.RadiusMeters, &orgID)
	if err != nil {
		return WorkLocation{}, err
	}
	location.OrganizationID = id.OrganizationID(orgID)
	return location, nil
}
