package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "securyflex/pkg/domain"
	"securyflex/pkg/platform/sentinel"
	txcontext "securyflex/pkg/platform/tx"
)

// PostgresStore persists consent records in the consent_records table.
// (guard_id, purpose) is the primary key; Save upserts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	query := `
		INSERT INTO consent_records (guard_id, organization_id, purpose, status, requested_at, granted_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (guard_id, purpose) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			status = EXCLUDED.status,
			requested_at = EXCLUDED.requested_at,
			granted_at = EXCLUDED.granted_at,
			expires_at = EXCLUDED.expires_at,
			revoked_at = EXCLUDED.revoked_at
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(record.GuardID),
		uuid.UUID(record.OrganizationID),
		string(record.Purpose),
		string(record.Status),
		record.RequestedAt,
		record.GrantedAt,
		record.ExpiresAt,
		record.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("save consent record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, guardID id.GuardID, purpose id.ConsentPurpose) (Record, error) {
	query := `
		SELECT guard_id, organization_id, purpose, status, requested_at, granted_at, expires_at, revoked_at
		FROM consent_records
		WHERE guard_id = $1 AND purpose = $2
	`
	row := s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(guardID), string(purpose))
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get consent record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByGuard(ctx context.Context, guardID id.GuardID) ([]Record, error) {
	query := `
		SELECT guard_id, organization_id, purpose, status, requested_at, granted_at, expires_at, revoked_at
		FROM consent_records
		WHERE guard_id = $1
		ORDER BY purpose
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, uuid.UUID(guardID))
	if err != nil {
		return nil, fmt.Errorf("list consent records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, guardID id.GuardID, purpose id.ConsentPurpose, status Status, at time.Time) error {
	var query string
	args := []any{uuid.UUID(guardID), string(purpose), string(status)}
	switch status {
	case StatusGranted:
		query = `UPDATE consent_records SET status = $3, granted_at = $4, revoked_at = NULL WHERE guard_id = $1 AND purpose = $2`
		args = append(args, at)
	case StatusRevoked:
		query = `UPDATE consent_records SET status = $3, revoked_at = $4 WHERE guard_id = $1 AND purpose = $2`
		args = append(args, at)
	default:
		query = `UPDATE consent_records SET status = $3 WHERE guard_id = $1 AND purpose = $2`
	}
	res, err := s.querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update consent status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consent status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		record  Record
		guardID uuid.UUID
		orgID   uuid.UUID
		purpose string
		status  string
	)
	err := row.Scan(&guardID, &orgID, &purpose, &status,
		&record.RequestedAt, &record.GrantedAt, &record.ExpiresAt, &record.RevokedAt)
	if err != nil {
		return Record{}, err
	}
	record.GuardID = id.GuardID(guardID)
	record.OrganizationID = id.OrganizationID(orgID)
	record.Purpose = id.ConsentPurpose(purpose)
	record.Status = Status(status)
	return record, nil
}
