package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "securyflex/pkg/domain"
	txcontext "securyflex/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events land in audit_events for querying and in the outbox table for the
// worker to publish to Kafka. Append-only: no update or delete statements.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event for proper deserialization by downstream consumers.
type outboxPayload struct {
	ID         string            `json:"ID"`
	Category   string            `json:"Category"`
	Timestamp  string            `json:"Timestamp"`
	GuardID    string            `json:"GuardID,omitempty"`
	Action     string            `json:"Action"`
	Decision   string            `json:"Decision,omitempty"`
	Reason     string            `json:"Reason,omitempty"`
	LegalBasis string            `json:"LegalBasis,omitempty"`
	RequestID  string            `json:"RequestID,omitempty"`
	Metadata   map[string]string `json:"Metadata,omitempty"`
}

// Append writes one audit event to audit_events and enqueues it on the
// outbox, atomically. A caller already carrying a transaction in ctx has both
// inserts join it; otherwise Append opens its own.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	if _, ok := txcontext.From(ctx); ok {
		return s.append(ctx, event)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer tx.Rollback()
	if err := s.append(txcontext.WithTx(ctx, tx), event); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) append(ctx context.Context, event Event) error {
	eventID := uuid.New()
	category := event.Action.Category()

	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, guard_id, action, category, decision, reason, legal_basis, request_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		uuid.UUID(event.GuardID),
		string(event.Action),
		string(category),
		event.Decision,
		event.Reason,
		string(event.LegalBasis),
		event.RequestID,
		metadata,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	payload := outboxPayload{
		ID:         eventID.String(),
		Category:   string(category),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		Action:     string(event.Action),
		Decision:   event.Decision,
		Reason:     event.Reason,
		LegalBasis: string(event.LegalBasis),
		RequestID:  event.RequestID,
		Metadata:   event.Metadata,
	}
	if !event.GuardID.IsNil() {
		payload.GuardID = event.GuardID.String()
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	outboxQuery := `
		INSERT INTO audit_outbox (id, event_id, category, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.execer(ctx).ExecContext(ctx, outboxQuery,
		uuid.New(),
		eventID,
		string(category),
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByGuard(ctx context.Context, guardID id.GuardID, from, to time.Time) ([]Event, error) {
	query := `
		SELECT guard_id, action, decision, reason, legal_basis, request_id, metadata, created_at
		FROM audit_events
		WHERE guard_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at
	`
	var fromArg, toArg any
	if !from.IsZero() {
		fromArg = from
	}
	if !to.IsZero() {
		toArg = to
	}
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(guardID), fromArg, toArg)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event    Event
			gid      uuid.UUID
			action   string
			basis    string
			metadata []byte
		)
		if err := rows.Scan(&gid, &action, &event.Decision, &event.Reason, &basis, &event.RequestID, &metadata, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.GuardID = id.GuardID(gid)
		event.Action = Action(action)
		event.LegalBasis = LegalBasis(basis)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
