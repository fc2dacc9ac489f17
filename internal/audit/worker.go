package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"securyflex/internal/platform/kafka"
)

// OutboxWorker drains the audit_outbox table and publishes entries to Kafka,
// one topic per event category. Kafka consumers downstream feed compliance
// archiving and operational dashboards. At-least-once: an entry is deleted
// only after the broker acknowledges it, so consumers must dedupe on event ID.
type OutboxWorker struct {
	db          *sql.DB
	producer    *kafka.Producer
	topicPrefix string
	interval    time.Duration
	batchSize   int
	logger      *slog.Logger
}

func NewOutboxWorker(db *sql.DB, producer *kafka.Producer, topicPrefix string, logger *slog.Logger) *OutboxWorker {
	return &OutboxWorker{
		db:          db,
		producer:    producer,
		topicPrefix: topicPrefix,
		interval:    time.Second,
		batchSize:   100,
		logger:      logger,
	}
}

// Topics returns the topics this worker publishes to, for startup provisioning.
func Topics(prefix string) []string {
	return []string{
		prefix + "." + string(CategoryCompliance),
		prefix + "." + string(CategoryOperations),
	}
}

// Run drains the outbox until the context is cancelled, then returns nil:
// cancellation is the normal shutdown path, not a failure. Transient publish
// failures leave entries in place for the next tick.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.drainBatch(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

type outboxEntry struct {
	id       string
	category string
	eventID  string
	payload  []byte
}

func (w *OutboxWorker) drainBatch(ctx context.Context) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, event_id, category, payload
		FROM audit_outbox
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, w.batchSize)
	if err != nil {
		return fmt.Errorf("select outbox batch: %w", err)
	}

	var entries []outboxEntry
	for rows.Next() {
		var entry outboxEntry
		if err := rows.Scan(&entry.id, &entry.eventID, &entry.category, &entry.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate outbox batch: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	for _, entry := range entries {
		topic := w.topicPrefix + "." + entry.category
		if err := w.producer.Publish(ctx, topic, []byte(entry.eventID), entry.payload); err != nil {
			return fmt.Errorf("publish outbox entry %s: %w", entry.id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM audit_outbox WHERE id = $1`, entry.id); err != nil {
			return fmt.Errorf("delete outbox entry %s: %w", entry.id, err)
		}
	}
	return tx.Commit()
}
