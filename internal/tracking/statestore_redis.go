package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "securyflex/pkg/domain"
	"securyflex/pkg/platform/sentinel"
)

// Redis key layout. The record key carries the sliding TTL so Redis itself
// enforces the 24-hour auto-delete; the org set is an index that is cleaned
// lazily when members have expired.
const (
	guardKeyPrefix     = "gloc:guard:"
	orgSetKeyPrefix    = "gloc:org:"
	guardChannelPrefix = "gloc:ch:guard:"
	orgChannelPrefix   = "gloc:ch:org:"
)

// RedisStateStore is the production guard location state backend. Pub/sub fan-out
// runs through Redis channels so every API instance sees every write.
type RedisStateStore struct {
	client *redis.Client
	now    func() time.Time
}

// RedisOption configures a RedisStateStore.
type RedisOption func(*RedisStateStore)

// WithRedisStateClock injects a deterministic time source for expiry tests.
func WithRedisStateClock(now func() time.Time) RedisOption {
	return func(s *RedisStateStore) { s.now = now }
}

func NewRedisStateStore(client *redis.Client, opts ...RedisOption) *RedisStateStore {
	s := &RedisStateStore{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func guardKey(guardID id.GuardID) string       { return guardKeyPrefix + guardID.String() }
func orgSetKey(orgID id.OrganizationID) string { return orgSetKeyPrefix + orgID.String() }

// Upsert writes the record with a fresh TTL and publishes the change. The
// publish happens only after the write succeeds: subscribers never see state
// that is not durably stored.
func (s *RedisStateStore) Upsert(ctx context.Context, record GuardLocationRecord, ttl time.Duration) error {
	record.ExpiresAt = s.now().Add(ttl)
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal guard location record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, guardKey(record.GuardID), payload, ttl)
	pipe.SAdd(ctx, orgSetKey(record.OrganizationID), record.GuardID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert guard location record: %w", err)
	}

	// Fan-out after the write. A failed publish loses one notification, not
	// state; subscribers recover on the next update.
	s.client.Publish(ctx, guardChannelPrefix+record.GuardID.String(), payload)
	s.client.Publish(ctx, orgChannelPrefix+record.OrganizationID.String(), record.GuardID.String())
	return nil
}

func (s *RedisStateStore) Get(ctx context.Context, guardID id.GuardID) (GuardLocationRecord, error) {
	payload, err := s.client.Get(ctx, guardKey(guardID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return GuardLocationRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return GuardLocationRecord{}, fmt.Errorf("get guard location record: %w", err)
	}
	var record GuardLocationRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return GuardLocationRecord{}, fmt.Errorf("unmarshal guard location record: %w", err)
	}
	return record, nil
}

func (s *RedisStateStore) ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]GuardLocationRecord, error) {
	members, err := s.client.SMembers(ctx, orgSetKey(orgID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list organization guards: %w", err)
	}
	var records []GuardLocationRecord
	for _, member := range members {
		guardID, err := id.ParseGuardID(member)
		if err != nil {
			continue
		}
		record, err := s.Get(ctx, guardID)
		if errors.Is(err, sentinel.ErrNotFound) {
			// Record expired; drop the stale index entry.
			s.client.SRem(ctx, orgSetKey(orgID), member)
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *RedisStateStore) Subscribe(ctx context.Context, guardID id.GuardID) (<-chan GuardLocationRecord, error) {
	sub := s.client.Subscribe(ctx, guardChannelPrefix+guardID.String())
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe to guard channel: %w", err)
	}

	out := make(chan GuardLocationRecord, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var record GuardLocationRecord
				if err := json.Unmarshal([]byte(msg.Payload), &record); err != nil {
					continue
				}
				select {
				case out <- record:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStateStore) SubscribeOrganization(ctx context.Context, orgID id.OrganizationID) (<-chan []GuardLocationRecord, error) {
	sub := s.client.Subscribe(ctx, orgChannelPrefix+orgID.String())
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe to organization channel: %w", err)
	}

	out := make(chan []GuardLocationRecord, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				roster, err := s.ListByOrganization(ctx, orgID)
				if err != nil {
					continue
				}
				select {
				case out <- roster:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
