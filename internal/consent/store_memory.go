package consent

import (
	"context"
	"sync"
	"time"

	id "securyflex/pkg/domain"
	"securyflex/pkg/platform/sentinel"
)

type consentKey struct {
	guardID id.GuardID
	purpose id.ConsentPurpose
}

// InMemoryStore keeps consent records in process memory. Used in tests and
// when Postgres is not configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[consentKey]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{consents: make(map[consentKey]Record)}
}

func (s *InMemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consents[consentKey{record.GuardID, record.Purpose}] = record
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, guardID id.GuardID, purpose id.ConsentPurpose) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.consents[consentKey{guardID, purpose}]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStore) ListByGuard(_ context.Context, guardID id.GuardID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []Record
	for key, record := range s.consents {
		if key.guardID == guardID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, guardID id.GuardID, purpose id.ConsentPurpose, status Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := consentKey{guardID, purpose}
	record, ok := s.consents[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.Status = status
	switch status {
	case StatusGranted:
		record.GrantedAt = &at
		record.RevokedAt = nil
	case StatusRevoked:
		record.RevokedAt = &at
	}
	s.consents[key] = record
	return nil
}
