package tracking

import (
	"context"
	"sort"
	"sync"
	"time"

	id "securyflex/pkg/domain"
	"securyflex/pkg/platform/sentinel"
)

// InMemoryStateStore keeps guard location records in process memory with local
// fan-out. Used in tests and when Redis is not configured.
type InMemoryStateStore struct {
	mu        sync.RWMutex
	records   map[id.GuardID]GuardLocationRecord
	guardSubs map[id.GuardID][]chan GuardLocationRecord
	orgSubs   map[id.OrganizationID][]chan []GuardLocationRecord
	now       func() time.Time
}

// InMemoryOption configures an InMemoryStateStore.
type InMemoryOption func(*InMemoryStateStore)

// WithStateClock injects a deterministic time source for expiry tests.
func WithStateClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStateStore) { s.now = now }
}

func NewInMemoryStateStore(opts ...InMemoryOption) *InMemoryStateStore {
	s := &InMemoryStateStore{
		records:   make(map[id.GuardID]GuardLocationRecord),
		guardSubs: make(map[id.GuardID][]chan GuardLocationRecord),
		orgSubs:   make(map[id.OrganizationID][]chan []GuardLocationRecord),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStateStore) Upsert(_ context.Context, record GuardLocationRecord, ttl time.Duration) error {
	s.mu.Lock()
	record.ExpiresAt = s.now().Add(ttl)
	s.records[record.GuardID] = record

	guardChans := append([]chan GuardLocationRecord(nil), s.guardSubs[record.GuardID]...)
	orgChans := append([]chan []GuardLocationRecord(nil), s.orgSubs[record.OrganizationID]...)
	roster := s.listLocked(record.OrganizationID)
	s.mu.Unlock()

	for _, ch := range guardChans {
		select {
		case ch <- record:
		default:
		}
	}
	for _, ch := range orgChans {
		select {
		case ch <- roster:
		default:
		}
	}
	return nil
}

func (s *InMemoryStateStore) Get(_ context.Context, guardID id.GuardID) (GuardLocationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[guardID]
	if !ok || s.now().After(record.ExpiresAt) {
		return GuardLocationRecord{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStateStore) ListByOrganization(_ context.Context, orgID id.OrganizationID) ([]GuardLocationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(orgID), nil
}

func (s *InMemoryStateStore) listLocked(orgID id.OrganizationID) []GuardLocationRecord {
	now := s.now()
	var out []GuardLocationRecord
	for _, record := range s.records {
		if record.OrganizationID == orgID && !now.After(record.ExpiresAt) {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GuardID.String() < out[j].GuardID.String()
	})
	return out
}

func (s *InMemoryStateStore) Subscribe(ctx context.Context, guardID id.GuardID) (<-chan GuardLocationRecord, error) {
	ch := make(chan GuardLocationRecord, 16)
	s.mu.Lock()
	s.guardSubs[guardID] = append(s.guardSubs[guardID], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		subs := s.guardSubs[guardID]
		for i, candidate := range subs {
			if candidate == ch {
				s.guardSubs[guardID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (s *InMemoryStateStore) SubscribeOrganization(ctx context.Context, orgID id.OrganizationID) (<-chan []GuardLocationRecord, error) {
	ch := make(chan []GuardLocationRecord, 16)
	s.mu.Lock()
	s.orgSubs[orgID] = append(s.orgSubs[orgID], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		subs := s.orgSubs[orgID]
		for i, candidate := range subs {
			if candidate == ch {
				s.orgSubs[orgID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
