package worklocation

import (
	"context"
	"sort"
	"sync"

	id "securyflex/pkg/domain"
	"securyflex/pkg/platform/sentinel"
)

// InMemoryStore keeps work locations in process memory.
type InMemoryStore struct {
	mu        sync.RWMutex
	locations map[string]WorkLocation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{locations: make(map[string]WorkLocation)}
}

// Put adds or replaces a work location. Test and seed helper; production
// administration happens in the main platform backend.
func (s *InMemoryStore) Put(location WorkLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[location.ID] = location
}

func (s *InMemoryStore) ListByOrganization(_ context.Context, orgID id.OrganizationID) ([]WorkLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []WorkLocation
	for _, location := range s.locations {
		if location.OrganizationID == orgID {
			out = append(out, location)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) Get(_ context.Context, locationID string) (WorkLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	location, ok := s.locations[locationID]
	if !ok {
		return WorkLocation{}, sentinel.ErrNotFound
	}
	return location, nil
}
