package position

import (
	"context"
	"sync"

	"securyflex/internal/proximity"
	id "securyflex/pkg/domain"
	pkgerrors "securyflex/pkg/domain-errors"
)

// SimSource is a channel-backed position source for tests and local
// development. Feed pushes fixes; Subscribe applies the same distance filter
// the production source does, so filter semantics stay testable.
type SimSource struct {
	mu          sync.Mutex
	subscribers map[id.GuardID][]*simSubscription
	last        map[id.GuardID]Position
	permissions map[id.GuardID]bool
}

type simSubscription struct {
	ch       chan Position
	filter   int
	lastSent *Position
}

func NewSimSource() *SimSource {
	return &SimSource{
		subscribers: make(map[id.GuardID][]*simSubscription),
		last:        make(map[id.GuardID]Position),
		permissions: make(map[id.GuardID]bool),
	}
}

// SetPermission scripts the device permission state for a guard.
func (s *SimSource) SetPermission(guardID id.GuardID, granted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[guardID] = granted
}

// HasLocationPermission implements PermissionChecker.
func (s *SimSource) HasLocationPermission(_ context.Context, guardID id.GuardID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permissions[guardID], nil
}

// Feed delivers a fix to all of the guard's subscribers that pass their
// distance filters, and records it for Current.
func (s *SimSource) Feed(guardID id.GuardID, pos Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[guardID] = pos
	for _, sub := range s.subscribers[guardID] {
		if sub.lastSent != nil && sub.filter > 0 {
			moved := proximity.Haversine(sub.lastSent.Latitude, sub.lastSent.Longitude, pos.Latitude, pos.Longitude)
			if moved < float64(sub.filter) {
				continue
			}
		}
		p := pos
		sub.lastSent = &p
		select {
		case sub.ch <- pos:
		default:
			// Subscriber not keeping up; drop rather than block the feeder.
		}
	}
}

func (s *SimSource) Subscribe(ctx context.Context, guardID id.GuardID, opts SubscribeOptions) (<-chan Position, error) {
	s.mu.Lock()
	sub := &simSubscription{
		ch:     make(chan Position, 16),
		filter: opts.DistanceFilterMeters,
	}
	s.subscribers[guardID] = append(s.subscribers[guardID], sub)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		subs := s.subscribers[guardID]
		for i, candidate := range subs {
			if candidate == sub {
				s.subscribers[guardID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch, nil
}

func (s *SimSource) Current(_ context.Context, guardID id.GuardID) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.last[guardID]
	if !ok {
		return Position{}, pkgerrors.New(pkgerrors.CodePositionFetchFailed, "no position available")
	}
	return pos, nil
}
