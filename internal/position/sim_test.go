package position

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "securyflex/pkg/domain"
	pkgerrors "securyflex/pkg/domain-errors"
)

func TestSimSourceDeliversFixes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := NewSimSource()
	guardID := id.NewGuardID()

	stream, err := source.Subscribe(ctx, guardID, SubscribeOptions{})
	require.NoError(t, err)

	source.Feed(guardID, Position{Latitude: 52.37, Longitude: 4.9})

	select {
	case pos := <-stream:
		assert.Equal(t, 52.37, pos.Latitude)
	case <-time.After(time.Second):
		t.Fatal("no fix delivered")
	}
}

func TestSimSourceDistanceFilter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := NewSimSource()
	guardID := id.NewGuardID()

	stream, err := source.Subscribe(ctx, guardID, SubscribeOptions{DistanceFilterMeters: 50})
	require.NoError(t, err)

	source.Feed(guardID, Position{Latitude: 52.3700, Longitude: 4.9})
	// Under 50m of movement, roughly 11m.
	source.Feed(guardID, Position{Latitude: 52.3701, Longitude: 4.9})
	// Well past the filter, roughly 110m from the first fix.
	source.Feed(guardID, Position{Latitude: 52.3710, Longitude: 4.9})

	var got []Position
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case pos := <-stream:
			got = append(got, pos)
		case <-timeout:
			t.Fatalf("expected 2 fixes, got %d", len(got))
		}
	}
	assert.Equal(t, 52.3700, got[0].Latitude)
	assert.Equal(t, 52.3710, got[1].Latitude)

	select {
	case pos := <-stream:
		t.Fatalf("unexpected extra fix: %+v", pos)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSimSourceCurrent(t *testing.T) {
	source := NewSimSource()
	guardID := id.NewGuardID()

	_, err := source.Current(context.Background(), guardID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodePositionFetchFailed))

	source.Feed(guardID, Position{Latitude: 1, Longitude: 2})
	pos, err := source.Current(context.Background(), guardID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pos.Latitude)
}

func TestSimSourcePermission(t *testing.T) {
	source := NewSimSource()
	guardID := id.NewGuardID()

	granted, err := source.HasLocationPermission(context.Background(), guardID)
	require.NoError(t, err)
	assert.False(t, granted)

	source.SetPermission(guardID, true)
	granted, err = source.HasLocationPermission(context.Background(), guardID)
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestSimSourceSubscriptionClosesWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := NewSimSource()

	stream, err := source.Subscribe(ctx, id.NewGuardID(), SubscribeOptions{})
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-stream:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("stream not closed after cancel")
	}
}
