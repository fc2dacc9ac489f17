// Package position abstracts the device location feed. Production positions
// arrive over MQTT from the guard's phone; tests and local runs use the
// channel-backed simulated source. No engine logic may depend on which
// implementation is active.
package position

import (
	"context"
	"time"

	id "securyflex/pkg/domain"
)

// Accuracy is a hint to the device about how precise a fix needs to be.
// The engine always requests reduced accuracy: street-level fixes are enough
// for proximity banding and anything finer is a privacy liability.
type Accuracy string

const (
	AccuracyReduced Accuracy = "reduced"
	AccuracyFull    Accuracy = "full"
)

// Position is one raw device fix. It lives only inside the update pipeline.
type Position struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	Timestamp      time.Time
}

// SubscribeOptions configure a position stream.
type SubscribeOptions struct {
	Accuracy Accuracy
	// DistanceFilterMeters is the minimum movement before the stream emits.
	// A privacy and battery control, not an optimization: it caps the
	// resolution of the movement trail that ever reaches the engine.
	DistanceFilterMeters int
}

// Source produces device positions for one guard.
type Source interface {
	// Subscribe opens a position stream. The channel closes when ctx is
	// cancelled or the underlying feed ends.
	Subscribe(ctx context.Context, guardID id.GuardID, opts SubscribeOptions) (<-chan Position, error)
	// Current fetches a one-shot position, used by the polling fallback.
	Current(ctx context.Context, guardID id.GuardID) (Position, error)
}

// PermissionChecker reports whether the device-level location permission is
// granted. Distinct from consent: a guard may consent while the device
// refuses to share positions, and the two failures surface differently.
type PermissionChecker interface {
	HasLocationPermission(ctx context.Context, guardID id.GuardID) (bool, error)
}
