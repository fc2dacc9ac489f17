package position

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"securyflex/internal/platform/config"
	"securyflex/internal/proximity"
	id "securyflex/pkg/domain"
	pkgerrors "securyflex/pkg/domain-errors"
)

// MQTT topic layout. The guard's device publishes position fixes to its own
// topic and retains its permission state so the engine can read it without a
// round trip to the device.
const (
	positionTopicFmt   = "securyflex/guards/%s/position"
	permissionTopicFmt = "securyflex/guards/%s/permission"
)

// positionPayload is the JSON structure devices publish.
type positionPayload struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
	Timestamp      string  `json:"timestamp"`
}

// MQTTSource consumes device position fixes from the platform's MQTT broker.
// One shared connection serves all guard subscriptions.
type MQTTSource struct {
	client mqtt.Client
	logger *slog.Logger

	mu   sync.Mutex
	last map[id.GuardID]Position
}

// NewMQTTSource connects to the broker. Returns nil if no broker is
// configured (the simulated source is used instead).
func NewMQTTSource(cfg config.MQTTConfig, logger *slog.Logger) (*MQTTSource, error) {
	if cfg.BrokerURL == "" {
		return nil, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetOrderMatters(true).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts = opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}

	return &MQTTSource{
		client: client,
		logger: logger,
		last:   make(map[id.GuardID]Position),
	}, nil
}

// Subscribe opens a position stream for one guard. The distance filter is
// applied broker-side in spirit but enforced here: fixes that moved less than
// the filter since the last emitted fix are dropped before they reach the
// pipeline.
func (s *MQTTSource) Subscribe(ctx context.Context, guardID id.GuardID, opts SubscribeOptions) (<-chan Position, error) {
	topic := fmt.Sprintf(positionTopicFmt, guardID)
	out := make(chan Position, 16)

	var lastEmitted *Position
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		pos, err := parsePayload(msg.Payload())
		if err != nil {
			s.logger.Warn("dropping malformed position payload",
				"guard_id", guardID,
				"error", err,
			)
			return
		}
		s.mu.Lock()
		s.last[guardID] = pos
		s.mu.Unlock()

		if lastEmitted != nil && opts.DistanceFilterMeters > 0 {
			moved := proximity.Haversine(lastEmitted.Latitude, lastEmitted.Longitude, pos.Latitude, pos.Longitude)
			if moved < float64(opts.DistanceFilterMeters) {
				return
			}
		}
		p := pos
		lastEmitted = &p
		select {
		case out <- pos:
		case <-ctx.Done():
		default:
			// Pipeline busy; the poll fallback will pick up the latest fix.
		}
	}

	if token := s.client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	go func() {
		<-ctx.Done()
		if token := s.client.Unsubscribe(topic); token.Wait() && token.Error() != nil {
			s.logger.Warn("mqtt unsubscribe failed", "topic", topic, "error", token.Error())
		}
		close(out)
	}()

	return out, nil
}

// Current returns the most recent fix seen for the guard. The broker retains
// the last position per topic, so after Subscribe there is usually one.
func (s *MQTTSource) Current(_ context.Context, guardID id.GuardID) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.last[guardID]
	if !ok {
		return Position{}, pkgerrors.New(pkgerrors.CodePositionFetchFailed, "no position received yet")
	}
	return pos, nil
}

// HasLocationPermission implements PermissionChecker by reading the device's
// retained permission message.
func (s *MQTTSource) HasLocationPermission(ctx context.Context, guardID id.GuardID) (bool, error) {
	topic := fmt.Sprintf(permissionTopicFmt, guardID)
	result := make(chan bool, 1)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case result <- string(msg.Payload()) == "granted":
		default:
		}
	}
	if token := s.client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		return false, fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}
	defer s.client.Unsubscribe(topic)

	select {
	case granted := <-result:
		return granted, nil
	case <-time.After(5 * time.Second):
		// No retained message: the device never reported permission. Fail
		// closed and report it as a device-level denial.
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func parsePayload(data []byte) (Position, error) {
	var payload positionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Position{}, fmt.Errorf("unmarshal position: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		ts = time.Now()
	}
	return Position{
		Latitude:       payload.Latitude,
		Longitude:      payload.Longitude,
		AccuracyMeters: payload.AccuracyMeters,
		Timestamp:      ts,
	}, nil
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() {
	s.client.Disconnect(250)
}
