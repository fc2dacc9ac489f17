package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all runtime configuration. FromEnv builds it from
// environment variables so main stays lean; every backend is optional and
// falls back to an in-memory implementation when unconfigured.
type Config struct {
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	MQTT     MQTTConfig
	Tracking TrackingConfig
	Consent  ConsentConfig
	Auth     AuthConfig
}

// HTTPConfig captures HTTP server level configuration.
type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// PostgresConfig holds the consent / work-location / audit outbox database
// settings. Empty DSN means Postgres is not configured.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds guard-location state store settings. Empty URL means
// Redis is not configured.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds audit event streaming settings. Empty brokers means the
// outbox worker is not started.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

// MQTTConfig holds the device position broker settings. Empty broker URL
// means the simulated position source is used.
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

// TrackingConfig carries the privacy engine's tunables. The defaults mirror
// the platform's production values; the near multiplier and poll interval are
// deliberately configuration, not business rules.
type TrackingConfig struct {
	// PollInterval drives the fallback timer that fires when the position
	// stream stalls.
	PollInterval time.Duration
	// FetchTimeout bounds a single one-shot position fetch; a late fetch is a
	// missed cycle, not a session failure.
	FetchTimeout time.Duration
	// StateTTL is the sliding auto-delete horizon for persisted guard
	// location records.
	StateTTL time.Duration
	// DistanceFilterMeters is the minimum movement before the stream emits a
	// new position. A privacy and battery control, applied at the source.
	DistanceFilterMeters int
	// NearMultiplier scales the geofence radius into the "near" band.
	NearMultiplier float64
	// MaxConsecutiveFailures bounds transient pipeline failures before the
	// session stops with a reason.
	MaxConsecutiveFailures int
}

// ConsentConfig holds consent lifetime settings. Zero TTL means grants stay
// valid until revoked.
type ConsentConfig struct {
	TTL time.Duration
}

// AuthConfig holds JWT verification settings for the HTTP surface.
type AuthConfig struct {
	JWTSigningKey string
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            envString("SECURYFLEX_ADDR", ":8080"),
			ShutdownTimeout: envDuration("SECURYFLEX_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxOpenConns:    envInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			TopicPrefix: envString("KAFKA_TOPIC_PREFIX", "securyflex.audit"),
		},
		MQTT: MQTTConfig{
			BrokerURL: os.Getenv("MQTT_BROKER_URL"),
			ClientID:  envString("MQTT_CLIENT_ID", "securyflex-tracker"),
			Username:  os.Getenv("MQTT_USERNAME"),
			Password:  os.Getenv("MQTT_PASSWORD"),
		},
		Tracking: TrackingConfig{
			PollInterval:           envDuration("TRACKING_POLL_INTERVAL", 5*time.Minute),
			FetchTimeout:           envDuration("TRACKING_FETCH_TIMEOUT", 30*time.Second),
			StateTTL:               envDuration("TRACKING_STATE_TTL", 24*time.Hour),
			DistanceFilterMeters:   envInt("TRACKING_DISTANCE_FILTER_METERS", 50),
			NearMultiplier:         envFloat("TRACKING_NEAR_MULTIPLIER", 2.0),
			MaxConsecutiveFailures: envInt("TRACKING_MAX_CONSECUTIVE_FAILURES", 5),
		},
		Consent: ConsentConfig{
			TTL: envDuration("CONSENT_TTL", 0),
		},
		Auth: AuthConfig{
			JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
