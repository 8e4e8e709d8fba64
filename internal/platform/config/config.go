// Package config builds process configuration from environment variables so
// main stays lean. Every knob has a development default; production overrides
// them via the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the PostgreSQL case store. Empty means the
	// in-memory store (development and tests).
	DatabaseURL string

	// PolicyFile optionally overrides the compiled-in policy tables.
	PolicyFile string

	// ReviewRetryBudget bounds the optimistic-concurrency retry loop.
	ReviewRetryBudget int

	Redis RedisConfig
	Kafka KafkaConfig
}

// RedisConfig configures the optional pending-approvals cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// PendingTTL bounds staleness of cached pending-approver snapshots.
	PendingTTL time.Duration
}

// KafkaConfig configures the optional Kafka notifier. Empty brokers means
// notifications go to the log only.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:              envOr("REIMBLY_ADDR", ":8080"),
		JWTSigningKey:     envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		PolicyFile:        os.Getenv("REIMBLY_POLICY_FILE"),
		ReviewRetryBudget: envIntOr("REVIEW_RETRY_BUDGET", 5),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PendingTTL:   envDurationOr("PENDING_CACHE_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_NOTIFICATIONS_TOPIC", "reimbly.notifications"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
