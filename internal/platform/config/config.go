// Package config centralises environment-driven configuration so main stays
// lean. Every backing service is optional: an unset URL selects the
// in-memory implementation, which keeps local development dependency-free.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Database configures the Postgres stores. An empty URL selects the
// in-memory stores.
type Database struct {
	URL string
}

// Redis configures the distributed draft lock. An empty URL selects the
// in-process lock.
type Redis struct {
	URL     string
	LockTTL time.Duration
}

// Kafka configures the audit trail publisher. No brokers selects the
// in-memory audit buffer.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// Config is the full application configuration.
type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	Kafka    Kafka
}

// FromEnv builds the configuration from environment variables.
func FromEnv() Config {
	addr := os.Getenv("EVIGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("EVIGATE_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	lockTTL := 30 * time.Second
	if raw := os.Getenv("EVIGATE_LOCK_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			lockTTL = d
		}
	}

	var brokers []string
	if raw := os.Getenv("EVIGATE_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	auditTopic := os.Getenv("EVIGATE_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "evigate.audit.v1"
	}

	return Config{
		Server: Server{
			Addr:          addr,
			JWTSigningKey: jwtSigningKey,
		},
		Database: Database{
			URL: os.Getenv("EVIGATE_DATABASE_URL"),
		},
		Redis: Redis{
			URL:     os.Getenv("EVIGATE_REDIS_URL"),
			LockTTL: lockTTL,
		},
		Kafka: Kafka{
			Brokers:    brokers,
			AuditTopic: auditTopic,
		},
	}
}
