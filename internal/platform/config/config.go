// Package config builds process configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server binary needs at startup.
type Config struct {
	Addr     string
	LogLevel string

	// DatabaseURL selects the PostgreSQL directory store. Empty means the
	// in-memory store (local development and tests).
	DatabaseURL string

	Redis RedisConfig

	// JWTSigningKey signs and validates admin/login tokens.
	JWTSigningKey string
	TokenTTL      time.Duration

	// DirectoryCacheTTL bounds staleness of the public directory projection
	// when an invalidation is lost to a cache outage.
	DirectoryCacheTTL time.Duration

	Kafka KafkaConfig

	Bootstrap BootstrapConfig
}

// RedisConfig configures the directory cache backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit event sink.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// BootstrapConfig is the one-time top-authority seed. The seeder only acts
// when CreateOnStartup is set and zero authority rows exist.
type BootstrapConfig struct {
	CreateOnStartup bool
	Email           string
	Password        string
	FullName        string
	Department      string
}

// FromEnv reads configuration from the environment, applying development
// defaults where safe.
func FromEnv() Config {
	cfg := Config{
		Addr:              envOr("MEDICINEWEB_ADDR", ":8080"),
		LogLevel:          envOr("MEDICINEWEB_LOG_LEVEL", "info"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSigningKey:     envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:          envDurationOr("TOKEN_TTL", 24*time.Hour),
		DirectoryCacheTTL: envDurationOr("DIRECTORY_CACHE_TTL", 10*time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "medicineweb.audit"),
		},
		Bootstrap: BootstrapConfig{
			CreateOnStartup: os.Getenv("BOOTSTRAP_TOP_AUTHORITY") == "true",
			Email:           os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			Password:        os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
			FullName:        envOr("BOOTSTRAP_ADMIN_NAME", "Platform Administrator"),
			Department:      envOr("BOOTSTRAP_ADMIN_DEPARTMENT", "Operations"),
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
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
