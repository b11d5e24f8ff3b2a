// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	TrustedProxies string

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// DatabaseConfig selects and tunes the backing store. An empty URL selects
// the file-backed SQLite store at SQLitePath.
type DatabaseConfig struct {
	URL             string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig enables the pass cache when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
	// BreakerFailures consecutive Redis errors open the cache circuit for
	// BreakerCooldown.
	BreakerFailures int
	BreakerCooldown time.Duration
}

// KafkaConfig enables the event publisher when Brokers is set.
type KafkaConfig struct {
	Brokers         string
	Topic           string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

const (
	defaultPort           = "8000"
	defaultSQLitePath     = "dev.db"
	defaultTopic          = "passbook.registrations"
	defaultRequestTimeout = 10 * time.Second
	defaultMaxBodyBytes   = 64 * 1024
)

// FromEnv builds a Server config from environment variables so main stays lean.
// Malformed numeric or duration values are reported rather than ignored.
func FromEnv() (Server, error) {
	var p parser

	addr := os.Getenv("PASSBOOK_ADDR")
	if addr == "" {
		addr = ":" + envOr("PORT", defaultPort)
	}

	cfg := Server{
		Addr:           addr,
		Environment:    envOr("ENVIRONMENT", "development"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		RequestTimeout: p.duration("REQUEST_TIMEOUT", defaultRequestTimeout),
		MaxBodyBytes:   int64(p.int("MAX_BODY_BYTES", defaultMaxBodyBytes)),
		TrustedProxies: os.Getenv("TRUSTED_PROXIES"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			SQLitePath:      envOr("SQLITE_PATH", defaultSQLitePath),
			MaxOpenConns:    p.int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     p.duration("PASS_CACHE_TTL", time.Minute),

			BreakerFailures: p.int("PASS_CACHE_BREAKER_FAILURES", 5),
			BreakerCooldown: p.duration("PASS_CACHE_BREAKER_COOLDOWN", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			Topic:           envOr("KAFKA_TOPIC", defaultTopic),
			Acks:            envOr("KAFKA_ACKS", "all"),
			Retries:         p.int("KAFKA_RETRIES", 3),
			DeliveryTimeout: p.duration("KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
		},
	}

	if p.err != nil {
		return Server{}, p.err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser records the first malformed value it sees.
type parser struct {
	err error
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		p.fail(key, raw)
		return fallback
	}
	return d
}

func (p *parser) int(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		p.fail(key, raw)
		return fallback
	}
	return n
}

func (p *parser) fail(key, raw string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %q", key, raw)
	}
}
