// Package config reads runtime settings from the environment. A .env file in
// the working directory, when present, is loaded first and never overrides
// variables already set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "scholarops/pkg/platform/strings"
)

// Config is the full runtime configuration.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	// LockTimeout bounds waiting for an interviewer's calendar.
	LockTimeout time.Duration
	// EndorsementConcurrency bounds parallel endorsements within one batch.
	EndorsementConcurrency int
}

// DatabaseConfig configures Postgres. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the distributed calendar lock. An empty URL keeps
// the in-process lock.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LeaseTTL     time.Duration
}

// KafkaConfig configures the notification publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// Load reads envFile if it exists, then the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []string
	r := reader{errs: &errs}

	cfg := Config{
		Server: Server{
			Addr:                   r.str("SCHOLAROPS_ADDR", ":8080"),
			LogLevel:               r.str("LOG_LEVEL", "info"),
			LogFormat:              r.str("LOG_FORMAT", "json"),
			ShutdownTimeout:        r.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
			LockTimeout:            r.duration("SCHEDULER_LOCK_TIMEOUT", 5*time.Second),
			EndorsementConcurrency: r.integer("ENDORSEMENT_CONCURRENCY", 4),
		},
		Database: DatabaseConfig{
			URL:             r.str("DATABASE_URL", ""),
			MaxOpenConns:    r.integer("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    r.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: r.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			LeaseTTL:     r.duration("REDIS_LOCK_LEASE_TTL", 15*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:  r.list("KAFKA_BROKERS"),
			Topic:    r.str("KAFKA_NOTIFICATION_TOPIC", "scholarops.notifications"),
			ClientID: r.str("KAFKA_CLIENT_ID", "scholarops"),
		},
	}

	if cfg.Server.EndorsementConcurrency < 1 {
		errs = append(errs, "ENDORSEMENT_CONCURRENCY must be at least 1")
	}
	if cfg.Server.LockTimeout <= 0 {
		errs = append(errs, "SCHEDULER_LOCK_TIMEOUT must be positive")
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

type reader struct {
	errs *[]string
}

func (r reader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r reader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*r.errs = append(*r.errs, key+" must be an integer")
		return def
	}
	return n
}

func (r reader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*r.errs = append(*r.errs, key+" must be a duration such as 5s")
		return def
	}
	return d
}

func (r reader) list(key string) []string {
	return platformstrings.SplitList(os.Getenv(key), ",")
}
