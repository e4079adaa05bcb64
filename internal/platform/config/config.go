// Package config loads the daemon configuration from EID_* environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const Prefix = "EID_"

// Audit backends.
const (
	AuditMemory   = "memory"
	AuditRedis    = "redis"
	AuditPostgres = "postgres"
	AuditKafka    = "kafka"
)

type Config struct {
	HTTP     HTTP        `envPrefix:"HTTP_"`
	Kernel   Kernel      `envPrefix:"KERNEL_"`
	Session  Session     `envPrefix:"SESSION_"`
	Log      Log         `envPrefix:"LOG_"`
	Audit    Audit       `envPrefix:"AUDIT_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Postgres Postgres    `envPrefix:"POSTGRES_"`
	Kafka    Kafka       `envPrefix:"KAFKA_"`
	OTel     OTel        `envPrefix:"OTEL_"`
}

// HTTP configures the local UI bridge.
type HTTP struct {
	Addr              string        `env:"ADDR" envDefault:"127.0.0.1:8080"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Kernel locates the identity engine's SDK endpoint.
type Kernel struct {
	URL         string        `env:"URL" envDefault:"ws://127.0.0.1:24727/eID-Kernel"`
	Origin      string        `env:"ORIGIN" envDefault:"http://127.0.0.1"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
}

type Session struct {
	Debounce         time.Duration `env:"DEBOUNCE" envDefault:"300ms"`
	MailboxSize      int           `env:"MAILBOX_SIZE" envDefault:"64"`
	SubscriberBuffer int           `env:"SUBSCRIBER_BUFFER" envDefault:"16"`
}

type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

type Audit struct {
	Backend string `env:"BACKEND" envDefault:"memory"`
	// AsyncBuffer of zero writes events synchronously.
	AsyncBuffer int `env:"ASYNC_BUFFER" envDefault:"256"`
	// The store is skipped after BreakerThreshold consecutive failures and
	// probed again every BreakerCooldown.
	BreakerThreshold int           `env:"BREAKER_THRESHOLD" envDefault:"5"`
	BreakerCooldown  time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
}

type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
	Retention    time.Duration `env:"RETENTION" envDefault:"720h"`
}

type Postgres struct {
	DSN             string        `env:"DSN"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"5"`
	Retention       time.Duration `env:"RETENTION" envDefault:"720h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"eid.audit"`
}

// OTel enables span export over OTLP/HTTP when Enabled and Endpoint are set.
type OTel struct {
	Enabled     bool   `env:"ENABLED" envDefault:"false"`
	Endpoint    string `env:"ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"eidgate"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.Audit.Backend = strings.ToLower(strings.TrimSpace(c.Audit.Backend))
	switch c.Audit.Backend {
	case AuditMemory:
	case AuditRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("%sREDIS_URL is required for the redis audit backend", Prefix)
		}
	case AuditPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("%sPOSTGRES_DSN is required for the postgres audit backend", Prefix)
		}
		if c.Postgres.CleanupInterval <= 0 {
			return fmt.Errorf("postgres cleanup interval must be positive")
		}
	case AuditKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("%sKAFKA_BROKERS is required for the kafka audit backend", Prefix)
		}
	default:
		return fmt.Errorf("unknown audit backend %q", c.Audit.Backend)
	}

	if c.Session.Debounce < 0 {
		return fmt.Errorf("session debounce must not be negative")
	}
	if c.Session.MailboxSize < 1 {
		return fmt.Errorf("session mailbox size must be positive")
	}
	if c.Audit.AsyncBuffer < 0 {
		return fmt.Errorf("audit async buffer must not be negative")
	}
	return nil
}
