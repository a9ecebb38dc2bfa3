package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/babo/pkg/config"
)

// Breakdown store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all configuration for the babo agent.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"BABO_HTTP_PORT" envDefault:"8090"`

	// Upstream BABO service
	UpstreamURL     string        `env:"BABO_UPSTREAM_URL" envDefault:"http://localhost:8080"`
	UpstreamTimeout time.Duration `env:"BABO_UPSTREAM_TIMEOUT" envDefault:"10s"`
	UpstreamRetries int           `env:"BABO_UPSTREAM_RETRIES" envDefault:"2"`

	// Circuit breaker settings for upstream calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Recommendation sessions idle out after this long.
	SessionTTL time.Duration `env:"BABO_SESSION_TTL" envDefault:"30m"`

	// Breakdown store: memory or redis
	BreakdownStore string `env:"BABO_BREAKDOWN_STORE" envDefault:"memory"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka. Events are disabled when no broker is listed.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Local API rate limiting. Zero disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// Slow command logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"200"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load babo config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants. Load calls it.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.UpstreamURL == "" {
		return fmt.Errorf("BABO_UPSTREAM_URL is required")
	}
	u, err := url.ParseRequestURI(c.UpstreamURL)
	if err != nil {
		return fmt.Errorf("invalid BABO_UPSTREAM_URL %q: %w", c.UpstreamURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("BABO_UPSTREAM_URL must use http or https, got %q", u.Scheme)
	}
	if c.UpstreamRetries < 0 {
		return fmt.Errorf("BABO_UPSTREAM_RETRIES must not be negative")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	switch c.BreakdownStore {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("BABO_BREAKDOWN_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, c.BreakdownStore)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("BABO_SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	return nil
}

// EventsEnabled reports whether a Kafka broker is configured.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
