package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
)

// Session persistence backends.
const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// BFF server (artfy serve)
	Port     int
	LogLevel string

	// Backend API
	APIURL string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Outbound rate limit
	RateLimitRPS   float64
	RateLimitBurst int

	// Cache
	CatalogCacheTTL time.Duration
	DraftTTL        time.Duration

	// Session persistence
	SessionBackend string
	SessionFile    string
	SessionSecret  string
	RedisURL       string
	RedisKeyPrefix string

	// Observability
	OTLPEndpoint   string
	TracingEnabled bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     env.GetInt("PORT", 8787),
		LogLevel: env.GetString("LOG_LEVEL", "warn"),

		APIURL: env.GetString("ARTFY_API_URL", "http://localhost:3000"),

		HTTPTimeout: env.GetDuration("HTTP_TIMEOUT", 10, time.Second),

		MaxRetries:     env.GetInt("MAX_RETRIES", 2),
		InitialBackoff: env.GetDuration("INITIAL_BACKOFF", 100, time.Millisecond),
		MaxConcurrency: env.GetInt("MAX_CONCURRENCY", 16),

		RateLimitRPS:   env.GetFloat64("RATE_LIMIT_RPS", 10.0),
		RateLimitBurst: env.GetInt("RATE_LIMIT_BURST", 20),

		CatalogCacheTTL: env.GetDuration("CATALOG_CACHE_TTL", 300, time.Second),
		DraftTTL:        env.GetDuration("DRAFT_TTL", 30, time.Minute),

		SessionBackend: env.GetString("SESSION_BACKEND", SessionBackendFile),
		SessionFile:    env.GetString("SESSION_FILE", defaultSessionFile()),
		SessionSecret:  env.GetString("SESSION_SECRET", ""),
		RedisURL:       env.GetString("REDIS_URL", "redis://localhost:6379/0"),
		RedisKeyPrefix: env.GetString("REDIS_KEY_PREFIX", "artfy:session:"),

		OTLPEndpoint:   env.GetString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: env.GetBool("TRACING_ENABLED", false),
	}
}

// Validate rejects configurations the client cannot start with.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIURL, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.SessionBackend,
			validation.Required,
			validation.In(SessionBackendFile, SessionBackendRedis, SessionBackendMemory),
		),
		validation.Field(&c.SessionFile,
			validation.When(c.SessionBackend == SessionBackendFile, validation.Required),
		),
		validation.Field(&c.RedisURL,
			validation.When(c.SessionBackend == SessionBackendRedis, validation.Required),
		),
		validation.Field(&c.HTTPTimeout, validation.Required),
		validation.Field(&c.CatalogCacheTTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.DraftTTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.MaxRetries, validation.Min(0)),
		validation.Field(&c.RateLimitRPS, validation.Min(0.0)),
	)
}

// defaultSessionFile places the session next to other per-user settings,
// falling back to the working directory when no config dir is known.
func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "artfy-session.json"
	}
	return filepath.Join(dir, "artfy", "session.json")
}
