package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// start.gg API
	APIKey     string        `envconfig:"STARTGG_API_KEY"`
	APIBaseURL string        `envconfig:"STARTGG_BASE_URL" default:"https://api.smash.gg/gql/alpha"`
	APITimeout time.Duration `envconfig:"STARTGG_TIMEOUT" default:"30s"`

	// API Rate Limiting
	RateLimitCalls    int           `envconfig:"RATE_LIMIT_CALLS" default:"80"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"60s"`
	RateLimitBackend  string        `envconfig:"RATE_LIMIT_BACKEND" default:"memory"`
	RateLimitRedisKey string        `envconfig:"RATE_LIMIT_REDIS_KEY" default:"smashrank:ratelimit"`

	// Retries
	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"8"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	RetryMaxDelay    time.Duration `envconfig:"RETRY_MAX_DELAY" default:"60s"`

	// Pagination
	SetsPerPage        int `envconfig:"SETS_PER_PAGE" default:"32"`
	TournamentsPerPage int `envconfig:"TOURNAMENTS_PER_PAGE" default:"200"`

	// Tournament searches and event whitelist (YAML), built-in defaults when empty
	SourcesFile string `envconfig:"SOURCES_FILE" default:""`

	// Snapshot
	SnapshotBackend           string `envconfig:"SNAPSHOT_BACKEND" default:"file"`
	SnapshotPath              string `envconfig:"SNAPSHOT_PATH" default:"onlynoobs.json"`
	SnapshotS3Bucket          string `envconfig:"SNAPSHOT_S3_BUCKET" default:""`
	SnapshotS3Key             string `envconfig:"SNAPSHOT_S3_KEY" default:"snapshots/onlynoobs.json"`
	SnapshotS3Endpoint        string `envconfig:"SNAPSHOT_S3_ENDPOINT" default:""`
	SnapshotS3Region          string `envconfig:"SNAPSHOT_S3_REGION" default:"auto"`
	SnapshotS3AccessKeyID     string `envconfig:"SNAPSHOT_S3_ACCESS_KEY_ID" default:""`
	SnapshotS3SecretAccessKey string `envconfig:"SNAPSHOT_S3_SECRET_ACCESS_KEY" default:""`

	// Redis (shared rate-limit window)
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Worker
	RefreshCron        string `envconfig:"REFRESH_CRON" default:"0 6 * * *"`
	InitialSyncEnabled bool   `envconfig:"INITIAL_SYNC_ENABLED" default:"true"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if one exists
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.RateLimitCalls <= 0 {
		return fmt.Errorf("RATE_LIMIT_CALLS must be positive, got %d", c.RateLimitCalls)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	switch c.RateLimitBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", c.RateLimitBackend)
	}

	if c.RetryMaxAttempts <= 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive, got %d", c.RetryMaxAttempts)
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("retry delays must satisfy 0 < RETRY_BASE_DELAY <= RETRY_MAX_DELAY")
	}

	if c.SetsPerPage <= 0 || c.TournamentsPerPage <= 0 {
		return fmt.Errorf("page sizes must be positive")
	}

	switch c.SnapshotBackend {
	case "file":
		if c.SnapshotPath == "" {
			return fmt.Errorf("SNAPSHOT_PATH is required for the file backend")
		}
	case "s3":
		if c.SnapshotS3Bucket == "" || c.SnapshotS3Key == "" {
			return fmt.Errorf("SNAPSHOT_S3_BUCKET and SNAPSHOT_S3_KEY are required for the s3 backend")
		}
	default:
		return fmt.Errorf("SNAPSHOT_BACKEND must be file or s3, got %q", c.SnapshotBackend)
	}

	return nil
}

// RequireAPIKey fails when no API key is configured. Binaries that call the
// API check it before building a client.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("STARTGG_API_KEY is required")
	}
	return nil
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or exits on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
