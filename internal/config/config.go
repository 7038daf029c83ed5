package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the forecasting client.
// Environment variables are parsed from the CALMCAST_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// Backend the wellness API lives on
	APIBase       string        `envconfig:"API_BASE" default:"http://localhost:8000/api"`
	RemoteTimeout time.Duration `envconfig:"REMOTE_TIMEOUT" default:"10s"`
	DebugHTTP     bool          `envconfig:"DEBUG_HTTP" default:"false"`

	// Durable local state
	DBPath string `envconfig:"DB_PATH" default:"./data/calmcast.db"`

	// Ephemeral same-day manual edit cache
	SessionCacheSize int           `envconfig:"SESSION_CACHE_SIZE" default:"64"`
	SessionCacheTTL  time.Duration `envconfig:"SESSION_CACHE_TTL" default:"24h"`

	// Remote sync executor
	SyncShards      int `envconfig:"SYNC_SHARDS" default:"2"`
	SyncMaxAttempts int `envconfig:"SYNC_MAX_ATTEMPTS" default:"4"`

	// Tool server
	HTTPHost string `envconfig:"HTTP_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8011"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Validate rejects values the components cannot work with.
func (c *Config) Validate() error {
	if c.APIBase == "" {
		return fmt.Errorf("API_BASE must be set")
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be > 0, got %s", c.RemoteTimeout)
	}
	if c.SessionCacheSize <= 0 {
		return fmt.Errorf("SESSION_CACHE_SIZE must be > 0, got %d", c.SessionCacheSize)
	}
	if c.SyncMaxAttempts <= 0 {
		return fmt.Errorf("SYNC_MAX_ATTEMPTS must be > 0, got %d", c.SyncMaxAttempts)
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Example: CALMCAST_API_BASE, CALMCAST_REMOTE_TIMEOUT
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CALMCAST", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("environment", string(cfg.Environment)).
		Str("api_base", cfg.APIBase).
		Dur("remote_timeout", cfg.RemoteTimeout).
		Str("db_path", cfg.DBPath).
		Int("sync_shards", cfg.SyncShards).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:      EnvTesting,
		APIBase:          "http://localhost:8000/api",
		RemoteTimeout:    2 * time.Second,
		DBPath:           ":memory:",
		SessionCacheSize: 8,
		SessionCacheTTL:  time.Hour,
		SyncShards:       1,
		SyncMaxAttempts:  2,
		HTTPHost:         "127.0.0.1",
		HTTPPort:         0,
		LogLevel:         "debug",
	}
}

// GetHTTPAddr returns the tool server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}
