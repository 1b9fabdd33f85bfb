package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Discord configuration
	Token   string `env:"DISCORD_TOKEN"`
	AppID   string `env:"APP_ID"`
	GuildID string `env:"GUILD_ID"`

	// Resource paths
	DataDir      string `env:"DATA_DIR"`
	DatabasePath string `env:"DATABASE_PATH"`
	SessionPath  string `env:"SESSION_PATH"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development" or "production"
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`

	// Sessions for multi-step games (hangman, quiz, guess)
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"10m"`

	// Per-user interaction limiter
	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" envDefault:"2"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" envDefault:"5"`

	MaintenanceInterval time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"1m"`

	Elasticsearch ElasticsearchConfig
}

// ElasticsearchConfig configures the optional analytics sink
type ElasticsearchConfig struct {
	Enabled         bool          `env:"ES_ENABLED" envDefault:"false"`
	URL             string        `env:"ES_URL" envDefault:"http://localhost:9200"`
	Username        string        `env:"ES_USERNAME"`
	Password        string        `env:"ES_PASSWORD"`
	IndexPrefix     string        `env:"ES_INDEX_PREFIX" envDefault:"helpybot"`
	RotationPeriod  time.Duration `env:"ES_ROTATION_PERIOD" envDefault:"720h"`
	RetentionPeriod time.Duration `env:"ES_RETENTION_PERIOD" envDefault:"2160h"`
}

// Load reads the configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv reads configuration without requiring Discord credentials.
// Used by tooling such as the migration command.
func LoadFromEnv() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Only return error if file exists but couldn't be loaded
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DataDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.DataDir = filepath.Join(wd, "data")
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "helpybot.db")
	}
	if cfg.SessionPath == "" {
		cfg.SessionPath = filepath.Join(cfg.DataDir, "sessions.json")
	}

	return cfg, nil
}

// validate checks if all required configuration is present
func (c *Config) validate() error {
	if c.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.AppID == "" {
		return fmt.Errorf("APP_ID is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.RateLimitPerSecond <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}
	if c.MaintenanceInterval <= 0 {
		return fmt.Errorf("MAINTENANCE_INTERVAL must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
