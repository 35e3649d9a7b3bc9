// Package common provides shared utilities for the portfolio sync service.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the service.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Clients     ClientsConfig  `toml:"clients"`
	Logging     LoggingConfig  `toml:"logging"`
	Auth        AuthConfig     `toml:"auth"`
	Snapshot    SnapshotConfig `toml:"snapshot"`
	Cache       CacheConfig    `toml:"cache"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds path configuration for the storage areas.
type StorageConfig struct {
	Internal AreaConfig `toml:"internal"` // Broker sessions + system KV (BadgerHold)
	Ledger   AreaConfig `toml:"ledger"`   // Holdings, sync log, MF data, snapshots (BadgerHold)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Kite      KiteConfig      `toml:"kite"`
	MFCentral MFCentralConfig `toml:"mfcentral"`
}

// KiteConfig holds broker OAuth API configuration.
type KiteConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *KiteConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// MFCentralConfig holds statement-provider API configuration.
type MFCentralConfig struct {
	BaseURL      string `toml:"base_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RateLimit    int    `toml:"rate_limit"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *MFCentralConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// AuthConfig holds bearer-token and OAuth state-token configuration.
type AuthConfig struct {
	JWTSecret        string `toml:"jwt_secret"`
	StateTokenExpiry string `toml:"state_token_expiry"` // duration string, default "10m"
}

// GetStateTokenExpiry parses and returns the OAuth state token expiry.
func (c *AuthConfig) GetStateTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.StateTokenExpiry)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// SnapshotConfig holds snapshot-capture configuration.
type SnapshotConfig struct {
	CaptureSecret string `toml:"capture_secret"` // shared secret for POST /api/snapshots/capture
	Schedule      string `toml:"schedule"`       // cron spec for the daily capture job
}

// CacheConfig holds the local snapshot cache configuration.
type CacheConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Internal: AreaConfig{Path: "data/internal"},
			Ledger:   AreaConfig{Path: "data/ledger"},
		},
		Clients: ClientsConfig{
			Kite: KiteConfig{
				BaseURL:   "https://api.kite.trade",
				RateLimit: 3,
				Timeout:   "30s",
			},
			MFCentral: MFCentralConfig{
				BaseURL:   "https://api.mfcentral.com",
				RateLimit: 2,
				Timeout:   "60s",
			},
		},
		Auth: AuthConfig{
			JWTSecret:        "dev-jwt-secret-change-in-production",
			StateTokenExpiry: "10m",
		},
		Snapshot: SnapshotConfig{
			Schedule: "0 30 18 * * *", // daily, after market close
		},
		Cache: CacheConfig{
			Path: "data/cache",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("BLEND_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("BLEND_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("BLEND_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("BLEND_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("BLEND_DATA_PATH"); path != "" {
		config.Storage.Internal.Path = path + "/internal"
		config.Storage.Ledger.Path = path + "/ledger"
		config.Cache.Path = path + "/cache"
	}

	if v := os.Getenv("BLEND_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		config.Clients.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_API_SECRET"); v != "" {
		config.Clients.Kite.APISecret = v
	}
	if v := os.Getenv("MFCENTRAL_CLIENT_ID"); v != "" {
		config.Clients.MFCentral.ClientID = v
	}
	if v := os.Getenv("MFCENTRAL_CLIENT_SECRET"); v != "" {
		config.Clients.MFCentral.ClientSecret = v
	}
	if v := os.Getenv("BLEND_CAPTURE_SECRET"); v != "" {
		config.Snapshot.CaptureSecret = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
