// Package config loads the storefront configuration from config/storefront.yaml
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/corner-store/storefront/pkg/logger"
)

// Duration is a time.Duration that unmarshals from "30s"-style strings in
// both YAML and environment variables.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.Decode(raw)
}

// Decode implements envdecode.Decoder.
func (d *Duration) Decode(raw string) error {
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr" env:"STOREFRONT_ADDR"`
	ReadTimeout     Duration `yaml:"read_timeout" env:"STOREFRONT_READ_TIMEOUT"`
	WriteTimeout    Duration `yaml:"write_timeout" env:"STOREFRONT_WRITE_TIMEOUT"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" env:"STOREFRONT_SHUTDOWN_TIMEOUT"`
}

// FeedConfig controls the market data feed.
type FeedConfig struct {
	URL      string   `yaml:"url" env:"STOREFRONT_FEED_URL"`
	Currency string   `yaml:"currency" env:"STOREFRONT_FEED_CURRENCY"`
	PerPage  int      `yaml:"per_page" env:"STOREFRONT_FEED_PER_PAGE"`
	APIKey   string   `yaml:"api_key" env:"STOREFRONT_FEED_API_KEY"`
	Schedule string   `yaml:"schedule" env:"STOREFRONT_FEED_SCHEDULE"`
	Timeout  Duration `yaml:"timeout" env:"STOREFRONT_FEED_TIMEOUT"`
}

// RateLimitConfig controls per-client request throttling.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"STOREFRONT_RATE_RPS"`
	Burst             int `yaml:"burst" env:"STOREFRONT_RATE_BURST"`
}

// CORSConfig controls cross-origin access.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"STOREFRONT_CORS_ORIGINS"`
}

// SessionConfig controls session lifecycle.
type SessionConfig struct {
	MaxIdle Duration `yaml:"max_idle" env:"STOREFRONT_SESSION_MAX_IDLE"`
}

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Feed      FeedConfig           `yaml:"feed"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	RateLimit RateLimitConfig      `yaml:"rate_limit"`
	CORS      CORSConfig           `yaml:"cors"`
	Session   SessionConfig        `yaml:"session"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Feed: FeedConfig{
			URL:      "https://api.coingecko.com/api/v3/coins/markets",
			Currency: "usd",
			PerPage:  20,
			Schedule: "@every 30s",
			Timeout:  Duration(10 * time.Second),
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Session: SessionConfig{
			MaxIdle: Duration(time.Hour),
		},
	}
}

// Load reads config/storefront.yaml when present and applies environment
// variable overrides on top of the defaults.
func Load() (Config, error) {
	return LoadFromPath(filepath.Join("config", "storefront.yaml"))
}

// LoadFromPath loads the configuration from a specific file path. A missing
// file is not an error; defaults and environment overrides still apply.
func LoadFromPath(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return Config{}, fmt.Errorf("apply environment overrides: %w", err)
	}

	return cfg, nil
}
