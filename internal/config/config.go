// Package config provides environment-driven configuration for tenantguard.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL           Secret
	Port                  string
	ListenHost            string
	CORSOrigins           []string
	LogLevel              string
	AuditQueueSize        int
	ProvisionInterval     time.Duration
	ProvisionBatch        int
	EnableProvisionWorker bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:           Secret(envOrDefault("DATABASE_URL", "")),
		Port:                  envOrDefault("PORT", "3040"),
		ListenHost:            envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:              envOrDefault("LOG_LEVEL", "info"),
		EnableProvisionWorker: envOrDefault("ENABLE_PROVISION_WORKER", "true") == "true",
	}

	queueSize, err := strconv.Atoi(envOrDefault("AUDIT_QUEUE_SIZE", "1000"))
	if err != nil || queueSize < 1 {
		return nil, fmt.Errorf("AUDIT_QUEUE_SIZE must be a positive integer")
	}
	cfg.AuditQueueSize = queueSize

	interval, err := time.ParseDuration(envOrDefault("PROVISION_INTERVAL", "10s"))
	if err != nil || interval < time.Second {
		return nil, fmt.Errorf("PROVISION_INTERVAL must be a duration of at least 1s")
	}
	cfg.ProvisionInterval = interval

	batch, err := strconv.Atoi(envOrDefault("PROVISION_BATCH", "5"))
	if err != nil || batch < 1 || batch > 100 {
		return nil, fmt.Errorf("PROVISION_BATCH must be an integer between 1 and 100")
	}
	cfg.ProvisionBatch = batch

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func (c *Config) validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	return c.validateCORS()
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL must use postgres:// or postgresql:// scheme")
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be an integer between 1 and 65535")
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain a wildcard origin")
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains an invalid origin: %q", origin)
		}
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
