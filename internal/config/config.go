package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	DBPath     string
	ImportPath string

	// Server settings
	ServerHost   string
	ServerPort   int
	MaxBodyBytes int64

	// Webhook settings
	WebhookSecret string
	OwnLogin      string

	// Bearer credential settings
	TokenSecret string
	TokenTTL    time.Duration

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration from hardcoded defaults,
// overridden by ISSUEFEED_* environment variables where set.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		DBPath:        GetEnvString(EnvDBPath, DefaultDBPath),
		ServerHost:    GetEnvString(EnvServerHost, DefaultServerHost),
		ServerPort:    GetEnvInt(EnvServerPort, DefaultServerPort),
		MaxBodyBytes:  GetEnvInt64(EnvMaxBodyBytes, DefaultMaxBodyBytes),
		WebhookSecret: GetEnvString(EnvWebhookSecret, ""),
		OwnLogin:      GetEnvString(EnvOwnLogin, ""),
		TokenSecret:   GetEnvString(EnvTokenSecret, ""),
		TokenTTL:      GetEnvDuration(EnvTokenTTL, DefaultTokenTTL),
		LogLevel:      GetEnvLogLevel(EnvLogLevel, logLevel),
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Validate checks settings that have no usable fallback.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port %d", c.ServerPort)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.TokenSecret != "" && c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	}
	return nil
}
