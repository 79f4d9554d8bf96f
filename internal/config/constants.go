package config

import "time"

// Environment variables read by the CLI.
const (
	EnvDBPath        = "ISSUEFEED_DB_PATH"
	EnvServerHost    = "ISSUEFEED_HOST"
	EnvServerPort    = "ISSUEFEED_PORT"
	EnvLogLevel      = "ISSUEFEED_LOG_LEVEL"
	EnvWebhookSecret = "ISSUEFEED_WEBHOOK_SECRET"
	EnvOwnLogin      = "ISSUEFEED_OWN_LOGIN"
	EnvTokenSecret   = "ISSUEFEED_TOKEN_SECRET"
	EnvTokenTTL      = "ISSUEFEED_TOKEN_TTL"
	EnvMaxBodyBytes  = "ISSUEFEED_MAX_BODY_BYTES"
)

// Constants defining default values for application configuration
const (
	DefaultDBPath = "./issuefeed.db"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultTokenTTL     = 24 * time.Hour
	DefaultMaxBodyBytes = 25 << 20

	DefaultLogLevel = "info"
)
