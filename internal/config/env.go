package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// GetEnvString returns the value of key, or defaultValue when key is unset.
// A set but empty variable is returned as the empty string.
func GetEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvInt returns key parsed as an int, or defaultValue when unset or invalid.
func GetEnvInt(key string, defaultValue int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		warnInvalid(key, valStr, err)
		return defaultValue
	}
	return val
}

// GetEnvInt64 returns key parsed as an int64, or defaultValue when unset or invalid.
// Used for byte limits that may exceed a 32-bit int.
func GetEnvInt64(key string, defaultValue int64) int64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}

	val, err := strconv.ParseInt(valStr, 10, 64)
	if err != nil {
		warnInvalid(key, valStr, err)
		return defaultValue
	}
	return val
}

// GetEnvDuration returns key parsed as a Go duration ("90m", "24h").
// A bare integer is read as minutes.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}

	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		warnInvalid(key, valStr, err)
		return defaultValue
	}
	return time.Duration(val) * time.Minute
}

// GetEnvLogLevel returns key parsed as a zerolog level, or defaultValue.
func GetEnvLogLevel(key string, defaultValue zerolog.Level) zerolog.Level {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}

	level, err := zerolog.ParseLevel(valStr)
	if err != nil {
		warnInvalid(key, valStr, err)
		return defaultValue
	}
	return level
}

func warnInvalid(key, value string, err error) {
	log.Warn().Err(err).Str("env", key).Str("value", value).Msg("Ignoring invalid environment value, using default")
}
