// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/reportstream/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix starts every environment key.
const EnvPrefix = "REPORTSTREAM_"

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "password") || strings.Contains(lower, "secret")
}

// ParseString reads a string from environment variable or returns default value.
// Sensitive keys are logged without their value.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitive(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", value)
	}
	ev.Msg("using environment variable")
	return value
}

// ParseInt reads an integer from environment variable or returns default value.
// It falls back to the default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseWith(key, defaultValue, strconv.Atoi)
}

// ParseBool reads a boolean from environment variable or returns default value.
func ParseBool(key string, defaultValue bool) bool {
	return parseWith(key, defaultValue, strconv.ParseBool)
}

// ParseDuration reads a Go duration ("5s", "100ms") from environment variable.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseWith(key, defaultValue, time.ParseDuration)
}

// ParseFloat reads a float from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseWith(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseList reads a comma-separated list. Blank entries are dropped.
func ParseList(key string, defaultValue []string) []string {
	return parseWith(key, defaultValue, func(s string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	})
}

func parseWith[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	logger := log.WithComponent("config")
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		logger.Warn().
			Err(err).
			Str("key", key).
			Str("value", raw).
			Msg("invalid environment variable, using default")
		return defaultValue
	}
	logEnv(logger, key)
	return v
}

func logEnv(logger zerolog.Logger, key string) {
	logger.Debug().Str("key", key).Str("source", "environment").Msg("using environment variable")
}
