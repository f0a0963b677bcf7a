// Package config loads environment-driven configuration for the moneycal
// binaries.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (optional; empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Rate limiting for mutating requests
	RateLimitPerMinute int

	// Graceful shutdown
	ShutdownTimeout time.Duration

	// Backend selection: memory | sqlite
	DataBackend string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8090"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/moneycal.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moneycal"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory", "sqlite":
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be 'memory' or 'sqlite'", c.DataBackend))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
