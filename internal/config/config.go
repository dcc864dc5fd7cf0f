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
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Postgres
	DatabaseURL string

	// Memory backend seed files
	DataDirectory string

	// SQLite mirror
	MirrorDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Object bucket for avatars
	BlobBaseURL string
	BlobBucket  string
	BlobAPIKey  string

	// Worker
	SyncInterval time.Duration
	SyncDebounce time.Duration
	MirrorMaxAge time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8082"),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),
		MirrorDBPath:  getEnv("MIRROR_DB_PATH", "./data/classfund-mirror.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "classfund"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "entity_changes"),

		BlobBaseURL: getEnv("BLOB_BASE_URL", ""),
		BlobBucket:  getEnv("BLOB_BUCKET", "avatars"),
		BlobAPIKey:  getEnv("BLOB_API_KEY", ""),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		SyncDebounce: getEnvDuration("SYNC_DEBOUNCE", 2*time.Second),
		MirrorMaxAge: getEnvDuration("MIRROR_MAX_AGE", time.Hour),
	}

	return cfg
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "postgres"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "postgres" {
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres backend")
		} else if parsedURL, err := url.Parse(c.DatabaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid database URL: %v", err))
		} else if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
			errs = append(errs, fmt.Sprintf("invalid database URL scheme '%s': must be 'postgres' or 'postgresql'", parsedURL.Scheme))
		}
	}

	if c.MirrorDBPath != "" {
		dir := filepath.Dir(c.MirrorDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create mirror directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.BlobBaseURL != "" {
		if parsedURL, err := url.Parse(c.BlobBaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid blob base URL '%s': %v", c.BlobBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errs = append(errs, fmt.Sprintf("invalid blob base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.BlobBucket == "" {
			errs = append(errs, "blob bucket name cannot be empty when blob base URL is provided")
		}
	}

	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.SyncDebounce < 0 || c.SyncDebounce > time.Minute {
		errs = append(errs, fmt.Sprintf("invalid sync debounce %v: must be between 0 and 1 minute", c.SyncDebounce))
	}

	if c.MirrorMaxAge < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid mirror max age %v: must be at least 1 minute", c.MirrorMaxAge))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
