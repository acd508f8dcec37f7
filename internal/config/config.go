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

	// Backend selection: memory, gas, sheets, or sqlite
	DataBackend string

	// Apps Script store
	GASEndpoint string

	// Direct Google Sheets store
	GoogleSpreadsheetID string

	// Local database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sync worker
	SyncBatchSize   int
	SyncMaxAttempts int
	SyncInterval    time.Duration

	// Rate preview debounce quiet period
	RatePreviewQuiet time.Duration

	// Session cookie lifetime
	SessionTTL time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		GASEndpoint:         getEnv("GAS_ENDPOINT", ""),
		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tripreport.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tripreport"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_items"),

		SyncBatchSize:   getEnvInt("SYNC_BATCH_SIZE", 50),
		SyncMaxAttempts: getEnvInt("SYNC_MAX_ATTEMPTS", 5),
		SyncInterval:    getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		RatePreviewQuiet: getEnvDuration("RATE_PREVIEW_QUIET", 300*time.Millisecond),

		SessionTTL: getEnvDuration("SESSION_TTL", 12*time.Hour),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "gas", "sheets", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "gas" {
		if c.GASEndpoint == "" {
			errors = append(errors, "GAS endpoint URL is required when using gas backend")
		} else if parsedURL, err := url.Parse(c.GASEndpoint); err != nil || parsedURL.Scheme == "" {
			errors = append(errors, fmt.Sprintf("invalid GAS endpoint URL '%s'", c.GASEndpoint))
		}
	}

	if c.DataBackend == "sheets" && c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
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

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}
	if c.SyncMaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync max attempts %d: must be at least 1", c.SyncMaxAttempts))
	}
	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.RatePreviewQuiet < 50*time.Millisecond || c.RatePreviewQuiet > 5*time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate preview quiet period %v: must be between 50ms and 5s", c.RatePreviewQuiet))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
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
