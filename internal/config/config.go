package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"recibos/internal/core"
)

// Backend names.
const (
	BackendLocal   = "local"
	BackendDropbox = "dropbox"
	BackendSheets  = "sheets"
	BackendSQLite  = "sqlite"
)

var validBackends = []string{BackendLocal, BackendDropbox, BackendSheets, BackendSQLite}

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection
	DataBackend string
	DataFolder  string
	StrictDates bool
	CacheTTL    time.Duration

	// Dropbox
	DropboxFolder       string
	DropboxAppKey       string
	DropboxAppSecret    string
	DropboxRefreshToken string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	SyncSource      string
	SyncCron        string
	SyncConcurrency int

	// Fiscal thresholds used when config.json leaves them out
	IVAThreshold           string
	RetencaoFonteThreshold string
	IRSThreshold           string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend: getEnv("DATA_BACKEND", BackendLocal),
		DataFolder:  getEnv("DATA_FOLDER", "./data"),
		StrictDates: getEnvBool("STRICT_DATES", false),
		CacheTTL:    getEnvDuration("CACHE_TTL", 5*time.Minute),

		DropboxFolder:       getEnv("DROPBOX_FOLDER", "/recibos"),
		DropboxAppKey:       getEnv("DROPBOX_APP_KEY", ""),
		DropboxAppSecret:    getEnv("DROPBOX_APP_SECRET", ""),
		DropboxRefreshToken: getEnv("DROPBOX_REFRESH_TOKEN", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/recibos.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "recibos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "refresh_requests"),

		SyncSource:      getEnv("SYNC_SOURCE", BackendLocal),
		SyncCron:        getEnv("SYNC_CRON", "0 * * * *"),
		SyncConcurrency: getEnvInt("SYNC_CONCURRENCY", 4),

		IVAThreshold:           getEnv("IVA_THRESHOLD", ""),
		RetencaoFonteThreshold: getEnv("RETENCAO_FONTE_THRESHOLD", ""),
		IRSThreshold:           getEnv("IRS_THRESHOLD", ""),
	}
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	} else {
		errors = append(errors, c.backendErrors(c.DataBackend)...)
	}

	if c.DataBackend == BackendSQLite {
		switch {
		case c.SyncSource == BackendSQLite:
			errors = append(errors, "sync source cannot be sqlite: the mirror needs an upstream backend")
		case !slices.Contains(validBackends, c.SyncSource):
			errors = append(errors, fmt.Sprintf("invalid sync source '%s': must be one of [local dropbox sheets]", c.SyncSource))
		default:
			errors = append(errors, c.backendErrors(c.SyncSource)...)
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

	if c.SyncConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync concurrency %d: must be at least 1", c.SyncConcurrency))
	} else if c.SyncConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid sync concurrency %d: must be at most 32", c.SyncConcurrency))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	} else if c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 24 hours", c.CacheTTL))
	}

	for name, value := range map[string]string{
		"IVA_THRESHOLD":            c.IVAThreshold,
		"RETENCAO_FONTE_THRESHOLD": c.RetencaoFonteThreshold,
		"IRS_THRESHOLD":            c.IRSThreshold,
	} {
		if value == "" {
			continue
		}
		if _, err := core.ParseMoney(value); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be a non-negative amount", name, value))
		}
	}

	if len(errors) > 0 {
		slices.Sort(errors)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) backendErrors(backend string) []string {
	var errors []string
	switch backend {
	case BackendLocal:
		if c.DataFolder == "" {
			errors = append(errors, "DATA_FOLDER is required when using local backend")
		} else if info, err := os.Stat(c.DataFolder); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("data folder does not exist: %s", c.DataFolder))
		}
	case BackendDropbox:
		if c.DropboxAppKey == "" || c.DropboxAppSecret == "" {
			errors = append(errors, "DROPBOX_APP_KEY and DROPBOX_APP_SECRET are required when using dropbox backend")
		}
		if c.DropboxRefreshToken == "" {
			errors = append(errors, "DROPBOX_REFRESH_TOKEN is required when using dropbox backend")
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	}
	return errors
}

// Thresholds returns the fiscal threshold fallbacks. Unset values stay nil.
func (c *Config) Thresholds() (core.Settings, error) {
	var s core.Settings
	for _, t := range []struct {
		env   string
		value string
		dst   **core.Money
	}{
		{"IVA_THRESHOLD", c.IVAThreshold, &s.IVAThreshold},
		{"RETENCAO_FONTE_THRESHOLD", c.RetencaoFonteThreshold, &s.RetencaoFonteThreshold},
		{"IRS_THRESHOLD", c.IRSThreshold, &s.IRSThreshold},
	} {
		if t.value == "" {
			continue
		}
		m, err := core.ParseMoney(t.value)
		if err != nil {
			return core.Settings{}, fmt.Errorf("%s: %w", t.env, err)
		}
		*t.dst = &m
	}
	return s, nil
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
