package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"liveTradeFeed/internal/adapters/logger" // Import the logger package for LogLevel
	"liveTradeFeed/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Feed
	FeedURL string

	// Retention
	HistoryLimit      int // Closed trades kept in history
	NotificationLimit int // Messages kept in the ticker log

	// Panel
	PageSize            int
	ConfidenceThreshold float64
	Theme               domain.Theme

	// HTTP read API
	HTTPAddr string

	// Database
	DBPath               string
	DiagnosticsRetention time.Duration
	PruneSchedule        string

	// Logging
	LogLevel    logger.LogLevel // Use the LogLevel type from the logger adapter
	LogEncoding string

	// Connection Settings
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Feed
	cfg.FeedURL = getEnv("FEED_URL", "ws://localhost:8000/ws/trades")
	if u, perr := url.Parse(cfg.FeedURL); perr != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		errs = append(errs, "FEED_URL must be a ws:// or wss:// URL")
	}

	// Retention
	cfg.HistoryLimit, err = getEnvAsIntRequired("HISTORY_LIMIT", 50)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HISTORY_LIMIT: %v", err))
	} else if cfg.HistoryLimit <= 0 {
		errs = append(errs, "HISTORY_LIMIT must be positive")
	}

	cfg.NotificationLimit, err = getEnvAsIntRequired("NOTIFICATION_LIMIT", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid NOTIFICATION_LIMIT: %v", err))
	} else if cfg.NotificationLimit <= 0 {
		errs = append(errs, "NOTIFICATION_LIMIT must be positive")
	}

	// Panel
	cfg.PageSize, err = getEnvAsIntRequired("PAGE_SIZE", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PAGE_SIZE: %v", err))
	} else if cfg.PageSize <= 0 {
		errs = append(errs, "PAGE_SIZE must be positive")
	}

	cfg.ConfidenceThreshold, err = getEnvAsFloatRequired("CONFIDENCE_THRESHOLD", 0.974)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CONFIDENCE_THRESHOLD: %v", err))
	} else if cfg.ConfidenceThreshold <= 0 || cfg.ConfidenceThreshold > 1 {
		errs = append(errs, "CONFIDENCE_THRESHOLD must be greater than 0 and at most 1")
	}

	theme, ok := domain.ParseTheme(strings.ToLower(getEnv("THEME", string(domain.ThemeDark))))
	if !ok {
		errs = append(errs, "THEME must be dark or light")
	}
	cfg.Theme = theme

	// HTTP
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/feed_diagnostics.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	retentionHours, err := getEnvAsIntRequired("DIAGNOSTICS_RETENTION_HOURS", 168)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DIAGNOSTICS_RETENTION_HOURS: %v", err))
	} else if retentionHours <= 0 {
		errs = append(errs, "DIAGNOSTICS_RETENTION_HOURS must be positive")
	}
	cfg.DiagnosticsRetention = time.Duration(retentionHours) * time.Hour
	cfg.PruneSchedule = getEnv("DIAGNOSTICS_PRUNE_SCHEDULE", "@hourly")

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogEncoding = strings.ToLower(getEnv("LOG_ENCODING", "json"))
	if cfg.LogEncoding != "json" && cfg.LogEncoding != "console" {
		errs = append(errs, "LOG_ENCODING must be json or console")
	}

	// Connection Settings
	reconnectDelaySeconds, err := getEnvAsIntRequired("RECONNECT_DELAY_SECONDS", 1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RECONNECT_DELAY_SECONDS: %v", err))
	} else if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts, err = getEnvAsIntRequired("MAX_RECONNECT_ATTEMPTS", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_RECONNECT_ATTEMPTS: %v", err))
	} else if cfg.MaxReconnectAttempts <= 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS must be positive")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
