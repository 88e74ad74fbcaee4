package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"tripledger/internal/logger"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

type Config struct {
	// Storage Configuration
	StoreDriver   string
	MongoURL      string
	MongoDatabase string

	// Audit trail (optional, disabled when empty)
	RedisAddr         string
	AuditHistoryLimit int64

	// HTTP boundary
	HTTPAddr       string
	JWTSecret      string
	RequestTimeout time.Duration

	// Identity used by CLI maintenance commands
	OperatorID string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	auditLimit, err := strconv.ParseInt(getEnv("AUDIT_HISTORY_LIMIT", "200"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AUDIT_HISTORY_LIMIT: %w", err)
	}
	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	config := &Config{
		StoreDriver:          getEnv("STORE_DRIVER", StoreDriverMongo),
		MongoURL:             getEnv("MONGO_URL", ""),
		MongoDatabase:        getEnv("MONGO_DATABASE", "travel_agency"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		AuditHistoryLimit:    auditLimit,
		HTTPAddr:             getEnv("HTTP_ADDR", ":8001"),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		RequestTimeout:       timeout,
		OperatorID:           getEnv("OPERATOR_ID", "operator"),
		GoogleSheetURL:       getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet: getEnv("GOOGLE_SHEET_WORKSHEET", "Financial_Report"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:        getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:            getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("MONGO_URL is required when STORE_DRIVER=mongo")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverMongo, StoreDriverMemory, c.StoreDriver)
	}
	if c.AuditHistoryLimit <= 0 {
		return fmt.Errorf("AUDIT_HISTORY_LIMIT must be positive")
	}
	if c.OperatorID == "" {
		return fmt.Errorf("OPERATOR_ID must not be empty")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
