package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	// Server
	ServerPort string

	// Database
	DatabaseType string // sqlite (default), postgres, mysql
	DatabasePath string // sqlite file path
	DatabaseURL  string // postgres/mysql connection string

	// Remote sync
	RemoteBaseURL string
	DeviceID      string
	DeviceSecret  string
	SyncInterval  time.Duration
	SyncRetries   int

	// Invitation email (SES)
	AWSRegion       string
	InviteFromEmail string
	InviteFromName  string
	InviteTTL       time.Duration

	// Telemetry
	MetricsPort string
	LogLevel    string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./hearth.db"),
		DatabaseURL:     getEnv("DB_URL", ""),
		RemoteBaseURL:   getEnv("REMOTE_BASE_URL", ""),
		DeviceID:        getEnv("DEVICE_ID", ""),
		DeviceSecret:    getEnv("DEVICE_SECRET", ""),
		SyncInterval:    getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		SyncRetries:     getEnvInt("SYNC_RETRIES", 3),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		InviteFromEmail: getEnv("SES_FROM_EMAIL", ""),
		InviteFromName:  getEnv("SES_FROM_NAME", "Hearth"),
		InviteTTL:       getEnvDuration("INVITE_TTL", 7*24*time.Hour),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration reads a duration environment variable (e.g. "45s")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvInt reads an integer environment variable
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
