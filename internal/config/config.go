package config

import (
	"os"
	"time"
)

// Config holds all configuration for the ledger service
type Config struct {
	ServiceName     string
	HTTPPort        string
	GRPCPort        string
	LogLevel        string
	RabbitMQURL     string
	JournalDriver   string
	JournalDSN      string
	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		ServiceName:     getEnv("SERVICE_NAME", "ledger"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		GRPCPort:        getEnv("GRPC_PORT", "50051"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RabbitMQURL:     os.Getenv("RABBITMQ_URL"),
		JournalDriver:   getEnv("JOURNAL_DRIVER", "sqlite"),
		JournalDSN:      getEnv("JOURNAL_DSN", "file::memory:?cache=shared"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 20*time.Second),
	}
}

// EventsEnabled reports whether a broker URL was configured.
func (c *Config) EventsEnabled() bool {
	return c.RabbitMQURL != ""
}

// JournalEnabled reports whether an audit journal store should be opened.
func (c *Config) JournalEnabled() bool {
	return c.JournalDriver != "" && c.JournalDriver != "none"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
