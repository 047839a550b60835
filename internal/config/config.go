package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Run modes.
const (
	ModeConsole = "console"
	ModeHTTP    = "http"
	ModeBoth    = "both"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Mode selects the front ends: console, http or both.
	Mode string

	// Server
	Port            int
	ShutdownTimeout time.Duration
	LogLevel        string

	// Observability
	OTLPEndpoint string

	// Persistence; empty disables snapshots
	SnapshotPath string

	// Idempotency keys
	IdempotencyTTL time.Duration

	// Operator auth; empty secret leaves rule writes open
	OperatorJWTSecret string
	OperatorTokenTTL  time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Mode: getEnv("MODE", ModeConsole),

		Port:            getEnvInt("PORT", 8080),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SnapshotPath: getEnv("SNAPSHOT_PATH", ""),

		IdempotencyTTL: getEnvDuration("IDEMPOTENCY_TTL", 10*time.Minute),

		OperatorJWTSecret: getEnv("OPERATOR_JWT_SECRET", ""),
		OperatorTokenTTL:  getEnvDuration("OPERATOR_TOKEN_TTL", 12*time.Hour),
	}
}

// Validate rejects settings the process cannot run with.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeConsole, ModeHTTP, ModeBoth:
	default:
		return fmt.Errorf("MODE must be %s, %s or %s, got %q", ModeConsole, ModeHTTP, ModeBoth, c.Mode)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.OperatorJWTSecret != "" && c.OperatorTokenTTL <= 0 {
		return fmt.Errorf("OPERATOR_TOKEN_TTL must be positive")
	}
	return nil
}

// ServesHTTP reports whether the HTTP API should run.
func (c *Config) ServesHTTP() bool {
	return c.Mode == ModeHTTP || c.Mode == ModeBoth
}

// ServesConsole reports whether the interactive console should run.
func (c *Config) ServesConsole() bool {
	return c.Mode == ModeConsole || c.Mode == ModeBoth
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
