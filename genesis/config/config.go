// Package config loads the library's process-level settings from the
// environment: service identity, log level, and the named retry preset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jhousteau/genesis-go/genesis/log"
	"github.com/jhousteau/genesis-go/genesis/retry"
)

// Config is the environment-driven configuration consumed at startup.
type Config struct {
	// ServiceName identifies the service in every operation Context.
	ServiceName string `validate:"required"`
	// Environment is the deployment environment (local, staging,
	// production).
	Environment string `validate:"required"`
	// Version is the running build version.
	Version string `validate:"required"`
	// LogLevel is one of error, warn, info, debug.
	LogLevel string `validate:"required,oneof=error warn info debug"`
	// RetryPreset names the retry policy preset applied by default.
	RetryPreset string `validate:"required"`
	// HealthCheckTimeout bounds individual health checks.
	HealthCheckTimeout time.Duration `validate:"gt=0"`
	// HealthMaxConcurrent bounds the health check fan-out.
	HealthMaxConcurrent int `validate:"gte=1"`
}

// Load reads configuration from GENESIS_* environment variables, applies
// defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:         os.Getenv("GENESIS_SERVICE_NAME"),
		Environment:         getEnvDefault("GENESIS_ENVIRONMENT", "local"),
		Version:             getEnvDefault("GENESIS_VERSION", "dev"),
		LogLevel:            getEnvDefault("GENESIS_LOG_LEVEL", "info"),
		RetryPreset:         getEnvDefault("GENESIS_RETRY_PRESET", "DEFAULT"),
		HealthCheckTimeout:  getEnvDurationDefault("GENESIS_HEALTH_CHECK_TIMEOUT", 5*time.Second),
		HealthMaxConcurrent: getEnvIntDefault("GENESIS_HEALTH_MAX_CONCURRENT", 8),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate fails fast on incomplete or inconsistent configuration.
func (c *Config) Validate() error {
	vld := validator.New(validator.WithRequiredStructEnabled())

	if err := vld.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if _, err := retry.PolicyByName(c.RetryPreset); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	return nil
}

// Level resolves the configured log level.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}

	return level
}

// RetryPolicy resolves the configured retry preset.
func (c *Config) RetryPolicy() retry.Policy {
	policy, err := retry.PolicyByName(c.RetryPreset)
	if err != nil {
		// Validate rejects unknown presets, so this only covers a
		// hand-built Config.
		return retry.DefaultPolicy()
	}

	return policy
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getEnvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func getEnvDurationDefault(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}

	return parsed
}
