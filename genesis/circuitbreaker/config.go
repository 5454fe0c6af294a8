package circuitbreaker

import (
	"errors"
	"fmt"
	"time"
)

// Config holds circuit breaker tuning for one dependency.
type Config struct {
	// FailureThreshold is the run of consecutive failures that trips the
	// breaker from closed to open.
	FailureThreshold uint32
	// HalfOpenMaxCalls bounds the trial calls admitted while half-open;
	// the same number of consecutive successes closes the breaker, and a
	// single trial failure reopens it. 1 gives single-trial behavior.
	HalfOpenMaxCalls uint32
	// OpenTimeout is how long the breaker stays open before the next call
	// is allowed through as a trial. The transition happens lazily on
	// that call; there is no background timer.
	OpenTimeout time.Duration
	// Interval is the closed-state window after which rolling counts are
	// cleared. Zero keeps counts for the life of the closed state.
	Interval time.Duration
	// FailureRatio optionally trips the breaker when at least MinRequests
	// have been observed and the failure ratio reaches this value.
	// Zero disables ratio-based tripping.
	FailureRatio float64
	// MinRequests is the sample floor for ratio-based tripping.
	MinRequests uint32
}

// ErrInvalidConfig wraps all configuration validation failures.
var ErrInvalidConfig = errors.New("circuitbreaker: invalid config")

// Validate fails fast on configurations that would produce a breaker that
// can never trip or never recover.
func (c Config) Validate() error {
	if c.FailureThreshold < 1 {
		return fmt.Errorf("%w: FailureThreshold must be at least 1", ErrInvalidConfig)
	}

	if c.HalfOpenMaxCalls < 1 {
		return fmt.Errorf("%w: HalfOpenMaxCalls must be at least 1", ErrInvalidConfig)
	}

	if c.OpenTimeout <= 0 {
		return fmt.Errorf("%w: OpenTimeout must be positive", ErrInvalidConfig)
	}

	if c.FailureRatio < 0 || c.FailureRatio > 1 {
		return fmt.Errorf("%w: FailureRatio must be within [0, 1]", ErrInvalidConfig)
	}

	if c.FailureRatio > 0 && c.MinRequests == 0 {
		return fmt.Errorf("%w: FailureRatio requires MinRequests", ErrInvalidConfig)
	}

	return nil
}

// DefaultConfig provides balanced settings for most dependencies.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 15,
		HalfOpenMaxCalls: 3,
		OpenTimeout:      30 * time.Second,
		Interval:         2 * time.Minute,
		FailureRatio:     0.5,
		MinRequests:      10,
	}
}

// AggressiveConfig for dependencies requiring fast failure detection.
func AggressiveConfig() Config {
	return Config{
		FailureThreshold: 5,
		HalfOpenMaxCalls: 2,
		OpenTimeout:      10 * time.Second,
		Interval:         1 * time.Minute,
		FailureRatio:     0.4,
		MinRequests:      5,
	}
}

// ConservativeConfig for dependencies that should tolerate more failures.
func ConservativeConfig() Config {
	return Config{
		FailureThreshold: 25,
		HalfOpenMaxCalls: 5,
		OpenTimeout:      60 * time.Second,
		Interval:         5 * time.Minute,
		FailureRatio:     0.6,
		MinRequests:      20,
	}
}

// HTTPServiceConfig is tuned for external HTTP APIs: faster detection,
// shorter recovery probe window.
func HTTPServiceConfig() Config {
	return Config{
		FailureThreshold: 5,
		HalfOpenMaxCalls: 3,
		OpenTimeout:      10 * time.Second,
		Interval:         2 * time.Minute,
		FailureRatio:     0.5,
		MinRequests:      10,
	}
}

// DatabaseConfig is more tolerant: databases should be stable, and a brief
// network blip should not trip the breaker.
func DatabaseConfig() Config {
	return Config{
		FailureThreshold: 20,
		HalfOpenMaxCalls: 5,
		OpenTimeout:      45 * time.Second,
		Interval:         3 * time.Minute,
		FailureRatio:     0.6,
		MinRequests:      15,
	}
}
