package circuitbreaker

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"
)

var (
	// ErrCircuitOpen is returned, without invoking the operation, while a
	// breaker is open and not yet eligible for a trial call.
	ErrCircuitOpen = errors.New("circuitbreaker: circuit is open")
	// ErrTooManyCalls is returned when a half-open breaker has already
	// admitted its full quota of trial calls.
	ErrTooManyCalls = errors.New("circuitbreaker: half-open call capacity exceeded")
	// ErrBreakerNotFound is returned by Manager operations on a name that
	// was never registered via GetOrCreate.
	ErrBreakerNotFound = errors.New("circuitbreaker: breaker not registered")
)

// State represents a breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Counts mirrors the engine's rolling request statistics.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Metrics is the cumulative request accounting of one breaker over its
// lifetime, including calls the breaker rejected without invoking the
// operation. SuccessRate is computed over executed calls only.
type Metrics struct {
	TotalRequests      uint64  `json:"total_requests"`
	SuccessfulRequests uint64  `json:"successful_requests"`
	FailedRequests     uint64  `json:"failed_requests"`
	RejectedRequests   uint64  `json:"rejected_requests"`
	SuccessRate        float64 `json:"success_rate"`
}

// Manager manages the circuit breakers of a process, one per protected
// dependency, keyed by dependency name.
type Manager interface {
	// GetOrCreate returns the existing breaker for name or creates one
	// with config. Config problems fail fast.
	GetOrCreate(name string, config Config) (*Breaker, error)

	// Execute runs fn through the named breaker.
	Execute(name string, fn func() (any, error)) (any, error)

	// GetState returns the current state, or StateUnknown for an
	// unregistered name.
	GetState(name string) State

	// GetCounts returns the engine's rolling counts.
	GetCounts(name string) Counts

	// GetMetrics returns the breaker's lifetime request accounting.
	GetMetrics(name string) Metrics

	// IsHealthy reports whether the breaker is closed.
	IsHealthy(name string) bool

	// Reset returns the named breaker to a fresh closed state.
	Reset(name string)

	// RegisterStateChangeListener subscribes to state transitions of all
	// breakers owned by this manager.
	RegisterStateChangeListener(listener StateChangeListener)
}

// StateChangeListener is notified when a breaker changes state.
type StateChangeListener interface {
	OnStateChange(name string, from State, to State)
}

// HealthCheckFunc probes one dependency; nil means healthy.
type HealthCheckFunc func(ctx context.Context) error

// HealthChecker periodically probes unhealthy dependencies and resets
// their breakers once they recover.
type HealthChecker interface {
	// Register adds a dependency probe.
	Register(name string, fn HealthCheckFunc)

	// Start begins the probe loop in a background goroutine.
	Start()

	// Stop gracefully stops the probe loop.
	Stop()

	// GetHealthStatus returns the breaker state per registered dependency.
	GetHealthStatus() map[string]string

	StateChangeListener
}

func stateFromEngine(state gobreaker.State) State {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}
