package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sony/gobreaker"
)

// Breaker protects one dependency. All mutation is serialized by the
// underlying engine; the wrapper adds lifetime request accounting,
// including rejections the engine reports as errors without invoking the
// operation.
type Breaker struct {
	name string

	mu     sync.RWMutex
	engine *gobreaker.CircuitBreaker

	total     atomic.Uint64
	successes atomic.Uint64
	failures  atomic.Uint64
	rejected  atomic.Uint64
}

func newBreaker(name string, settings gobreaker.Settings) *Breaker {
	return &Breaker{
		name:   name,
		engine: gobreaker.NewCircuitBreaker(settings),
	}
}

// Name returns the dependency name this breaker protects.
func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) currentEngine() *gobreaker.CircuitBreaker {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.engine
}

// reset swaps in a fresh engine, returning the breaker to a clean closed
// state. Lifetime metrics are preserved.
func (b *Breaker) reset(settings gobreaker.Settings) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.engine = gobreaker.NewCircuitBreaker(settings)
}

// Execute runs fn through the breaker. While open it fails immediately
// with ErrCircuitOpen without invoking fn; while half-open and at trial
// capacity it fails with ErrTooManyCalls.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	b.total.Add(1)

	result, err := b.currentEngine().Execute(fn)

	switch {
	case err == nil:
		b.successes.Add(1)
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState):
		b.rejected.Add(1)
		return nil, fmt.Errorf("dependency %q unavailable: %w", b.name, ErrCircuitOpen)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		b.rejected.Add(1)
		return nil, fmt.Errorf("dependency %q recovering: %w", b.name, ErrTooManyCalls)
	default:
		b.failures.Add(1)
		return result, err
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	return stateFromEngine(b.currentEngine().State())
}

// Counts returns the engine's rolling counts.
func (b *Breaker) Counts() Counts {
	counts := b.currentEngine().Counts()

	return Counts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

// Metrics returns the breaker's lifetime request accounting.
func (b *Breaker) Metrics() Metrics {
	successes := b.successes.Load()
	failures := b.failures.Load()

	m := Metrics{
		TotalRequests:      b.total.Load(),
		SuccessfulRequests: successes,
		FailedRequests:     failures,
		RejectedRequests:   b.rejected.Load(),
	}

	if executed := successes + failures; executed > 0 {
		m.SuccessRate = float64(successes) / float64(executed)
	}

	return m
}

// IsRejection reports whether err was a breaker rejection (open state or
// half-open capacity) rather than an operation failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyCalls)
}
