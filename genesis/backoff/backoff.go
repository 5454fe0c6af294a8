package backoff

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	mrand "math/rand/v2"
	"time"
)

const maxShift = 62

// Strategy selects how the inter-attempt delay grows.
type Strategy string

const (
	// StrategyFixed always waits the base delay.
	StrategyFixed Strategy = "FIXED"
	// StrategyLinear waits base*attempt, capped at the maximum.
	StrategyLinear Strategy = "LINEAR"
	// StrategyExponential waits base*2^(attempt-1), capped at the maximum.
	StrategyExponential Strategy = "EXPONENTIAL"
	// StrategyExponentialJitter waits a uniform random duration in
	// [0, exponential value) — the AWS "full jitter" strategy, which keeps
	// synchronized clients from retrying in lockstep.
	StrategyExponentialJitter Strategy = "EXPONENTIAL_JITTER"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyFixed, StrategyLinear, StrategyExponential, StrategyExponentialJitter:
		return true
	default:
		return false
	}
}

// Random is the source of jitter randomness. Int64N must return a uniform
// value in [0, n) for n > 0. Injecting a seeded source makes jittered
// delays reproducible in tests.
type Random interface {
	Int64N(n int64) int64
}

// cryptoRandom is the default Random, backed by crypto/rand with a
// two-layer fallback so jitter never stalls under entropy exhaustion.
type cryptoRandom struct{}

func (cryptoRandom) Int64N(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return cryptoFallbackRand(n)
	}

	return v.Int64()
}

// DefaultRandom returns the crypto/rand-backed Random source.
//
//nolint:ireturn
func DefaultRandom() Random {
	return cryptoRandom{}
}

// Delay computes the wait before the next retry. attempt is 1-based: the
// delay after the first failed attempt is Delay(1, ...). The result never
// exceeds maxDelay when maxDelay > 0. A nil rnd falls back to the
// crypto/rand source; given a fixed rnd the function is deterministic.
func Delay(strategy Strategy, attempt int, baseDelay, maxDelay time.Duration, rnd Random) time.Duration {
	if baseDelay <= 0 {
		return 0
	}

	if attempt < 1 {
		attempt = 1
	}

	var delay time.Duration

	switch strategy {
	case StrategyFixed:
		delay = baseDelay
	case StrategyLinear:
		if baseDelay > math.MaxInt64/time.Duration(attempt) {
			delay = time.Duration(math.MaxInt64)
		} else {
			delay = baseDelay * time.Duration(attempt)
		}
	case StrategyExponential:
		delay = Exponential(baseDelay, attempt-1)
	case StrategyExponentialJitter:
		delay = capDelay(Exponential(baseDelay, attempt-1), maxDelay)
		if delay <= 0 {
			return 0
		}

		if rnd == nil {
			rnd = cryptoRandom{}
		}

		return time.Duration(rnd.Int64N(int64(delay)))
	default:
		delay = baseDelay
	}

	return capDelay(delay, maxDelay)
}

func capDelay(delay, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}

	return delay
}

// Exponential calculates exponential delay based on attempt number.
// The delay is calculated as base * 2^attempt with overflow protection.
// Negative attempts are treated as 0.
func Exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	if attempt < 0 {
		attempt = 0
	} else if attempt > maxShift {
		attempt = maxShift
	}

	multiplier := int64(1 << attempt)

	baseInt := int64(base)
	if baseInt > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(baseInt * multiplier)
}

// FullJitter returns a random duration in the range [0, delay).
// Uses crypto/rand for secure randomness, falling back to math/rand if crypto fails.
// Returns 0 for zero or negative delays.
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}

	return time.Duration(cryptoRandom{}.Int64N(int64(delay)))
}

// fallbackDivisor is used when crypto/rand fails completely.
const fallbackDivisor = 2

// cryptoFallbackRand provides a fallback random number generator when crypto/rand fails.
// It uses two fallback layers:
//   - Layer 1: Attempt to seed a math/rand PRNG via crypto/rand. Even though
//     rand.Int already failed, rand.Read uses a different code path
//     (raw bytes vs big.Int) and may succeed independently.
//   - Layer 2: If even seeding fails, return a deterministic midpoint
//     (maxValue / 2) to provide a reasonable jitter value without blocking.
func cryptoFallbackRand(maxValue int64) int64 {
	var seed [8]byte

	_, err := rand.Read(seed[:])
	if err != nil {
		return maxValue / fallbackDivisor
	}

	rng := mrand.New(
		mrand.NewPCG(binary.LittleEndian.Uint64(seed[:]), 0),
	) // #nosec G404 -- Fallback when crypto/rand fails

	return rng.Int64N(maxValue)
}

// SleepWithContext sleeps for the specified duration but respects context
// cancellation. Returns nil if the sleep completes, or an error if the
// context is cancelled. Returns immediately (nil) for zero or negative
// durations.
func SleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}
