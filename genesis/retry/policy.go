package retry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhousteau/genesis-go/genesis"
	"github.com/jhousteau/genesis-go/genesis/backoff"
)

// Policy describes one retry discipline. Values are immutable once handed
// to an Executor; presets are plain data, not behavior.
type Policy struct {
	// MaxAttempts is the total number of invocations, the first call
	// included. Must be at least 1.
	MaxAttempts int
	// Strategy selects the inter-attempt delay curve.
	Strategy backoff.Strategy
	// BaseDelay seeds the delay curve.
	BaseDelay time.Duration
	// MaxDelay caps any single computed delay.
	MaxDelay time.Duration
	// RetryableCategories restricts retries to failures classified into
	// one of these categories. Empty falls back to each error's
	// recoverable flag.
	RetryableCategories []genesis.Category
	// Timeout optionally bounds the whole loop, waits included. Zero
	// means no overall deadline.
	Timeout time.Duration
}

// ErrInvalidPolicy wraps all policy validation failures.
var ErrInvalidPolicy = errors.New("retry: invalid policy")

// ErrUnknownPreset is returned by PolicyByName for an unrecognized name.
var ErrUnknownPreset = errors.New("retry: unknown policy preset")

// Validate fails fast on policies that cannot drive a loop.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: MaxAttempts must be at least 1", ErrInvalidPolicy)
	}

	if !p.Strategy.Valid() {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidPolicy, p.Strategy)
	}

	if p.BaseDelay < 0 {
		return fmt.Errorf("%w: BaseDelay must not be negative", ErrInvalidPolicy)
	}

	if p.MaxDelay < 0 {
		return fmt.Errorf("%w: MaxDelay must not be negative", ErrInvalidPolicy)
	}

	if p.MaxDelay > 0 && p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("%w: MaxDelay must not be below BaseDelay", ErrInvalidPolicy)
	}

	if p.Timeout < 0 {
		return fmt.Errorf("%w: Timeout must not be negative", ErrInvalidPolicy)
	}

	return nil
}

// retryable reports whether an error of this category should be retried
// under the policy.
func (p Policy) retryable(gerr *genesis.Error) bool {
	if len(p.RetryableCategories) == 0 {
		return gerr.Recoverable
	}

	for _, category := range p.RetryableCategories {
		if gerr.Category == category {
			return true
		}
	}

	return false
}

// DefaultPolicy provides balanced retries for general use.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Strategy:    backoff.StrategyExponentialJitter,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// AggressivePolicy retries more times with shorter delays, for latency
// sensitive paths where the dependency usually recovers quickly.
func AggressivePolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Strategy:    backoff.StrategyExponentialJitter,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// ConservativePolicy retries few times with long delays, for batch work
// that should yield rather than hammer a struggling dependency.
func ConservativePolicy() Policy {
	return Policy{
		MaxAttempts: 2,
		Strategy:    backoff.StrategyExponential,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// NetworkPolicy is tuned for transient network failures only.
func NetworkPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		Strategy:    backoff.StrategyExponentialJitter,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		RetryableCategories: []genesis.Category{
			genesis.CategoryNetwork,
			genesis.CategoryExternalService,
		},
	}
}

// DatabasePolicy is tuned for database operations, where rate limits and
// infrastructure blips are worth retrying but validation failures are not.
func DatabasePolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Strategy:    backoff.StrategyExponentialJitter,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    15 * time.Second,
		RetryableCategories: []genesis.Category{
			genesis.CategoryInfrastructure,
			genesis.CategoryNetwork,
			genesis.CategoryResourceExhausted,
		},
	}
}

// PolicyByName resolves a named preset, as consumed from configuration.
// Names are matched case-insensitively.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEFAULT":
		return DefaultPolicy(), nil
	case "AGGRESSIVE":
		return AggressivePolicy(), nil
	case "CONSERVATIVE":
		return ConservativePolicy(), nil
	case "NETWORK":
		return NetworkPolicy(), nil
	case "DATABASE":
		return DatabasePolicy(), nil
	default:
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
}
