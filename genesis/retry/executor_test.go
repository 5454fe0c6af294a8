//go:build unit

package retry

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/jhousteau/genesis-go/genesis"
	"github.com/jhousteau/genesis-go/genesis/backoff"
	"github.com/jhousteau/genesis-go/genesis/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps test wall time negligible.
func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Strategy:    backoff.StrategyFixed,
		BaseDelay:   time.Millisecond,
	}
}

func TestNewExecutor_ValidatesPolicy(t *testing.T) {
	_, err := NewExecutor(Policy{})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestExecutor_SucceedsFirstAttempt(t *testing.T) {
	executor, err := NewExecutor(fastPolicy(3))
	require.NoError(t, err)

	invocations := 0
	result, err := executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
		invocations++
		return "value", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "value", result)
	assert.Equal(t, 1, invocations)
}

func TestExecutor_SucceedsAfterRetries(t *testing.T) {
	executor, err := NewExecutor(fastPolicy(5))
	require.NoError(t, err)

	invocations := 0
	result, err := executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
		invocations++
		if invocations < 3 {
			return nil, syscall.ECONNREFUSED
		}

		return "recovered", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, invocations)
}

func TestExecutor_TerminatesAtMaxAttempts(t *testing.T) {
	executor, err := NewExecutor(fastPolicy(3))
	require.NoError(t, err)

	invocations := 0
	_, err = executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
		invocations++
		return nil, syscall.ECONNREFUSED
	})

	require.Error(t, err)
	assert.Equal(t, 3, invocations)

	var gerr *genesis.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, genesis.CategoryNetwork, gerr.Category)

	attempts, ok := gerr.Detail(genesis.DetailAttemptsMade)
	require.True(t, ok)
	assert.Equal(t, 3, attempts)

	_, ok = gerr.Detail(genesis.DetailLastDelay)
	assert.True(t, ok)
}

func TestExecutor_NonRetryableShortCircuits(t *testing.T) {
	policy := fastPolicy(5)
	policy.RetryableCategories = []genesis.Category{genesis.CategoryNetwork}

	executor, err := NewExecutor(policy)
	require.NoError(t, err)

	validationFailure := genesis.New(context.Background(), genesis.CategoryValidation, "bad input")

	invocations := 0
	_, err = executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
		invocations++
		return nil, validationFailure
	})

	require.Error(t, err)
	assert.Equal(t, 1, invocations)
	assert.Equal(t, genesis.CategoryValidation, genesis.CategoryOf(err))
}

func TestExecutor_PreservesClassifiedError(t *testing.T) {
	executor, err := NewExecutor(fastPolicy(1))
	require.NoError(t, err)

	original := genesis.New(context.Background(), genesis.CategoryRateLimit, "slow down")

	_, err = executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
		return nil, original
	})

	var gerr *genesis.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, genesis.CategoryRateLimit, gerr.Category)
	assert.Equal(t, "slow down", gerr.Message)

	// The attempt accounting lands on a copy; the caller's instance
	// stays as constructed.
	assert.NotSame(t, original, gerr)
	assert.Empty(t, original.Details)
}

func TestExecutor_SharedErrorKeepsItsOwnAccounting(t *testing.T) {
	shared := genesis.New(context.Background(), genesis.CategoryNetwork, "upstream down")

	run := func(maxAttempts int) *genesis.Error {
		executor, err := NewExecutor(fastPolicy(maxAttempts))
		require.NoError(t, err)

		_, err = executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
			return nil, shared
		})

		var gerr *genesis.Error
		require.ErrorAs(t, err, &gerr)

		return gerr
	}

	first := run(3)
	second := run(5)

	attempts, ok := first.Detail(genesis.DetailAttemptsMade)
	require.True(t, ok)
	assert.Equal(t, 3, attempts)

	attempts, ok = second.Detail(genesis.DetailAttemptsMade)
	require.True(t, ok)
	assert.Equal(t, 5, attempts)

	_, ok = shared.Detail(genesis.DetailAttemptsMade)
	assert.False(t, ok)
}

func TestExecutor_OverallDeadlineAbortsLoop(t *testing.T) {
	policy := Policy{
		MaxAttempts: 100,
		Strategy:    backoff.StrategyFixed,
		BaseDelay:   50 * time.Millisecond,
		Timeout:     120 * time.Millisecond,
	}

	executor, err := NewExecutor(policy)
	require.NoError(t, err)

	invocations := 0
	start := time.Now()
	_, err = executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
		invocations++
		return nil, syscall.ECONNREFUSED
	})

	require.Error(t, err)
	assert.Less(t, invocations, 100)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, genesis.CategoryNetwork, genesis.CategoryOf(err))
}

func TestExecutor_CanceledContextStopsBeforeInvoking(t *testing.T) {
	executor, err := NewExecutor(fastPolicy(3))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	invocations := 0
	_, err = executor.Do(ctx, "fetch", func(_ context.Context) (any, error) {
		invocations++
		return nil, nil
	})

	require.Error(t, err)
	assert.Zero(t, invocations)
}

func TestExecutor_JitterUsesInjectedRandom(t *testing.T) {
	policy := Policy{
		MaxAttempts: 2,
		Strategy:    backoff.StrategyExponentialJitter,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	}

	zero := randomFunc(func(int64) int64 { return 0 })

	executor, err := NewExecutor(policy, WithRandom(zero))
	require.NoError(t, err)

	invocations := 0
	start := time.Now()
	_, err = executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
		invocations++
		return nil, syscall.ECONNREFUSED
	})

	require.Error(t, err)
	assert.Equal(t, 2, invocations)
	// Zero jitter means zero waits, so the loop finishes immediately.
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

type randomFunc func(n int64) int64

func (f randomFunc) Int64N(n int64) int64 { return f(n) }

func TestExecutor_BreakerBurnsRemainingBudgetFast(t *testing.T) {
	manager := circuitbreaker.NewManager()
	breaker, err := manager.GetOrCreate("payments", circuitbreaker.Config{
		FailureThreshold: 3,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      time.Hour,
	})
	require.NoError(t, err)

	policy := Policy{
		MaxAttempts: 5,
		Strategy:    backoff.StrategyFixed,
		BaseDelay:   time.Millisecond,
	}

	executor, err := NewExecutor(policy, WithBreaker(breaker))
	require.NoError(t, err)

	invocations := 0
	_, err = executor.Do(context.Background(), "payments", func(_ context.Context) (any, error) {
		invocations++
		return nil, syscall.ECONNREFUSED
	})

	require.Error(t, err)

	// The third failure opens the breaker; attempts 4 and 5 are rejected
	// without invoking the operation or waiting.
	assert.Equal(t, 3, invocations)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	var gerr *genesis.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, genesis.CodeCircuitOpen, gerr.Code)

	attempts, ok := gerr.Detail(genesis.DetailAttemptsMade)
	require.True(t, ok)
	assert.Equal(t, 5, attempts)
}

func TestExecutor_BreakerRejectionSkipsBackoffWait(t *testing.T) {
	manager := circuitbreaker.NewManager()
	breaker, err := manager.GetOrCreate("payments", circuitbreaker.Config{
		FailureThreshold: 1,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      time.Hour,
	})
	require.NoError(t, err)

	// With a long fixed delay, only rejection fast-paths can finish the
	// budget quickly: a single real failure opens the breaker, then the
	// remaining attempts are rejected with no waiting.
	policy := Policy{
		MaxAttempts: 50,
		Strategy:    backoff.StrategyFixed,
		BaseDelay:   time.Second,
	}

	executor, err := NewExecutor(policy, WithBreaker(breaker))
	require.NoError(t, err)

	// Open the breaker before the loop starts.
	_, _ = breaker.Execute(func() (any, error) {
		return nil, errors.New("down")
	})
	require.Equal(t, circuitbreaker.StateOpen, breaker.State())

	invocations := 0
	start := time.Now()
	_, err = executor.Do(context.Background(), "payments", func(_ context.Context) (any, error) {
		invocations++
		return nil, nil
	})

	require.Error(t, err)
	assert.Zero(t, invocations)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, genesis.CodeCircuitOpen, genesis.CodeOf(err))
}

func TestDo_Convenience(t *testing.T) {
	result, err := Do(context.Background(), "fetch", fastPolicy(3), func(_ context.Context) (any, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
}
