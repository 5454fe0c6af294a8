package retry

import (
	"context"
	"time"

	"github.com/jhousteau/genesis-go/genesis"
	"github.com/jhousteau/genesis-go/genesis/backoff"
	"github.com/jhousteau/genesis-go/genesis/circuitbreaker"
	"github.com/jhousteau/genesis-go/genesis/log"
	"github.com/jhousteau/genesis-go/genesis/metrics"
)

// Operation is one retryable unit of work.
type Operation func(ctx context.Context) (any, error)

// Executor drives an Operation under a Policy, classifying each failure,
// waiting between attempts, and optionally routing every invocation
// through a shared circuit breaker.
type Executor struct {
	policy   Policy
	logger   log.Logger
	recorder metrics.Recorder
	breaker  *circuitbreaker.Breaker
	rnd      backoff.Random
}

// Option customizes an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for per-attempt reporting.
func WithLogger(logger log.Logger) Option {
	return func(e *Executor) {
		e.logger = log.OrNop(logger)
	}
}

// WithRecorder sets the metrics recorder for attempt and exhaustion counts.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(e *Executor) {
		e.recorder = metrics.OrNop(recorder)
	}
}

// WithBreaker routes every attempt through breaker. The breaker must be
// the shared instance for the protected dependency; once it opens the
// remaining attempts fail fast without their backoff waits.
func WithBreaker(breaker *circuitbreaker.Breaker) Option {
	return func(e *Executor) {
		e.breaker = breaker
	}
}

// WithRandom sets the jitter randomness source. Tests inject a seeded
// source for reproducible delays.
func WithRandom(rnd backoff.Random) Option {
	return func(e *Executor) {
		e.rnd = rnd
	}
}

// NewExecutor validates the policy and builds an Executor.
func NewExecutor(policy Policy, opts ...Option) (*Executor, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{
		policy:   policy,
		logger:   log.NewNop(),
		recorder: metrics.NopRecorder{},
		rnd:      backoff.DefaultRandom(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Do runs op until it succeeds, the attempt budget is spent, the failure
// is not retryable, or the deadline passes, whichever comes first. name
// identifies the operation in logs and metrics.
//
// Failures come back as a classified *genesis.Error carrying the number
// of attempts made and the last computed delay. A failure rejected by an
// open breaker carries the circuit-open code so monitoring can tell
// "dependency call failed" from "dependency protection engaged".
func (e *Executor) Do(ctx context.Context, name string, op Operation) (any, error) {
	if e.policy.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.policy.Timeout)
		defer cancel()
	}

	var (
		lastErr   *genesis.Error
		lastDelay time.Duration
		rejected  bool
	)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, e.exhausted(ctx, name, genesis.Handle(ctx, err), attempt-1, lastDelay, false)
		}

		result, err := e.invoke(ctx, op)
		if err == nil {
			if attempt > 1 {
				e.logger.Log(ctx, log.LevelInfo, "operation succeeded after retry",
					log.String("operation", name),
					log.Int("attempt", attempt))
			}

			return result, nil
		}

		rejected = circuitbreaker.IsRejection(err)
		lastErr = genesis.Handle(ctx, err)

		if attempt >= e.policy.MaxAttempts {
			return nil, e.exhausted(ctx, name, lastErr, attempt, lastDelay, rejected)
		}

		if rejected {
			// The breaker is open: every further call fails fast, so
			// waiting between attempts only delays the inevitable.
			// Burn the remaining budget without backoff.
			e.recorder.RetryAttempt(name, attempt, 0)

			continue
		}

		if !e.policy.retryable(lastErr) {
			e.logger.Log(ctx, log.LevelWarn, "failure is not retryable",
				log.String("operation", name),
				log.Int("attempt", attempt),
				log.String("category", string(lastErr.Category)))

			return nil, e.exhausted(ctx, name, lastErr, attempt, lastDelay, rejected)
		}

		lastDelay = backoff.Delay(e.policy.Strategy, attempt, e.policy.BaseDelay, e.policy.MaxDelay, e.rnd)

		e.recorder.RetryAttempt(name, attempt, lastDelay)
		e.logger.Log(ctx, log.LevelWarn, "operation failed, retrying",
			log.String("operation", name),
			log.Int("attempt", attempt),
			log.Int("max_attempts", e.policy.MaxAttempts),
			log.Duration("delay", lastDelay),
			log.Err(lastErr))

		if err := backoff.SleepWithContext(ctx, lastDelay); err != nil {
			return nil, e.exhausted(ctx, name, genesis.Handle(ctx, err), attempt, lastDelay, false)
		}
	}
}

func (e *Executor) invoke(ctx context.Context, op Operation) (any, error) {
	if e.breaker == nil {
		return op(ctx)
	}

	return e.breaker.Execute(func() (any, error) {
		return op(ctx)
	})
}

// exhausted enriches the final error with the attempt accounting and
// reports the exhaustion. The operation may hand back a pre-classified
// error it still holds, so the accounting goes onto a clone.
func (e *Executor) exhausted(ctx context.Context, name string, gerr *genesis.Error, attempts int, lastDelay time.Duration, rejected bool) *genesis.Error {
	gerr = gerr.Clone()
	gerr.WithDetail(genesis.DetailAttemptsMade, attempts).
		WithDetail(genesis.DetailLastDelay, lastDelay.String())

	if rejected {
		gerr.WithCode(genesis.CodeCircuitOpen)
	}

	e.recorder.RetryExhausted(name, attempts)
	e.logger.Log(ctx, log.LevelError, "operation failed permanently",
		log.String("operation", name),
		log.Int("attempts", attempts),
		log.String("code", gerr.Code),
		log.Err(gerr))

	return gerr
}

// Do is the package-level convenience: build an Executor for one call.
func Do(ctx context.Context, name string, policy Policy, op Operation, opts ...Option) (any, error) {
	executor, err := NewExecutor(policy, opts...)
	if err != nil {
		return nil, err
	}

	return executor.Do(ctx, name, op)
}
