package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhousteau/genesis-go/genesis/log"
	"github.com/jhousteau/genesis-go/genesis/metrics"
	"golang.org/x/sync/errgroup"
)

// Status is the outcome of one check or of the whole aggregate.
type Status string

const (
	StatusHealthy   Status = "HEALTHY"
	StatusDegraded  Status = "DEGRADED"
	StatusUnhealthy Status = "UNHEALTHY"
	StatusUnknown   Status = "UNKNOWN"
)

// Result is one check outcome.
type Result struct {
	Status     Status         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	DurationMS int64          `json:"duration_ms"`
}

// Report is the aggregate outcome across all registered checks.
type Report struct {
	Status     Status            `json:"status"`
	Checks     map[string]Result `json:"checks"`
	Timestamp  time.Time         `json:"timestamp"`
	DurationMS int64             `json:"duration_ms"`
}

// Check probes one dependency or process resource.
type Check interface {
	Name() string
	Check(ctx context.Context) Result
}

// Healthy builds a passing Result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now().UTC()}
}

// Degraded builds a degraded Result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Timestamp: time.Now().UTC()}
}

// Unhealthy builds a failing Result.
func Unhealthy(message string) Result {
	return Result{Status: StatusUnhealthy, Message: message, Timestamp: time.Now().UTC()}
}

// WithDetail attaches one detail entry, allocating the map lazily.
func (r Result) WithDetail(key string, value any) Result {
	if r.Details == nil {
		r.Details = map[string]any{}
	}

	r.Details[key] = value

	return r
}

const (
	// DefaultCheckTimeout bounds checks registered without an explicit
	// timeout.
	DefaultCheckTimeout = 5 * time.Second
	// DefaultMaxConcurrent bounds the check fan-out.
	DefaultMaxConcurrent = 8
)

type entry struct {
	check        Check
	critical     bool
	processLevel bool
	timeout      time.Duration
}

// RegisterOption customizes one registration.
type RegisterOption func(*entry)

// Critical marks a check whose failure makes the whole aggregate
// UNHEALTHY. Non-critical failures only degrade it.
func Critical() RegisterOption {
	return func(e *entry) {
		e.critical = true
	}
}

// ProcessLevel marks a check as probing the process itself rather than a
// downstream dependency; only process-level checks feed the liveness
// probe.
func ProcessLevel() RegisterOption {
	return func(e *entry) {
		e.processLevel = true
	}
}

// WithCheckTimeout overrides the default per-check timeout.
func WithCheckTimeout(timeout time.Duration) RegisterOption {
	return func(e *entry) {
		e.timeout = timeout
	}
}

// Registry holds named checks and aggregates their outcomes. Safe for
// concurrent registration and checking.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry

	logger        log.Logger
	recorder      metrics.Recorder
	maxConcurrent int
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger for registration warnings and check panics.
func WithLogger(logger log.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = log.OrNop(logger)
	}
}

// WithRecorder sets the recorder notified of each check outcome.
func WithRecorder(recorder metrics.Recorder) RegistryOption {
	return func(r *Registry) {
		r.recorder = metrics.OrNop(recorder)
	}
}

// WithMaxConcurrent bounds how many checks run at once.
func WithMaxConcurrent(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxConcurrent = n
		}
	}
}

// NewRegistry creates an empty check registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries:       make(map[string]entry),
		logger:        log.NewNop(),
		recorder:      metrics.NopRecorder{},
		maxConcurrent: DefaultMaxConcurrent,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a check under its name. Re-registering a name replaces
// the previous check, last write wins, with a warning.
func (r *Registry) Register(check Check, opts ...RegisterOption) {
	e := entry{check: check, timeout: DefaultCheckTimeout}
	for _, opt := range opts {
		opt(&e)
	}

	r.mu.Lock()
	_, replaced := r.entries[check.Name()]
	r.entries[check.Name()] = e
	r.mu.Unlock()

	if replaced {
		r.logger.Log(context.Background(), log.LevelWarn, "health check replaced",
			log.String("check", check.Name()))
	}
}

// CheckHealth runs every registered check concurrently, bounded by the
// fan-out limit, and aggregates the outcomes. The wall-clock cost is
// bounded by the slowest admitted check, never the sum.
func (r *Registry) CheckHealth(ctx context.Context) Report {
	r.mu.RLock()
	entries := make(map[string]entry, len(r.entries))
	for name, e := range r.entries {
		entries[name] = e
	}
	r.mu.RUnlock()

	return r.run(ctx, entries)
}

func (r *Registry) run(ctx context.Context, entries map[string]entry) Report {
	start := time.Now()

	report := Report{
		Checks:    make(map[string]Result, len(entries)),
		Timestamp: start.UTC(),
	}

	if len(entries) == 0 {
		report.Status = StatusUnknown

		return report
	}

	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.maxConcurrent)

	for name, e := range entries {
		group.Go(func() error {
			result := r.runOne(groupCtx, e)

			mu.Lock()
			report.Checks[name] = result
			mu.Unlock()

			r.recorder.HealthCheck(name, string(result.Status), time.Duration(result.DurationMS)*time.Millisecond)

			return nil
		})
	}

	// Checks never return errors through the group; failures are results.
	_ = group.Wait()

	report.Status = aggregate(entries, report.Checks)
	report.DurationMS = time.Since(start).Milliseconds()

	return report
}

// runOne executes a single check under its timeout with panic recovery.
// A check that overruns its timeout yields UNHEALTHY instead of hanging
// the aggregate; the stray goroutine is abandoned.
func (r *Registry) runOne(ctx context.Context, e entry) Result {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan Result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Log(ctx, log.LevelError, "health check panicked",
					log.String("check", e.check.Name()),
					log.Any("panic", rec))

				done <- Unhealthy(fmt.Sprintf("check panicked: %v", rec))
			}
		}()

		done <- e.check.Check(checkCtx)
	}()

	var result Result

	select {
	case result = <-done:
	case <-checkCtx.Done():
		result = Unhealthy(fmt.Sprintf("check timed out after %s", e.timeout))
	}

	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}

	result.DurationMS = time.Since(start).Milliseconds()

	return result
}

// aggregate folds individual outcomes into the overall status: any
// critical UNHEALTHY makes the whole aggregate UNHEALTHY; any DEGRADED
// or non-critical UNHEALTHY degrades it; otherwise HEALTHY.
func aggregate(entries map[string]entry, results map[string]Result) Status {
	status := StatusHealthy

	for name, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			if entries[name].critical {
				return StatusUnhealthy
			}

			status = StatusDegraded
		case StatusDegraded, StatusUnknown:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		case StatusHealthy:
		}
	}

	return status
}
