package circuitbreaker

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhousteau/genesis-go/genesis/log"
	"github.com/jhousteau/genesis-go/genesis/metrics"
	"github.com/sony/gobreaker"
)

type manager struct {
	breakers  map[string]*Breaker
	configs   map[string]Config // kept so Reset can rebuild with identical settings
	listeners []StateChangeListener
	mu        sync.RWMutex
	logger    log.Logger
	recorder  metrics.Recorder
}

// ManagerOption customizes a Manager.
type ManagerOption func(*manager)

// WithLogger sets the logger used for state transition reporting.
func WithLogger(logger log.Logger) ManagerOption {
	return func(m *manager) {
		m.logger = log.OrNop(logger)
	}
}

// WithRecorder sets the metrics recorder notified of transitions and
// rejections.
func WithRecorder(recorder metrics.Recorder) ManagerOption {
	return func(m *manager) {
		m.recorder = metrics.OrNop(recorder)
	}
}

// NewManager creates a circuit breaker manager. All callers of the same
// logical dependency must go through the same manager so they share one
// breaker instance.
//
//nolint:ireturn
func NewManager(opts ...ManagerOption) Manager {
	m := &manager{
		breakers: make(map[string]*Breaker),
		configs:  make(map[string]Config),
		logger:   log.NewNop(),
		recorder: metrics.NopRecorder{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *manager) GetOrCreate(name string, config Config) (*Breaker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	breaker, exists := m.breakers[name]
	m.mu.RUnlock()

	if exists {
		return breaker, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if breaker, exists = m.breakers[name]; exists {
		return breaker, nil
	}

	breaker = newBreaker(name, m.buildSettings(name, config))
	m.breakers[name] = breaker
	m.configs[name] = config

	m.logger.Log(context.Background(), log.LevelInfo, "created circuit breaker",
		log.String("dependency", name))

	return breaker, nil
}

func (m *manager) buildSettings(name string, config Config) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: config.HalfOpenMaxCalls,
		Interval:    config.Interval,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= config.FailureThreshold {
				return true
			}

			if config.FailureRatio <= 0 || counts.Requests < config.MinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRatio
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			m.handleStateChange(name, stateFromEngine(from), stateFromEngine(to))
		},
	}
}

func (m *manager) lookup(name string) (*Breaker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	breaker, exists := m.breakers[name]

	return breaker, exists
}

func (m *manager) Execute(name string, fn func() (any, error)) (any, error) {
	breaker, exists := m.lookup(name)
	if !exists {
		return nil, fmt.Errorf("%w: %q (call GetOrCreate first)", ErrBreakerNotFound, name)
	}

	result, err := breaker.Execute(fn)
	if err != nil && IsRejection(err) {
		m.recorder.BreakerRejection(name)
		m.logger.Log(context.Background(), log.LevelWarn, "circuit breaker rejected call",
			log.String("dependency", name),
			log.String("state", string(breaker.State())))
	}

	return result, err
}

func (m *manager) GetState(name string) State {
	breaker, exists := m.lookup(name)
	if !exists {
		return StateUnknown
	}

	return breaker.State()
}

func (m *manager) GetCounts(name string) Counts {
	breaker, exists := m.lookup(name)
	if !exists {
		return Counts{}
	}

	return breaker.Counts()
}

func (m *manager) GetMetrics(name string) Metrics {
	breaker, exists := m.lookup(name)
	if !exists {
		return Metrics{}
	}

	return breaker.Metrics()
}

func (m *manager) IsHealthy(name string) bool {
	// Only the closed state counts as healthy; open and half-open both
	// need health checker intervention before full traffic resumes.
	return m.GetState(name) == StateClosed
}

func (m *manager) Reset(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	breaker, exists := m.breakers[name]
	if !exists {
		return
	}

	config, configExists := m.configs[name]
	if !configExists {
		m.logger.Log(context.Background(), log.LevelWarn, "no stored config for breaker, removing",
			log.String("dependency", name))
		delete(m.breakers, name)

		return
	}

	breaker.reset(m.buildSettings(name, config))

	m.logger.Log(context.Background(), log.LevelInfo, "circuit breaker reset",
		log.String("dependency", name))
}

func (m *manager) RegisterStateChangeListener(listener StateChangeListener) {
	if listener == nil {
		m.logger.Log(context.Background(), log.LevelWarn, "ignored nil state change listener")

		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, listener)
}

// handleStateChange reports a transition and notifies listeners.
func (m *manager) handleStateChange(name string, from, to State) {
	level := log.LevelInfo
	if to == StateOpen {
		level = log.LevelError
	}

	m.logger.Log(context.Background(), level, "circuit breaker state changed",
		log.String("dependency", name),
		log.String("from", string(from)),
		log.String("to", string(to)))

	m.recorder.BreakerStateChange(name, string(from), string(to))

	m.mu.RLock()
	listeners := make([]StateChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, listener := range listeners {
		// Notify in a goroutine so a slow listener cannot block the
		// breaker's state machine.
		go func(l StateChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Log(context.Background(), log.LevelError,
						"state change listener panicked",
						log.String("dependency", name),
						log.Any("panic", r))
				}
			}()

			l.OnStateChange(name, from, to)
		}(listener)
	}
}
