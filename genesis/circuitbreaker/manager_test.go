//go:build unit

package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDependencyDown = errors.New("dependency down")

func failingCall() (any, error) { return nil, errDependencyDown }

func succeedingCall() (any, error) { return "ok", nil }

func TestManager_InitialState(t *testing.T) {
	manager := NewManager()

	_, err := manager.GetOrCreate("payments", DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, StateClosed, manager.GetState("payments"))
	assert.True(t, manager.IsHealthy("payments"))
}

func TestManager_GetOrCreateValidatesConfig(t *testing.T) {
	manager := NewManager()

	_, err := manager.GetOrCreate("payments", Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestManager_GetOrCreateReturnsSameBreaker(t *testing.T) {
	manager := NewManager()

	first, err := manager.GetOrCreate("payments", DefaultConfig())
	require.NoError(t, err)

	second, err := manager.GetOrCreate("payments", AggressiveConfig())
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestManager_UnknownName(t *testing.T) {
	manager := NewManager()

	assert.Equal(t, StateUnknown, manager.GetState("nope"))
	assert.False(t, manager.IsHealthy("nope"))
	assert.Equal(t, Counts{}, manager.GetCounts("nope"))
	assert.Equal(t, Metrics{}, manager.GetMetrics("nope"))

	_, err := manager.Execute("nope", succeedingCall)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBreakerNotFound)
}

func TestManager_OpensAfterConsecutiveFailures(t *testing.T) {
	manager := NewManager()

	config := Config{
		FailureThreshold: 3,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      time.Minute,
	}
	_, err := manager.GetOrCreate("payments", config)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, execErr := manager.Execute("payments", failingCall)
		assert.ErrorIs(t, execErr, errDependencyDown)
		assert.Equal(t, StateClosed, manager.GetState("payments"))
	}

	_, execErr := manager.Execute("payments", failingCall)
	assert.ErrorIs(t, execErr, errDependencyDown)
	assert.Equal(t, StateOpen, manager.GetState("payments"))
}

func TestManager_OpenFailsFastWithoutInvoking(t *testing.T) {
	manager := NewManager()

	config := Config{
		FailureThreshold: 1,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      time.Minute,
	}
	_, err := manager.GetOrCreate("payments", config)
	require.NoError(t, err)

	_, execErr := manager.Execute("payments", failingCall)
	require.ErrorIs(t, execErr, errDependencyDown)
	require.Equal(t, StateOpen, manager.GetState("payments"))

	invoked := false
	_, execErr = manager.Execute("payments", func() (any, error) {
		invoked = true
		return nil, nil
	})

	assert.ErrorIs(t, execErr, ErrCircuitOpen)
	assert.False(t, invoked)
	assert.True(t, IsRejection(execErr))
}

func TestManager_HalfOpenAfterTimeout(t *testing.T) {
	manager := NewManager()

	config := Config{
		FailureThreshold: 1,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      30 * time.Millisecond,
	}
	_, err := manager.GetOrCreate("payments", config)
	require.NoError(t, err)

	_, _ = manager.Execute("payments", failingCall)
	require.Equal(t, StateOpen, manager.GetState("payments"))

	time.Sleep(60 * time.Millisecond)

	// First call after the timeout is the trial; success closes.
	invocations := 0
	result, execErr := manager.Execute("payments", func() (any, error) {
		invocations++
		return "recovered", nil
	})

	require.NoError(t, execErr)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 1, invocations)
	assert.Equal(t, StateClosed, manager.GetState("payments"))
}

func TestManager_HalfOpenTrialFailureReopens(t *testing.T) {
	manager := NewManager()

	config := Config{
		FailureThreshold: 1,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      30 * time.Millisecond,
	}
	_, err := manager.GetOrCreate("payments", config)
	require.NoError(t, err)

	_, _ = manager.Execute("payments", failingCall)
	require.Equal(t, StateOpen, manager.GetState("payments"))

	time.Sleep(60 * time.Millisecond)

	_, execErr := manager.Execute("payments", failingCall)
	assert.ErrorIs(t, execErr, errDependencyDown)
	assert.Equal(t, StateOpen, manager.GetState("payments"))
}

func TestManager_HalfOpenCapsConcurrentTrials(t *testing.T) {
	breaker, err := NewManager().GetOrCreate("payments", Config{
		FailureThreshold: 1,
		HalfOpenMaxCalls: 2,
		OpenTimeout:      30 * time.Millisecond,
	})
	require.NoError(t, err)

	_, _ = breaker.Execute(failingCall)
	require.Equal(t, StateOpen, breaker.State())

	time.Sleep(60 * time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{}, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _ = breaker.Execute(func() (any, error) {
				started <- struct{}{}
				<-release
				return nil, nil
			})
		}()
	}

	// Wait until both trials hold half-open slots.
	<-started
	<-started

	_, execErr := breaker.Execute(succeedingCall)
	assert.ErrorIs(t, execErr, ErrTooManyCalls)
	assert.True(t, IsRejection(execErr))

	close(release)
	wg.Wait()

	assert.Equal(t, StateClosed, breaker.State())
}

func TestManager_Reset(t *testing.T) {
	manager := NewManager()

	config := Config{
		FailureThreshold: 1,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      time.Minute,
	}
	_, err := manager.GetOrCreate("payments", config)
	require.NoError(t, err)

	_, _ = manager.Execute("payments", failingCall)
	require.Equal(t, StateOpen, manager.GetState("payments"))

	manager.Reset("payments")

	assert.Equal(t, StateClosed, manager.GetState("payments"))

	result, execErr := manager.Execute("payments", succeedingCall)
	require.NoError(t, execErr)
	assert.Equal(t, "ok", result)
}

func TestManager_ResetUnknownNameIsNoop(t *testing.T) {
	manager := NewManager()
	manager.Reset("nope")
	assert.Equal(t, StateUnknown, manager.GetState("nope"))
}

func TestManager_MetricsCountRejections(t *testing.T) {
	manager := NewManager()

	config := Config{
		FailureThreshold: 1,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      time.Minute,
	}
	_, err := manager.GetOrCreate("payments", config)
	require.NoError(t, err)

	_, _ = manager.Execute("payments", succeedingCall)
	_, _ = manager.Execute("payments", failingCall)
	_, _ = manager.Execute("payments", succeedingCall) // rejected, breaker open

	got := manager.GetMetrics("payments")
	assert.Equal(t, uint64(3), got.TotalRequests)
	assert.Equal(t, uint64(1), got.SuccessfulRequests)
	assert.Equal(t, uint64(1), got.FailedRequests)
	assert.Equal(t, uint64(1), got.RejectedRequests)
	assert.InDelta(t, 0.5, got.SuccessRate, 0.001)
}

func TestManager_MetricsSurviveReset(t *testing.T) {
	manager := NewManager()

	config := Config{
		FailureThreshold: 1,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      time.Minute,
	}
	_, err := manager.GetOrCreate("payments", config)
	require.NoError(t, err)

	_, _ = manager.Execute("payments", failingCall)
	manager.Reset("payments")

	got := manager.GetMetrics("payments")
	assert.Equal(t, uint64(1), got.TotalRequests)
	assert.Equal(t, uint64(1), got.FailedRequests)

	// Rolling counts start fresh after a reset.
	assert.Equal(t, Counts{}, manager.GetCounts("payments"))
}

type recordingListener struct {
	mu          sync.Mutex
	transitions []string
	notified    chan struct{}
}

func (l *recordingListener) OnStateChange(name string, from State, to State) {
	l.mu.Lock()
	l.transitions = append(l.transitions, name+":"+string(from)+"->"+string(to))
	l.mu.Unlock()

	select {
	case l.notified <- struct{}{}:
	default:
	}
}

func TestManager_NotifiesStateChangeListener(t *testing.T) {
	manager := NewManager()
	listener := &recordingListener{notified: make(chan struct{}, 1)}
	manager.RegisterStateChangeListener(listener)

	config := Config{
		FailureThreshold: 1,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      time.Minute,
	}
	_, err := manager.GetOrCreate("payments", config)
	require.NoError(t, err)

	_, _ = manager.Execute("payments", failingCall)

	select {
	case <-listener.notified:
	case <-time.After(time.Second):
		t.Fatal("listener was not notified of the transition")
	}

	listener.mu.Lock()
	defer listener.mu.Unlock()
	assert.Contains(t, listener.transitions, "payments:closed->open")
}

func TestManager_RegisterNilListenerIsIgnored(t *testing.T) {
	manager := NewManager()
	manager.RegisterStateChangeListener(nil)

	config := Config{
		FailureThreshold: 1,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      time.Minute,
	}
	_, err := manager.GetOrCreate("payments", config)
	require.NoError(t, err)

	// No panic when a transition fires with no listeners.
	_, _ = manager.Execute("payments", failingCall)
	assert.Equal(t, StateOpen, manager.GetState("payments"))
}

func TestManager_BreakersAreIndependent(t *testing.T) {
	manager := NewManager()

	config := Config{
		FailureThreshold: 1,
		HalfOpenMaxCalls: 1,
		OpenTimeout:      time.Minute,
	}
	_, err := manager.GetOrCreate("payments", config)
	require.NoError(t, err)
	_, err = manager.GetOrCreate("inventory", config)
	require.NoError(t, err)

	_, _ = manager.Execute("payments", failingCall)

	assert.Equal(t, StateOpen, manager.GetState("payments"))
	assert.Equal(t, StateClosed, manager.GetState("inventory"))
}

func TestManager_ConcurrentGetOrCreate(t *testing.T) {
	manager := NewManager()
	config := DefaultConfig()

	var wg sync.WaitGroup

	breakers := make([]*Breaker, 16)
	for i := range breakers {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			breaker, err := manager.GetOrCreate("shared", config)
			assert.NoError(t, err)
			breakers[i] = breaker
		}(i)
	}

	wg.Wait()

	for _, breaker := range breakers[1:] {
		assert.Same(t, breakers[0], breaker)
	}
}
