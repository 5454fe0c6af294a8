package circuitbreaker

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/jhousteau/genesis-go/genesis/log"
)

var (
	// ErrInvalidProbeInterval indicates that the probe interval must be positive.
	ErrInvalidProbeInterval = errors.New("circuitbreaker: probe interval must be positive")
	// ErrInvalidProbeTimeout indicates that the probe timeout must be positive.
	ErrInvalidProbeTimeout = errors.New("circuitbreaker: probe timeout must be positive")
)

// healthChecker probes unhealthy dependencies in the background and resets
// their breakers once a probe succeeds, so recovery does not depend on live
// traffic reaching the half-open window.
type healthChecker struct {
	manager        Manager
	probes         map[string]HealthCheckFunc
	interval       time.Duration
	probeTimeout   time.Duration
	logger         log.Logger
	stopChan       chan struct{}
	immediateCheck chan string
	wg             sync.WaitGroup
	mu             sync.RWMutex
}

// NewHealthChecker creates a recovery probe loop bound to a manager.
// interval is how often unhealthy dependencies are probed; probeTimeout
// bounds each individual probe call.
//
//nolint:ireturn
func NewHealthChecker(manager Manager, interval, probeTimeout time.Duration, logger log.Logger) (HealthChecker, error) {
	if interval <= 0 {
		return nil, ErrInvalidProbeInterval
	}

	if probeTimeout <= 0 {
		return nil, ErrInvalidProbeTimeout
	}

	return &healthChecker{
		manager:        manager,
		probes:         make(map[string]HealthCheckFunc),
		interval:       interval,
		probeTimeout:   probeTimeout,
		logger:         log.OrNop(logger),
		stopChan:       make(chan struct{}),
		immediateCheck: make(chan string, 10),
	}, nil
}

// Register adds a recovery probe for a dependency.
func (hc *healthChecker) Register(name string, probe HealthCheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.probes[name] = probe
	hc.logger.Log(context.Background(), log.LevelInfo, "registered recovery probe",
		log.String("dependency", name))
}

// Start begins the probe loop.
func (hc *healthChecker) Start() {
	hc.wg.Add(1)

	go hc.probeLoop()

	hc.logger.Log(context.Background(), log.LevelInfo, "recovery prober started",
		log.Duration("interval", hc.interval))
}

// Stop gracefully stops the probe loop.
func (hc *healthChecker) Stop() {
	close(hc.stopChan)
	hc.wg.Wait()
	hc.logger.Log(context.Background(), log.LevelInfo, "recovery prober stopped")
}

func (hc *healthChecker) probeLoop() {
	defer hc.wg.Done()

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	// Entering the select immediately keeps the prober responsive to
	// immediate checks from the moment it starts.
	for {
		select {
		case <-ticker.C:
			hc.probeUnhealthy()
		case name := <-hc.immediateCheck:
			hc.probeOne(name)
		case <-hc.stopChan:
			return
		}
	}
}

func (hc *healthChecker) probeUnhealthy() {
	hc.mu.RLock()
	// Snapshot so probes run without holding the lock.
	probes := make(map[string]HealthCheckFunc, len(hc.probes))
	maps.Copy(probes, hc.probes)

	hc.mu.RUnlock()

	unhealthy := 0
	recovered := 0

	for name, probe := range probes {
		if hc.manager.IsHealthy(name) {
			continue
		}

		unhealthy++

		if hc.runProbe(name, probe) {
			recovered++
		}
	}

	if unhealthy > 0 {
		hc.logger.Log(context.Background(), log.LevelInfo, "recovery probe pass complete",
			log.Int("unhealthy", unhealthy),
			log.Int("recovered", recovered))
	}
}

// probeOne probes a single dependency by name if it is registered and
// currently unhealthy.
func (hc *healthChecker) probeOne(name string) {
	hc.mu.RLock()
	probe, exists := hc.probes[name]
	hc.mu.RUnlock()

	if !exists {
		hc.logger.Log(context.Background(), log.LevelWarn, "no recovery probe registered",
			log.String("dependency", name))

		return
	}

	if hc.manager.IsHealthy(name) {
		return
	}

	hc.runProbe(name, probe)
}

// runProbe executes a probe under probeTimeout and resets the breaker on
// success. Returns true if the dependency recovered.
func (hc *healthChecker) runProbe(name string, probe HealthCheckFunc) bool {
	ctx, cancel := context.WithTimeout(context.Background(), hc.probeTimeout)
	err := probe(ctx)

	cancel()

	if err != nil {
		hc.logger.Log(context.Background(), log.LevelWarn, "dependency still unhealthy",
			log.String("dependency", name),
			log.Err(err),
			log.Duration("retry_in", hc.interval))

		return false
	}

	hc.logger.Log(context.Background(), log.LevelInfo, "dependency recovered, resetting breaker",
		log.String("dependency", name))
	hc.manager.Reset(name)

	return true
}

// GetHealthStatus returns the breaker state of every probed dependency.
func (hc *healthChecker) GetHealthStatus() map[string]string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := make(map[string]string, len(hc.probes))

	for name := range hc.probes {
		status[name] = string(hc.manager.GetState(name))
	}

	return status
}

// OnStateChange implements StateChangeListener. A breaker opening schedules
// an immediate recovery probe instead of waiting for the next tick.
func (hc *healthChecker) OnStateChange(name string, _ State, to State) {
	if to != StateOpen {
		return
	}

	select {
	case hc.immediateCheck <- name:
	default:
		hc.logger.Log(context.Background(), log.LevelWarn, "immediate probe queue full",
			log.String("dependency", name))
	}
}
