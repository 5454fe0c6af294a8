package health

import (
	"context"
	"sync/atomic"
	"time"
)

// Probes adapts a Registry to orchestrator semantics: liveness probes the
// process itself, readiness probes the full dependency aggregate, and
// startup latches once the first warm-up pass completes.
type Probes struct {
	registry *Registry
	started  atomic.Bool
}

// NewProbes wraps a registry with probe semantics.
func NewProbes(registry *Registry) *Probes {
	return &Probes{registry: registry}
}

// Liveness runs process-level checks only. A failure here means the
// process is wedged and should be restarted; downstream dependency
// failures must not restart an otherwise healthy process.
func (p *Probes) Liveness(ctx context.Context) Report {
	p.registry.mu.RLock()
	entries := make(map[string]entry)

	for name, e := range p.registry.entries {
		if e.processLevel {
			entries[name] = e
		}
	}
	p.registry.mu.RUnlock()

	return p.registry.run(ctx, entries)
}

// Readiness runs the full aggregate including downstream dependencies. A
// failure removes the instance from rotation without restarting it.
func (p *Probes) Readiness(ctx context.Context) Report {
	report := p.registry.CheckHealth(ctx)

	// The first pass that is not UNHEALTHY completes warm-up; startup
	// stays ready from then on regardless of later outcomes.
	if !p.started.Load() && report.Status != StatusUnhealthy {
		p.started.Store(true)
	}

	return report
}

// Startup reports whether the initial warm-up sequence has completed
// once. Before that it runs a readiness pass to give warm-up a chance to
// finish.
func (p *Probes) Startup(ctx context.Context) Report {
	if p.started.Load() {
		return Report{
			Status:    StatusHealthy,
			Checks:    map[string]Result{},
			Timestamp: time.Now().UTC(),
		}
	}

	report := p.Readiness(ctx)
	if !p.started.Load() {
		// Still warming up: startup reports not-ready even when the
		// aggregate is merely degraded.
		report.Status = StatusUnhealthy
	}

	return report
}
