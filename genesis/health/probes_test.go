//go:build unit

package health

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbes_LivenessUsesProcessLevelChecksOnly(t *testing.T) {
	registry := NewRegistry()
	registry.Register(staticCheck("heap", Healthy("ok")), ProcessLevel())
	registry.Register(staticCheck("database", Unhealthy("down")), Critical())

	probes := NewProbes(registry)

	// A dead dependency must not fail liveness; restarting the process
	// would not fix the database.
	live := probes.Liveness(context.Background())
	assert.Equal(t, StatusHealthy, live.Status)
	assert.Len(t, live.Checks, 1)
	assert.Contains(t, live.Checks, "heap")

	ready := probes.Readiness(context.Background())
	assert.Equal(t, StatusUnhealthy, ready.Status)
	assert.Len(t, ready.Checks, 2)
}

func TestProbes_LivenessWithoutProcessChecksIsUnknown(t *testing.T) {
	registry := NewRegistry()
	registry.Register(staticCheck("database", Healthy("ok")))

	probes := NewProbes(registry)

	assert.Equal(t, StatusUnknown, probes.Liveness(context.Background()).Status)
}

func TestProbes_StartupLatchesAfterFirstWarmupPass(t *testing.T) {
	var healthy atomic.Bool

	registry := NewRegistry()
	registry.Register(NewCheckFunc("warmup", func(_ context.Context) Result {
		if healthy.Load() {
			return Healthy("warm")
		}

		return Unhealthy("cold")
	}), Critical())

	probes := NewProbes(registry)

	// Not ready while warm-up is still failing.
	assert.Equal(t, StatusUnhealthy, probes.Startup(context.Background()).Status)
	assert.Equal(t, StatusUnhealthy, probes.Startup(context.Background()).Status)

	healthy.Store(true)
	assert.Equal(t, StatusHealthy, probes.Startup(context.Background()).Status)

	// Once latched, startup stays ready regardless of later outcomes.
	healthy.Store(false)
	assert.Equal(t, StatusHealthy, probes.Startup(context.Background()).Status)
}

func TestProbes_ReadinessLatchesStartup(t *testing.T) {
	registry := NewRegistry()
	registry.Register(staticCheck("database", Degraded("slow")))

	probes := NewProbes(registry)

	// A degraded first pass still completes warm-up.
	assert.Equal(t, StatusDegraded, probes.Readiness(context.Background()).Status)
	assert.Equal(t, StatusHealthy, probes.Startup(context.Background()).Status)
}
