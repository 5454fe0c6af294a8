package health

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"
)

// Threshold pair for percentage-based system checks: usage at or above
// Warn degrades, at or above Fail is unhealthy.
type usageThresholds struct {
	warn float64
	fail float64
}

func (t usageThresholds) classify(used float64, resource string) Result {
	switch {
	case used >= t.fail:
		return Unhealthy(fmt.Sprintf("%s usage critical", resource))
	case used >= t.warn:
		return Degraded(fmt.Sprintf("%s usage elevated", resource))
	default:
		return Healthy(fmt.Sprintf("%s usage normal", resource))
	}
}

// DiskCheck reports filesystem usage for one path.
type DiskCheck struct {
	name       string
	path       string
	thresholds usageThresholds
}

// NewDiskCheck builds a disk usage check; warnPercent and failPercent are
// used-space thresholds in [0, 100].
func NewDiskCheck(name, path string, warnPercent, failPercent float64) *DiskCheck {
	return &DiskCheck{
		name:       name,
		path:       path,
		thresholds: usageThresholds{warn: warnPercent, fail: failPercent},
	}
}

func (c *DiskCheck) Name() string { return c.name }

func (c *DiskCheck) Check(_ context.Context) Result {
	usage, err := disk.Usage(c.path)
	if err != nil {
		return Unhealthy(fmt.Sprintf("reading disk usage: %v", err)).
			WithDetail("path", c.path)
	}

	return c.thresholds.classify(usage.UsedPercent, "disk").
		WithDetail("path", c.path).
		WithDetail("used_percent", usage.UsedPercent).
		WithDetail("free_bytes", usage.Free)
}

// MemoryCheck reports virtual memory usage.
type MemoryCheck struct {
	name       string
	thresholds usageThresholds
}

// NewMemoryCheck builds a memory usage check with used-percent thresholds.
func NewMemoryCheck(name string, warnPercent, failPercent float64) *MemoryCheck {
	return &MemoryCheck{
		name:       name,
		thresholds: usageThresholds{warn: warnPercent, fail: failPercent},
	}
}

func (c *MemoryCheck) Name() string { return c.name }

func (c *MemoryCheck) Check(_ context.Context) Result {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Unhealthy(fmt.Sprintf("reading memory info: %v", err))
	}

	return c.thresholds.classify(vm.UsedPercent, "memory").
		WithDetail("used_percent", vm.UsedPercent).
		WithDetail("available_bytes", vm.Available)
}

// CPUCheck reports CPU load sampled over a short window.
type CPUCheck struct {
	name       string
	sample     time.Duration
	thresholds usageThresholds
}

// NewCPUCheck builds a CPU load check with used-percent thresholds.
func NewCPUCheck(name string, warnPercent, failPercent float64) *CPUCheck {
	return &CPUCheck{
		name:       name,
		sample:     100 * time.Millisecond,
		thresholds: usageThresholds{warn: warnPercent, fail: failPercent},
	}
}

func (c *CPUCheck) Name() string { return c.name }

func (c *CPUCheck) Check(_ context.Context) Result {
	out, err := cpu.Percent(c.sample, false)
	if err != nil {
		return Unhealthy(fmt.Sprintf("reading cpu usage: %v", err))
	}

	var used float64
	if len(out) > 0 {
		used = out[0]
	}

	return c.thresholds.classify(used, "cpu").
		WithDetail("used_percent", used)
}
