// Package resource provides admission control for a tracker: an optional hard
// memory budget, a throttle for diagnostic emission, and IO rate limiting for
// report sinks.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for memory handed out by the
	// tracker, including sentinel padding. If 0, no limit is enforced
	// (only tracking).
	MemoryLimitBytes int64

	// DiagnosticsPerSec throttles diagnostic emission. A corruption storm can
	// otherwise flood the sink faster than anyone can read it. If 0,
	// diagnostics are never throttled.
	DiagnosticsPerSec float64

	// DiagnosticBurst is the token-bucket burst for diagnostics.
	// If 0, defaults to 16.
	DiagnosticBurst int

	// IOLimitBytesPerSec is the maximum throughput for report and snapshot
	// sinks wrapped by RateLimitedWriter. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages a tracker's resource budgets.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Diagnostics
	diagLimiter *rate.Limiter // nil if unlimited
	diagDropped atomic.Uint64

	// IO
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.DiagnosticsPerSec > 0 {
		burst := cfg.DiagnosticBurst
		if burst <= 0 {
			burst = 16
		}
		c.diagLimiter = rate.NewLimiter(rate.Limit(cfg.DiagnosticsPerSec), burst)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// TryAcquireMemory attempts to reserve memory without blocking.
// Returns true if acquired, false if the limit would be exceeded.
// Allocation paths must not block, so there is no waiting variant.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil {
		return true
	}
	if bytes <= 0 {
		return true
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return false
		}
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the currently reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AllowDiagnostic reports whether one diagnostic may be emitted now.
// Suppressed diagnostics are counted, never dropped silently.
func (c *Controller) AllowDiagnostic() bool {
	if c == nil || c.diagLimiter == nil {
		return true
	}
	if c.diagLimiter.Allow() {
		return true
	}
	c.diagDropped.Add(1)
	return false
}

// DroppedDiagnostics returns how many diagnostics were suppressed by the
// throttle since construction.
func (c *Controller) DroppedDiagnostics() uint64 {
	if c == nil {
		return 0
	}
	return c.diagDropped.Load()
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}
