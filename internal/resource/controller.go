// Package resource tracks the memory and IO budget of resident file buffers.
//
// The Controller serves two concerns: a hard budget on bytes held in memory
// by loaded block files, and an IO throttle for speculative background
// loads. Demand loads are never throttled; only the prefetcher consults the
// budget before doing speculative work.
package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when the memory budget would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard budget for resident buffer memory.
	// If 0, no limit is enforced (only tracking).
	MemoryLimitBytes int64

	// IOLimitBytesPerSec is the maximum IO throughput for speculative loads.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages the global buffer memory budget and prefetch IO rate.
//
// A nil *Controller is valid and enforces nothing.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireMemory attempts to reserve memory for a buffer about to be loaded.
// Returns ErrMemoryLimitExceeded if the budget would be exceeded.
// Non-blocking - callers control retry/backoff policy.
//
// On success the reservation must later be returned with
// ReleaseMemory(bytes, true).
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ForceAcquireMemory reserves memory even past the configured limit.
// Demand loads use this: the cache must serve the read regardless, so the
// budget only steers speculative work. The returned flag reports whether
// the reservation fit the budget and must be passed to ReleaseMemory.
func (c *Controller) ForceAcquireMemory(bytes int64) (reserved bool) {
	if c == nil || bytes <= 0 {
		return false
	}
	reserved = c.memSem != nil && c.memSem.TryAcquire(bytes)
	c.memUsed.Add(bytes)
	return reserved
}

// ReleaseMemory releases memory acquired via AcquireMemory or
// ForceAcquireMemory. reserved must match the acquisition: true for
// AcquireMemory and for ForceAcquireMemory calls that reported a fit.
func (c *Controller) ReleaseMemory(bytes int64, reserved bool) {
	if c == nil || bytes <= 0 {
		return
	}

	if reserved && c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	// WaitN cannot exceed the limiter burst; clamp and drain in chunks.
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := bytes
		if n > burst {
			n = burst
		}
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// TryAcquireIO attempts to acquire IO tokens without blocking.
func (c *Controller) TryAcquireIO(bytes int) bool {
	if c == nil || c.ioLimiter == nil {
		return true
	}
	return c.ioLimiter.AllowN(time.Now(), bytes)
}
