package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrentCommits is the number of collections committed at once.
	// If 0, defaults to 1.
	MaxConcurrentCommits int64

	// MaxBufferedBytes caps encoded snapshot bytes held in memory.
	// If 0, no limit is enforced (only tracking).
	MaxBufferedBytes int64

	// IOLimitBytesPerSec is the maximum write throughput to the blob store.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Stats is a point-in-time view of controller usage.
type Stats struct {
	InFlightCommits int64
	BufferedBytes   int64
}

// Controller manages commit concurrency, buffered memory and IO rate.
type Controller struct {
	cfg Config

	commitSem *semaphore.Weighted
	inFlight  atomic.Int64

	bufSem   *semaphore.Weighted // nil if unlimited
	buffered atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentCommits <= 0 {
		cfg.MaxConcurrentCommits = 1
	}

	c := &Controller{
		cfg:       cfg,
		commitSem: semaphore.NewWeighted(cfg.MaxConcurrentCommits),
	}

	if cfg.MaxBufferedBytes > 0 {
		c.bufSem = semaphore.NewWeighted(cfg.MaxBufferedBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireCommit blocks until a commit slot is free or ctx is done.
func (c *Controller) AcquireCommit(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.commitSem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.inFlight.Add(1)
	return nil
}

// ReleaseCommit releases a commit slot.
func (c *Controller) ReleaseCommit() {
	if c == nil {
		return
	}
	c.inFlight.Add(-1)
	c.commitSem.Release(1)
}

// AcquireBuffer blocks until bytes of buffer budget are available. Requests
// larger than the whole budget are clamped to it so they can still proceed
// once nothing else is buffered. The returned value must be passed to
// ReleaseBuffer.
func (c *Controller) AcquireBuffer(ctx context.Context, bytes int64) (int64, error) {
	if c == nil || bytes <= 0 {
		return 0, nil
	}
	if c.bufSem != nil {
		bytes = min(bytes, c.cfg.MaxBufferedBytes)
		if err := c.bufSem.Acquire(ctx, bytes); err != nil {
			return 0, err
		}
	}
	c.buffered.Add(bytes)
	return bytes, nil
}

// ReleaseBuffer returns budget obtained from AcquireBuffer.
func (c *Controller) ReleaseBuffer(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.bufSem != nil {
		c.bufSem.Release(bytes)
	}
	c.buffered.Add(-bytes)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Large requests are paced in burst-sized chunks.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// Stats returns current usage.
func (c *Controller) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		InFlightCommits: c.inFlight.Load(),
		BufferedBytes:   c.buffered.Load(),
	}
}
