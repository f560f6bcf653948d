// Package coordinator runs list refreshes in the background on a fixed interval.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	pkgsync "github.com/stacklok/extguard/internal/sync"
)

// DefaultInterval matches the refresh period used when none is configured
const DefaultInterval = 30 * time.Minute

// Coordinator manages background refresh scheduling
type Coordinator interface {
	// Start runs a refresh immediately and then on every tick.
	// Blocks until the context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop stops the coordinator and waits for the running batch to finish
	Stop() error
}

// BatchHook is called after every background batch
type BatchHook func(ctx context.Context, result *pkgsync.BatchResult)

type defaultCoordinator struct {
	manager   pkgsync.Manager
	interval  time.Duration
	bootstrap bool
	hooks     []BatchHook

	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithInterval sets the refresh interval
func WithInterval(interval time.Duration) Option {
	return func(c *defaultCoordinator) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithBootstrap loads bundled data for empty sources before the first refresh
func WithBootstrap() Option {
	return func(c *defaultCoordinator) {
		c.bootstrap = true
	}
}

// WithBatchHook registers a function run after every batch
func WithBatchHook(hook BatchHook) Option {
	return func(c *defaultCoordinator) {
		c.hooks = append(c.hooks, hook)
	}
}

// New creates a new coordinator
func New(manager pkgsync.Manager, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:  manager,
		interval: DefaultInterval,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins background refresh coordination
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting background refresh coordinator", "interval", c.interval)

	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	defer func() {
		close(c.done)
		slog.Info("Background refresh coordinator shutting down")
	}()

	if c.bootstrap {
		if _, err := c.manager.LoadInitialData(coordCtx, false); err != nil {
			slog.Error("Failed to load bundled lists", "error", err)
		}
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.runBatch(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.runBatch(coordCtx)
		case <-coordCtx.Done():
			slog.Info("Refresh coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	if c.cancelFunc != nil {
		slog.Info("Stopping refresh coordinator")
		c.cancelFunc()
		<-c.done
	}
	return nil
}

func (c *defaultCoordinator) runBatch(ctx context.Context) {
	result, err := c.manager.UpdateAll(ctx, false)
	if err != nil {
		slog.Error("Background refresh failed", "error", err)
		return
	}
	for _, hook := range c.hooks {
		hook(ctx, result)
	}
}
