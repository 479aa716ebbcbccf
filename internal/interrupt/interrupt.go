// Package interrupt turns asynchronous interrupt signals into cooperative
// cancellation that respects the action transaction's critical section.
//
// The first interrupt is recorded and cancels the controller's context, so a
// pipeline blocked waiting on the feed wakes up. If a transaction is in
// flight (between Begin and End) the stop is deferred: the transaction runs
// on a context detached from cancellation and the pipeline only checks
// Stopping between events. A second interrupt before shutdown completes means
// the operator insists; the controller stops the process immediately without
// flushing.
//
// Interrupt never blocks and never touches the dedup store.
package interrupt

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// ExitHardStop is the exit code used when a repeated interrupt forces an
// immediate stop.
const ExitHardStop = 130

// Controller owns the pending-transaction flag and the stop request.
type Controller struct {
	pending   atomic.Bool
	requested atomic.Bool
	count     atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc

	hardStop func(code int)
	observe  func()
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithHardStop replaces os.Exit as the escalation path.
func WithHardStop(fn func(code int)) Option {
	return func(c *Controller) {
		c.hardStop = fn
	}
}

// WithObserver is called on every interrupt, e.g. to count them.
func WithObserver(fn func()) Option {
	return func(c *Controller) {
		c.observe = fn
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New returns a controller whose context derives from parent.
func New(parent context.Context, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		ctx:      ctx,
		cancel:   cancel,
		hardStop: os.Exit,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Context is cancelled by the first interrupt. Blocking waits outside the
// critical section should use it.
func (c *Controller) Context() context.Context {
	return c.ctx
}

// Interrupt records an interrupt request. Safe to call from any goroutine at
// any time, including mid-transaction.
func (c *Controller) Interrupt() {
	if c.observe != nil {
		c.observe()
	}

	if c.count.Add(1) > 1 {
		c.logger.Warn("repeated interrupt, stopping immediately without flushing")
		c.hardStop(ExitHardStop)
		return
	}

	c.requested.Store(true)
	if c.pending.Load() {
		c.logger.Info("interrupt deferred until the in-flight reply is recorded; repeat to stop immediately")
	} else {
		c.logger.Info("exiting, repeat to stop immediately")
	}
	c.cancel()
}

// Begin marks a transaction as in flight.
func (c *Controller) Begin() {
	c.pending.Store(true)
}

// End clears the in-flight mark.
func (c *Controller) End() {
	c.pending.Store(false)
	if c.requested.Load() {
		c.logger.Info("transaction finished, honoring deferred interrupt")
	}
}

// Pending reports whether a transaction is in flight.
func (c *Controller) Pending() bool {
	return c.pending.Load()
}

// Requested reports whether an interrupt has been received.
func (c *Controller) Requested() bool {
	return c.requested.Load()
}

// Stopping reports whether the pipeline should stop at this check point:
// an interrupt was received and no transaction is in flight.
func (c *Controller) Stopping() bool {
	return c.requested.Load() && !c.pending.Load()
}

// Release cancels the controller's context without recording an interrupt.
func (c *Controller) Release() {
	c.cancel()
}

// Watch forwards the given signals to Interrupt until the returned stop
// function is called. The watcher outlives the controller's own context so
// that a second signal can still escalate.
func (c *Controller) Watch(sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case sig := <-ch:
				c.logger.Debug("signal received", "signal", sig)
				c.Interrupt()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
			wg.Wait()
		})
	}
}
