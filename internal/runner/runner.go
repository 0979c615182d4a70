// Package runner provides the cooperative task host shared by the Producer
// and Consumer (spec.md §4.3). Where the Python original expresses this
// commonality through inheritance from an ActionRunnerBase, the idiomatic
// Go mapping is composition: Producer and Consumer each hold a *Runner field,
// created afresh on every Run, and supply a single runAction function
// (spec.md §9, "Shared runner base").
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Runner owns the event loop lifecycle: spawned task tracking, a counter
// used for observability, and signal/explicit-triggered shutdown.
//
// Concurrency model note (spec.md §4.3, §9 "Graceful shutdown with no
// workers"): every task this Runner spawns, and the main action itself,
// observes the same cancellable context. Cancelling it reaches every
// goroutine whether or not any have been spawned yet, so there is no need
// to special-case "no tasks retained" the way the Python original does by
// falling back to asyncio.all_tasks().
type Runner struct {
	name   string
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	group   *errgroup.Group
	counter atomic.Int64
}

// New creates a Runner whose context is a cancellable child of parent.
// name identifies the runner in the "finished" log line (e.g. "producer",
// "consumer").
func New(parent context.Context, logger *slog.Logger, name string) *Runner {
	ctx, cancel := context.WithCancel(parent)

	return &Runner{
		name:   name,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		group:  &errgroup.Group{},
	}
}

// Context returns the Runner's cancellable context. Every blocking
// operation performed by spawned tasks or the main action should select on
// ctx.Done() alongside its own I/O.
func (r *Runner) Context() context.Context {
	return r.ctx
}

// Spawn starts a concurrent task and retains it for the join performed by
// Run. task must return promptly once ctx is cancelled.
func (r *Runner) Spawn(task func(ctx context.Context)) {
	r.group.Go(func() error {
		task(r.ctx)
		return nil
	})
}

// IncrCounter atomically increments the observability counter.
func (r *Runner) IncrCounter() {
	r.counter.Add(1)
}

// Counter returns the current observability counter value.
func (r *Runner) Counter() int64 {
	return r.counter.Load()
}

// Shutdown cancels the Runner's context, which every spawned task and the
// main action observe on their next suspension point.
func (r *Runner) Shutdown() {
	r.cancel()
}

// Run drives runAction to completion, joins every spawned task, and emits
// exactly one info-level "finished" log line. A context-cancellation error
// returned by runAction is treated as the expected terminal condition and
// is not propagated to the caller; any other error is.
func (r *Runner) Run(runAction func(ctx context.Context) error) error {
	err := runAction(r.ctx)

	_ = r.group.Wait()

	r.logger.Info(r.name + " finished")

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return nil
}
