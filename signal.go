package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// shutdownContext derives a context from parent that cancels on the first
// SIGINT/SIGTERM, which a running Producer or Consumer observes at its next
// suspension point (a queue pop, an HTTP read, a broker poll) and unwinds
// from (spec.md §4.3, §5 "Cancellation"). A second signal before the
// process has exited on its own means something is stuck draining, so it
// forces an immediate exit instead.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go watchSignals(ctx, parent, cancel, signals, logger)

	return ctx
}

// watchSignals runs until ctx is cancelled (first signal handled) or
// parent is done (caller torn down without a signal ever arriving), then
// waits for one more signal to force-exit the process.
func watchSignals(ctx, parent context.Context, cancel context.CancelFunc, signals chan os.Signal, logger *slog.Logger) {
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		logger.Info("shutdown signal received, cancelling the active runner",
			slog.String("signal", sig.String()),
		)
		cancel()
	case <-ctx.Done():
		return
	}

	select {
	case sig := <-signals:
		logger.Warn("second shutdown signal received, exiting without waiting for drain",
			slog.String("signal", sig.String()),
		)
		os.Exit(1)
	case <-parent.Done():
	}
}
