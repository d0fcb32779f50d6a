// Package termination ties a context to the process receiving SIGINT or SIGTERM.
package termination

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

var ErrTerminated = errors.New("terminated")

// Handle blocks until the process is signalled, returning ErrTerminated, or until ctx is done.
func Handle(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		return ErrTerminated
	case <-ctx.Done():
		return nil
	}
}

// WithSignals returns a context that is cancelled with the cause ErrTerminated when the
// process is signalled. Calling stop releases the signal handler.
func WithSignals(ctx context.Context) (_ context.Context, stop func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	go func() {
		if err := Handle(ctx); err != nil {
			cancel(err)
		}
	}()
	return ctx, func() { cancel(context.Canceled) }
}
