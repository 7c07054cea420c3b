package sigutil

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func Done() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		select {
		case <-c:
			close(done)
		}
	}()

	return done
}

// Context derives a context that is cancelled on interrupt or SIGTERM.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
