package daemon

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// WatchSignals cancels on the first SIGINT or SIGTERM. Later signals are
// logged and otherwise ignored so shutdown is not interrupted. Call stop to
// release the handler.
func WatchSignals(cancel context.CancelFunc) (stop func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		received := false
		for {
			select {
			case sig := <-ch:
				if received {
					slog.Warn("shutdown already in progress", "signal", sig.String())
					continue
				}
				received = true
				slog.Info("received signal, shutting down", "signal", sig.String())
				cancel()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}
