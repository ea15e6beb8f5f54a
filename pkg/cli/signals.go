package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ShutdownSignals are the signals that start a graceful shutdown.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

var (
	osExit = os.Exit
	// exitFunc is replaced in tests.
	exitFunc = osExit
)

// SetupSignalHandler returns a context that is canceled on the first
// SIGINT or SIGTERM. A second signal exits the process immediately with
// status 1, so a stuck stream cannot hold the shutdown forever.
//
// The returned stop function releases the signal handler and cancels the
// context.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, ShutdownSignals...)

	stopped := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(stopped)
			cancel()
		})
	}

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-stopped:
			return
		}

		select {
		case sig := <-sigChan:
			slog.Warn("received second signal, exiting immediately", "signal", sig.String())
			exitFunc(ExitFailure)
		case <-stopped:
		}
	}()

	return ctx, stop
}
