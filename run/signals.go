package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ridge/quarry/tlog"
	"go.uber.org/zap"
)

// handleSignals returns nil once the process is asked to stop, so that Tool
// closes the context of the task. Commands such as watch rely on this to
// stop observing and close the journal cleanly.
func handleSignals(ctx context.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		tlog.Get(ctx).Info("Received signal, stopping", zap.Stringer("signal", sig))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
