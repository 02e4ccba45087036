package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"wasdeploy/pkg/logging"
)

// WaitForInterrupt blocks until SIGINT or SIGTERM arrives or ctx is done.
// Commands that keep a deployment alive for manual testing use it before
// undeploying.
func WaitForInterrupt(ctx context.Context) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info(subsystem, "Press Ctrl+C to undeploy and exit.")
	<-sigCtx.Done()
	logging.Info(subsystem, "--- Shutting down ---")
}
