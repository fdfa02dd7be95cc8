package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// signalContext cancels on SIGINT or SIGTERM so in-flight branches report
// failed and the job still synthesizes
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
