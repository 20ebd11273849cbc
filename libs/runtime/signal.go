package runtime

import (
	"context"
	"os/signal"
	"syscall"
)

// SignalContext is the root context of every service main; cancellation on
// SIGINT/SIGTERM drains the HTTP server, the outbox relay and the consumers.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
