// Package lifecycle binds process signals to context cancellation. An
// in-flight extraction under a cancelled context settles into a partial
// result instead of being killed mid-pass.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Notify returns a child of parent that is cancelled on the first SIGINT or
// SIGTERM. The second signal falls through to the runtime's default handling
// and terminates the process. Callers must invoke stop to release the signal
// handler.
func Notify(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
