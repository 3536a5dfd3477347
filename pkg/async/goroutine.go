package async

import (
	"context"
	"runtime/debug"

	"github.com/propdesk/propdesk/pkg/observability"
)

// Go executes fn in a goroutine with panic recovery and error logging.
// Use this instead of bare `go func()` for long-running background tasks
// such as servers and pollers.
func Go(ctx context.Context, logger *observability.Logger, taskName string, fn func(context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("Background task panicked")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithField("task", taskName).WithError(err).Error("Background task failed")
		}
	}()
}
