// Package async provides a panic-safe goroutine helper for background tasks.
//
// Use Go instead of a bare `go func()` for long-lived background work such
// as auxiliary servers and pollers. It recovers panics and logs errors
// through the service logger instead of crashing the process.
//
//	async.Go(ctx, logger, "health server", func(ctx context.Context) error {
//		return http.ListenAndServe(addr, healthMux)
//	})
package async
