// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage
// discoverable.
package contextkeys

// Key is the type for context keys to prevent collisions
type Key string

const (
	// UserIDKey contains the authenticated user ID string
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: RBAC guard, user-scoped operations, logging
	// Type: string
	UserIDKey Key = "user_id"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: middleware.RequestID (pkg/middleware/requestid.go)
	// Used by: Logger, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: request logging middleware
	// Used by: Handlers needing per-request structured logging
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)
