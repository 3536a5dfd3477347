// Package middleware provides HTTP middleware for authentication, request IDs, and request logging.
//
// # Overview
//
// This package carries the request-processing middleware that runs in front
// of every handler: bearer-token authentication that resolves the calling
// user, request-ID propagation, and structured per-request logging.
//
// # Middleware Components
//
// AuthMiddleware: Bearer-token authentication
//
//	auth := middleware.NewAuthMiddleware(verifier, false)
//	router.Use(auth.Handler)
//	// Extracts Authorization: Bearer <token>, verifies it, and places the
//	// user id in the request context for the RBAC guards.
//
// Token verification is pluggable; the platform's auth provider implements
// TokenVerifier:
//
//	type TokenVerifier interface {
//		VerifyToken(ctx context.Context, token string) (string, error)
//	}
//
// StaticTokenVerifier covers service-to-service callers with credentials
// loaded from configuration:
//
//	tokens, err := middleware.ParseStaticTokens("tok-gateway:gateway-1")
//	auth := middleware.NewAuthMiddleware(middleware.NewStaticTokenVerifier(tokens), true)
//
// RequestID: Correlation IDs
//
//	router.Use(middleware.RequestID)
//	// Reuses the caller's X-Request-ID or generates a UUID.
//
// RequestLogger: Per-request structured logs
//
//	router.Use(middleware.RequestLogger(logger))
//	// Logs method, path, status, and duration; seeds the context with a
//	// request-scoped logger.
//
// # Related Packages
//
//   - pkg/rbac: Permission guards that consume the authenticated user id
//   - pkg/contextkeys: Shared context keys
package middleware
