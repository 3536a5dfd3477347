package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/propdesk/propdesk/pkg/contextkeys"
	"github.com/propdesk/propdesk/pkg/httputil"
)

// TokenVerifier resolves a bearer token to a user ID. Token issuance is
// owned by the authentication service; this service only verifies.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (userID string, err error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	verifier TokenVerifier
	optional bool
}

// NewAuthMiddleware creates a new authentication middleware. When
// optional is true, unauthenticated requests pass through without a
// user in context.
func NewAuthMiddleware(verifier TokenVerifier, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteErrorMessage(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteErrorMessage(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		userID, err := m.verifier.VerifyToken(r.Context(), parts[1])
		if err != nil {
			httputil.WriteErrorMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), contextkeys.UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the authenticated user ID from the request, or
// empty string when unauthenticated
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(contextkeys.UserIDKey).(string)
	return userID
}
