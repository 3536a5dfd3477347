package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/propdesk/propdesk/pkg/contextkeys"
)

// RequestIDHeader is the header carrying the request correlation ID
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to every request, reusing the
// caller's ID when one is supplied
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), contextkeys.RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the request, or empty string
func GetRequestID(r *http.Request) string {
	requestID, _ := r.Context().Value(contextkeys.RequestIDKey).(string)
	return requestID
}
