package middleware

import (
	"net/http"
	"time"

	"github.com/propdesk/propdesk/pkg/observability"
)

// RequestLogger logs one line per request with method, path, status and
// duration, and places a request-scoped logger in the context
func RequestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := logger.WithFields(map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			if requestID := GetRequestID(r); requestID != "" {
				reqLogger = reqLogger.WithField("request_id", requestID)
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			ctx := observability.WithLogger(r.Context(), reqLogger)
			next.ServeHTTP(sw, r.WithContext(ctx))

			reqLogger.WithFields(map[string]interface{}{
				"status":      sw.status,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Info("Request handled")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
