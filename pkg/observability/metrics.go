package observability

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access check metrics
	AccessChecksTotal   *prometheus.CounterVec
	AccessCheckDuration *prometheus.HistogramVec

	// Context cache metrics
	ContextCacheHitsTotal   prometheus.Counter
	ContextCacheMissesTotal prometheus.Counter

	// Assignment metrics
	RoleAssignmentsTotal     *prometheus.CounterVec
	ExpiredSweepsTotal       prometheus.Counter
	ExpiredAssignmentsReaped prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "propdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AccessChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propdesk_access_checks_total",
				Help: "Total number of role and permission checks",
			},
			[]string{"kind", "result"},
		),
		AccessCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "propdesk_access_check_duration_seconds",
				Help:    "Access check duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"kind"},
		),
		ContextCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "propdesk_context_cache_hits_total",
				Help: "Total number of RBAC context cache hits",
			},
		),
		ContextCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "propdesk_context_cache_misses_total",
				Help: "Total number of RBAC context cache misses",
			},
		),
		RoleAssignmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propdesk_role_assignments_total",
				Help: "Total number of role assignment operations",
			},
			[]string{"operation"},
		),
		ExpiredSweepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "propdesk_expired_sweeps_total",
				Help: "Total number of expired assignment sweeps",
			},
		),
		ExpiredAssignmentsReaped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "propdesk_expired_assignments_reaped_total",
				Help: "Total number of expired assignments removed",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "propdesk_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "propdesk_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AccessChecksTotal,
		m.AccessCheckDuration,
		m.ContextCacheHitsTotal,
		m.ContextCacheMissesTotal,
		m.RoleAssignmentsTotal,
		m.ExpiredSweepsTotal,
		m.ExpiredAssignmentsReaped,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// UpdateDBStats copies the connection pool gauges from a database stats
// snapshot
func (m *Metrics) UpdateDBStats(stats sql.DBStats) {
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// CollectDBStats refreshes the connection pool gauges every interval until
// ctx is cancelled. Run it as a background task.
func (m *Metrics) CollectDBStats(ctx context.Context, db *sql.DB, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.UpdateDBStats(db.Stats())
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
