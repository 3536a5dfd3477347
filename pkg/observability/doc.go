// Package observability provides structured logging, Prometheus metrics, health checks, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes the service's operational surface: JSON logging
// with levels and fields, a metrics registry for HTTP and RBAC evaluation
// counters, liveness/readiness endpoints, OTLP trace export, and a graceful
// shutdown coordinator.
//
// # Structured Logging
//
// Create a logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Info("Server started")
//	logger.WithField("user_id", userID).Warn("Assignment expired")
//	logger.WithError(err).Error("Database unreachable")
//
// Request-scoped loggers travel in the context:
//
//	ctx = observability.WithLogger(ctx, logger.WithField("request_id", reqID))
//	observability.FromContext(ctx).Info("Handling request")
//
// # Prometheus Metrics
//
// Initialize and register:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	observability.RegisterMetricsEndpoint(healthMux, registry)
//
// Domain metrics cover access checks (by kind and result), context cache
// hits and misses, role assignments, and expired-assignment sweeps.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(mux, checker)
//	// GET /health, /health/live, /health/ready
//
// A failed database marks the service unhealthy; a failed Redis only
// degrades it, because the RBAC store remains the source of truth.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "propdesk",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Graceful Shutdown
//
//	sm := observability.NewShutdownManager(logger, server, 30*time.Second)
//	sm.RegisterShutdownFunc("database", func(ctx context.Context) error { return db.Close() })
//	err := sm.WaitForShutdown() // blocks on SIGINT/SIGTERM
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/middleware: Request logging middleware
package observability
