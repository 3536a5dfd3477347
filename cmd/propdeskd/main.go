package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/propdesk/propdesk/pkg/async"
	"github.com/propdesk/propdesk/pkg/config"
	"github.com/propdesk/propdesk/pkg/middleware"
	"github.com/propdesk/propdesk/pkg/observability"
	"github.com/propdesk/propdesk/pkg/rbac"
	"github.com/propdesk/propdesk/pkg/storage/postgres"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := context.Background()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	connMgr, err := postgres.NewConnectionManager(cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}

	var redisClient *redis.Client
	var cache rbac.ContextCache
	if cfg.Redis.Enabled {
		redisClient, err = postgres.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to redis")
			os.Exit(1)
		}
		cache = rbac.NewRedisContextCache(redisClient, cfg.RBAC.ContextCacheTTL)
	}

	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
		async.Go(ctx, logger, "db stats collector", func(ctx context.Context) error {
			return metrics.CollectDBStats(ctx, connMgr.Primary(), 15*time.Second)
		})
	}

	manager := rbac.NewManager(connMgr.Primary(), cache, logger, rbac.Config{
		CacheTTL:           cfg.RBAC.ContextCacheTTL,
		CacheSize:          cfg.RBAC.ContextCacheSize,
		SweepSchedule:      cfg.RBAC.SweepSchedule,
		SeedOnInitialize:   cfg.RBAC.SeedOnStartup,
		GuardMutations:     cfg.Auth.Enabled,
		BootstrapAdminUser: cfg.Auth.BootstrapAdmin,
		Metrics:            metrics,
	})
	if err := manager.Initialize(ctx); err != nil {
		logger.WithError(err).Error("Failed to initialize RBAC")
		os.Exit(1)
	}

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestLogger(logger))
	if metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(metrics))
	}

	if cfg.Auth.Enabled {
		tokens, err := middleware.ParseStaticTokens(cfg.Auth.StaticTokens)
		if err != nil {
			logger.WithError(err).Error("Failed to parse auth tokens")
			os.Exit(1)
		}
		auth := middleware.NewAuthMiddleware(middleware.NewStaticTokenVerifier(tokens), true)
		router.Use(auth.Handler)
	}
	manager.RegisterRoutes(router)

	async.Go(ctx, logger, "health server", func(ctx context.Context) error {
		return serveHealth(cfg, connMgr, redisClient, registry, logger)
	})

	var handler http.Handler = router
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(router, "propdesk")
	}

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server failed")
			os.Exit(1)
		}
	}()

	sm := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	sm.RegisterShutdownFunc("rbac", manager.Shutdown)
	sm.RegisterShutdownFunc("database", func(context.Context) error {
		return connMgr.Close()
	})
	if redisClient != nil {
		sm.RegisterShutdownFunc("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}
	if providers != nil {
		sm.RegisterShutdownFunc("otel", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	if err := sm.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

func serveHealth(cfg *config.Config, connMgr *postgres.ConnectionManager, redisClient *redis.Client, registry *prometheus.Registry, logger *observability.Logger) error {
	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(connMgr.Primary(), redisClient, serviceVersion)
	observability.RegisterHealthRoutes(healthMux, checker)
	if registry != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}

	addr := cfg.Server.Host + ":" + cfg.Server.HealthPort
	logger.Infof("Starting health server on %s", addr)
	return http.ListenAndServe(addr, healthMux)
}
