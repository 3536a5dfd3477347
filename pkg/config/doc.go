// Package config provides application configuration from environment variables.
//
// # Overview
//
// This package loads and validates configuration with sensible defaults for
// every setting. All keys use the PROPDESK_ prefix.
//
// # Configuration Structure
//
// Server settings:
//
//	PROPDESK_HOST="0.0.0.0"
//	PROPDESK_PORT="8080"
//	PROPDESK_HEALTH_PORT="9090"
//	PROPDESK_READ_TIMEOUT="15s"
//	PROPDESK_WRITE_TIMEOUT="15s"
//	PROPDESK_SHUTDOWN_TIMEOUT="30s"
//
// Database settings:
//
//	PROPDESK_POSTGRES_URL="postgres://localhost/propdesk"
//	PROPDESK_POSTGRES_REPLICA_URLS=""        # comma-separated read replicas
//	PROPDESK_POSTGRES_MAX_CONNS="25"
//
// Redis settings:
//
//	PROPDESK_REDIS_ENABLED="false"
//	PROPDESK_REDIS_URL="redis://localhost:6379"
//
// Auth settings:
//
//	PROPDESK_AUTH_ENABLED="false"
//	PROPDESK_AUTH_TOKENS=""                  # comma-separated token:userID pairs
//	PROPDESK_AUTH_BOOTSTRAP_ADMIN=""         # user granted super_admin at startup
//
// RBAC settings:
//
//	PROPDESK_RBAC_CACHE_TTL="5m"
//	PROPDESK_RBAC_CACHE_SIZE="10000"
//	PROPDESK_RBAC_SWEEP_SCHEDULE="30 0 * * *"
//	PROPDESK_RBAC_SEED_ON_STARTUP="true"
//
// Observability settings:
//
//	PROPDESK_LOG_LEVEL="info"   # debug, info, warn, error
//	PROPDESK_METRICS_ENABLED="true"
//	PROPDESK_OTEL_ENABLED="false"
//	PROPDESK_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// # Related Packages
//
//   - pkg/storage/postgres: Uses database configuration
//   - pkg/observability: Uses observability configuration
package config
