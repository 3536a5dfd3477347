package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/propdesk/propdesk/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	RBAC          RBACConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL             string
	ReplicaURLs     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration for the context cache
type RedisConfig struct {
	Enabled  bool
	URL      string
	Password string
	DB       int
	PoolSize int
}

// AuthConfig holds bearer token authentication settings. When disabled the
// API trusts its network boundary, which is only acceptable behind a
// gateway that authenticates callers itself.
type AuthConfig struct {
	Enabled bool

	// StaticTokens holds comma-separated "token:userID" pairs for
	// service-to-service callers
	StaticTokens string

	// BootstrapAdmin is granted the super_admin role at startup so a
	// guarded deployment is never locked out
	BootstrapAdmin string
}

// RBACConfig holds RBAC-specific settings
type RBACConfig struct {
	// ContextCacheTTL bounds how stale a cached RBAC context may be
	ContextCacheTTL time.Duration

	// ContextCacheSize is the in-process LRU capacity when Redis is
	// not configured
	ContextCacheSize int

	// SweepSchedule is the cron schedule for expired assignment cleanup
	SweepSchedule string

	// SeedOnStartup runs the system role seed during boot
	SeedOnStartup bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("PROPDESK_HOST", "0.0.0.0"),
			Port:            getEnv("PROPDESK_PORT", "8080"),
			ReadTimeout:     getEnvDuration("PROPDESK_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("PROPDESK_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("PROPDESK_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("PROPDESK_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("PROPDESK_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("PROPDESK_POSTGRES_URL", "postgres://localhost/propdesk?sslmode=disable"),
			ReplicaURLs:     getEnv("PROPDESK_POSTGRES_REPLICA_URLS", ""),
			MaxOpenConns:    getEnvInt("PROPDESK_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns:    getEnvInt("PROPDESK_POSTGRES_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("PROPDESK_POSTGRES_CONN_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("PROPDESK_REDIS_ENABLED", false),
			URL:      getEnv("PROPDESK_REDIS_URL", "localhost:6379"),
			Password: getEnv("PROPDESK_REDIS_PASSWORD", ""),
			DB:       getEnvInt("PROPDESK_REDIS_DB", 0),
			PoolSize: getEnvInt("PROPDESK_REDIS_POOL_SIZE", 10),
		},
		Auth: AuthConfig{
			Enabled:        getEnvBool("PROPDESK_AUTH_ENABLED", false),
			StaticTokens:   getEnv("PROPDESK_AUTH_TOKENS", ""),
			BootstrapAdmin: getEnv("PROPDESK_AUTH_BOOTSTRAP_ADMIN", ""),
		},
		RBAC: RBACConfig{
			ContextCacheTTL:  getEnvDuration("PROPDESK_RBAC_CACHE_TTL", 5*time.Minute),
			ContextCacheSize: getEnvInt("PROPDESK_RBAC_CACHE_SIZE", 10000),
			SweepSchedule:    getEnv("PROPDESK_RBAC_SWEEP_SCHEDULE", "30 0 * * *"),
			SeedOnStartup:    getEnvBool("PROPDESK_RBAC_SEED_ON_STARTUP", true),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("PROPDESK_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("PROPDESK_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("PROPDESK_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("PROPDESK_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("PROPDESK_OTEL_SERVICE_NAME", "propdesk"),
			OTelServiceVersion: getEnv("PROPDESK_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("PROPDESK_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required when redis is enabled")
	}

	if c.Auth.Enabled && c.Auth.StaticTokens == "" {
		return fmt.Errorf("auth tokens are required when auth is enabled")
	}

	if c.RBAC.ContextCacheTTL <= 0 {
		return fmt.Errorf("RBAC cache TTL must be positive")
	}
	if c.RBAC.ContextCacheSize <= 0 {
		return fmt.Errorf("RBAC cache size must be positive")
	}
	if c.RBAC.SweepSchedule == "" {
		return fmt.Errorf("RBAC sweep schedule is required")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
