package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/propdesk/propdesk/pkg/config"
	"github.com/propdesk/propdesk/pkg/observability"
)

// ConnectionManager manages PostgreSQL primary and read replica connections
type ConnectionManager struct {
	primary  *sql.DB
	replicas []*sql.DB
	current  uint32
	mu       sync.RWMutex
	logger   *observability.Logger
}

// NewConnectionManager connects to the primary and any configured read
// replicas. Replica failures are logged and skipped; the primary is
// required.
func NewConnectionManager(cfg config.DatabaseConfig, logger *observability.Logger) (*ConnectionManager, error) {
	cm := &ConnectionManager{logger: logger}

	primary, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open primary connection: %w", err)
	}

	primary.SetMaxOpenConns(cfg.MaxOpenConns)
	primary.SetMaxIdleConns(cfg.MaxIdleConns)
	primary.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := primary.PingContext(ctx); err != nil {
		primary.Close()
		return nil, fmt.Errorf("failed to ping primary: %w", err)
	}
	cm.primary = primary

	for i, replicaURL := range splitReplicaURLs(cfg.ReplicaURLs) {
		replica, err := sql.Open("postgres", replicaURL)
		if err != nil {
			logger.WithError(err).Warnf("Failed to open replica %d", i)
			continue
		}

		replicaMaxConns := cfg.MaxOpenConns / 2
		if replicaMaxConns < 2 {
			replicaMaxConns = 2
		}
		replica.SetMaxOpenConns(replicaMaxConns)
		replica.SetMaxIdleConns(cfg.MaxIdleConns)
		replica.SetConnMaxLifetime(cfg.ConnMaxLifetime)

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = replica.PingContext(pingCtx)
		pingCancel()
		if err != nil {
			logger.WithError(err).Warnf("Failed to ping replica %d", i)
			replica.Close()
			continue
		}

		cm.replicas = append(cm.replicas, replica)
	}

	logger.WithField("replicas", len(cm.replicas)).Info("Database connection manager initialized")
	return cm, nil
}

func splitReplicaURLs(raw string) []string {
	if raw == "" {
		return nil
	}
	var urls []string
	for _, u := range strings.Split(raw, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Primary returns the primary database connection (for writes)
func (cm *ConnectionManager) Primary() *sql.DB {
	return cm.primary
}

// Replica returns a read replica using round-robin selection, falling
// back to the primary when no replicas are configured
func (cm *ConnectionManager) Replica() *sql.DB {
	cm.mu.RLock()
	replicaCount := len(cm.replicas)
	cm.mu.RUnlock()

	if replicaCount == 0 {
		return cm.primary
	}

	index := atomic.AddUint32(&cm.current, 1)
	cm.mu.RLock()
	replica := cm.replicas[int(index%uint32(replicaCount))]
	cm.mu.RUnlock()
	return replica
}

// HealthCheck pings the primary and all replicas
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("primary unhealthy: %w", err)
	}

	cm.mu.RLock()
	replicas := make([]*sql.DB, len(cm.replicas))
	copy(replicas, cm.replicas)
	cm.mu.RUnlock()

	for i, replica := range replicas {
		if err := replica.PingContext(ctx); err != nil {
			return fmt.Errorf("replica %d unhealthy: %w", i, err)
		}
	}
	return nil
}

// Close closes the primary and all replica connections
func (cm *ConnectionManager) Close() error {
	var errs []string

	if err := cm.primary.Close(); err != nil {
		errs = append(errs, fmt.Sprintf("primary: %v", err))
	}

	cm.mu.Lock()
	for i, replica := range cm.replicas {
		if err := replica.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("replica %d: %v", i, err))
		}
	}
	cm.replicas = nil
	cm.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
