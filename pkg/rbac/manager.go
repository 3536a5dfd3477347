package rbac

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gorilla/mux"

	"github.com/propdesk/propdesk/pkg/observability"
)

// Config holds RBAC configuration
type Config struct {
	// CacheTTL bounds how stale a cached context may be
	CacheTTL time.Duration

	// CacheSize is the in-process LRU capacity when no shared cache is
	// configured
	CacheSize int

	// SweepSchedule is the cron schedule for expired assignment cleanup
	SweepSchedule string

	// SeedOnInitialize creates the system roles during Initialize
	SeedOnInitialize bool

	// GuardMutations protects every mutating route with the admin guard.
	// Requires an authentication middleware that puts the caller's user
	// ID in the request context.
	GuardMutations bool

	// BootstrapAdminUser, when set, is granted the super_admin role
	// during Initialize. Without it a guarded deployment has no user
	// able to reach the mutating routes.
	BootstrapAdminUser string

	// Metrics enables check, cache and assignment instrumentation when
	// non-nil
	Metrics *observability.Metrics
}

// DefaultConfig returns default RBAC configuration
func DefaultConfig() Config {
	return Config{
		CacheTTL:         5 * time.Minute,
		CacheSize:        10000,
		SweepSchedule:    "30 0 * * *",
		SeedOnInitialize: true,
	}
}

// Manager wires the RBAC store, checker, handlers, guard and sweeper
// together behind one entry point.
type Manager struct {
	store    *Store
	checker  *Checker
	handlers *Handlers
	guard    *Guard
	sweeper  *Sweeper
	logger   *observability.Logger
	config   Config
}

// NewManager creates a new RBAC manager. cache may be nil, in which
// case an in-process LRU cache is used.
func NewManager(db *sql.DB, cache ContextCache, logger *observability.Logger, config Config) *Manager {
	if cache == nil {
		cache = NewLRUContextCache(config.CacheSize, config.CacheTTL)
	}

	store := NewStore(db)
	checker := NewChecker(store, cache)
	handlers := NewHandlers(store, checker, logger)
	sweeper := NewSweeper(store, logger, config.SweepSchedule)

	if config.Metrics != nil {
		checker.SetMetrics(config.Metrics)
		handlers.SetMetrics(config.Metrics)
		sweeper.SetMetrics(config.Metrics)
	}

	return &Manager{
		store:    store,
		checker:  checker,
		handlers: handlers,
		guard:    NewGuard(checker),
		sweeper:  sweeper,
		logger:   logger,
		config:   config,
	}
}

// Initialize runs migrations, optionally seeds the system roles, and
// starts the expiry sweeper.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := RunMigrations(ctx, m.store.db, m.logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if m.config.SeedOnInitialize {
		if err := Seed(ctx, m.store, m.logger); err != nil {
			return fmt.Errorf("failed to seed system roles: %w", err)
		}
	}

	if m.config.BootstrapAdminUser != "" {
		if err := EnsureAdmin(ctx, m.store, m.logger, m.config.BootstrapAdminUser); err != nil {
			return fmt.Errorf("failed to bootstrap administrator: %w", err)
		}
	}

	if err := m.sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	return nil
}

// Shutdown stops background work
func (m *Manager) Shutdown(ctx context.Context) error {
	return m.sweeper.Stop(ctx)
}

// RegisterRoutes registers RBAC routes with a router. Mutating routes are
// guarded when GuardMutations is set.
func (m *Manager) RegisterRoutes(router *mux.Router) {
	guard := m.guard
	if !m.config.GuardMutations {
		guard = nil
	}
	m.handlers.RegisterRoutes(router, guard)
}

// Store returns the RBAC store
func (m *Manager) Store() *Store {
	return m.store
}

// Checker returns the access checker
func (m *Manager) Checker() *Checker {
	return m.checker
}

// Guard returns the permission guard middleware
func (m *Manager) Guard() *Guard {
	return m.guard
}
