package rbac

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/propdesk/propdesk/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all RBAC migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			// Users are owned by the authentication collaborator; this
			// table only anchors referential integrity and the seed
			// backfill.
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					email VARCHAR(255) NOT NULL DEFAULT '',
					email_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     2,
			Description: "Create permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS permissions (
					id BIGSERIAL PRIMARY KEY,
					action VARCHAR(16) NOT NULL,
					resource VARCHAR(32) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(action, resource)
				);

				CREATE INDEX idx_permissions_resource ON permissions(resource);
			`,
		},
		{
			Version:     3,
			Description: "Create roles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS roles (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL UNIQUE,
					display_name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					is_system BOOLEAN NOT NULL DEFAULT FALSE,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_roles_name ON roles(name);
				CREATE INDEX idx_roles_is_active ON roles(is_active);
			`,
		},
		{
			Version:     4,
			Description: "Create role_permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS role_permissions (
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					permission_id BIGINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (role_id, permission_id)
				);

				CREATE INDEX idx_role_permissions_permission_id ON role_permissions(permission_id);
			`,
		},
		{
			Version:     5,
			Description: "Create user_roles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_roles (
					id BIGSERIAL PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					assigned_by TEXT,
					assigned_at TIMESTAMP NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMP,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					UNIQUE(user_id, role_id)
				);

				CREATE INDEX idx_user_roles_user_id ON user_roles(user_id);
				CREATE INDEX idx_user_roles_role_id ON user_roles(role_id);
				CREATE INDEX idx_user_roles_expires_at ON user_roles(expires_at);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rbac_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM rbac_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		logger.WithField("version", migration.Version).Infof("Running migration: %s", migration.Description)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO rbac_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
