package rbac

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/propdesk/propdesk/pkg/observability"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			email_confirmed INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			resource TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(action, resource)
		);

		CREATE TABLE roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_system INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE role_permissions (
			role_id INTEGER NOT NULL,
			permission_id INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (role_id, permission_id)
		);

		CREATE TABLE user_roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			role_id INTEGER NOT NULL,
			assigned_by TEXT,
			assigned_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP,
			is_active INTEGER NOT NULL DEFAULT 1,
			UNIQUE(user_id, role_id)
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	return db
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func createTestUser(t *testing.T, db *sql.DB, userID string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO users (id) VALUES ($1)`, userID); err != nil {
		t.Fatalf("Failed to create test user %s: %v", userID, err)
	}
}

func createTestRole(t *testing.T, store *Store, name string) *Role {
	t.Helper()
	role := &Role{
		Name:        name,
		DisplayName: name,
		IsActive:    true,
	}
	if err := store.CreateRole(context.Background(), role); err != nil {
		t.Fatalf("Failed to create test role %s: %v", name, err)
	}
	return role
}

func createTestPermission(t *testing.T, store *Store, action Action, resource Resource) *Permission {
	t.Helper()
	perm, err := store.CreatePermission(context.Background(), action, resource, "")
	if err != nil {
		t.Fatalf("Failed to create test permission %s:%s: %v", action, resource, err)
	}
	return perm
}

func grantTestPermission(t *testing.T, store *Store, roleID int64, action Action, resource Resource) {
	t.Helper()
	perm := createTestPermission(t, store, action, resource)
	if err := store.GrantPermission(context.Background(), roleID, perm.ID); err != nil {
		t.Fatalf("Failed to grant %s:%s: %v", action, resource, err)
	}
}

func assignTestRole(t *testing.T, store *Store, userID string, roleID int64) *UserRole {
	t.Helper()
	ur := &UserRole{UserID: userID, RoleID: roleID}
	if err := store.AssignRole(context.Background(), ur); err != nil {
		t.Fatalf("Failed to assign role %d to %s: %v", roleID, userID, err)
	}
	return ur
}

func futureTime(d time.Duration) *time.Time {
	ts := time.Now().UTC().Add(d)
	return &ts
}
