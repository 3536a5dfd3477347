package rbac

import (
	"strings"
	"testing"
)

func TestMigrationsAreSequential(t *testing.T) {
	migrations := GetMigrations()
	if len(migrations) == 0 {
		t.Fatal("expected at least one migration")
	}

	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d, want %d", i, m.Version, i+1)
		}
		if m.Description == "" {
			t.Errorf("migration %d has no description", m.Version)
		}
		if strings.TrimSpace(m.SQL) == "" {
			t.Errorf("migration %d has no SQL", m.Version)
		}
	}
}

func TestMigrationsCreateAllTables(t *testing.T) {
	tables := []string{"users", "permissions", "roles", "role_permissions", "user_roles"}

	var all strings.Builder
	for _, m := range GetMigrations() {
		all.WriteString(m.SQL)
	}
	ddl := all.String()

	for _, table := range tables {
		if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("no migration creates table %s", table)
		}
	}
}
