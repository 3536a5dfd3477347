package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCoversEveryPair(t *testing.T) {
	refs := Catalog()
	assert.Len(t, refs, len(Actions())*len(Resources()))

	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		assert.False(t, seen[ref.Key()], "duplicate catalog entry %s", ref.Key())
		seen[ref.Key()] = true
	}
}

func TestSystemRoleDefinitionGrantCounts(t *testing.T) {
	counts := map[string]int{}
	for _, def := range SystemRoleDefinitions() {
		counts[def.Name] = len(def.Grants)
	}

	assert.Equal(t, 55, counts[RoleSuperAdmin])
	assert.Equal(t, 54, counts[RoleAdmin], "admin lacks only MANAGE on ROLE")
	assert.Equal(t, 6, counts[RoleModerator])
	assert.Equal(t, 30, counts[RoleTrader])
	assert.Equal(t, 5, counts[RoleViewer])
}

func TestAdminDefinitionExcludesRoleManagement(t *testing.T) {
	for _, def := range SystemRoleDefinitions() {
		if def.Name != RoleAdmin {
			continue
		}
		for _, ref := range def.Grants {
			if ref.Action == ActionManage && ref.Resource == ResourceRole {
				t.Fatal("admin must not hold MANAGE on ROLE")
			}
		}
		return
	}
	t.Fatal("admin definition missing")
}

func TestSeedCreatesCatalogAndRoles(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, store, testLogger()))

	perms, err := store.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, 55)

	roles, err := store.ListRoles(ctx, true)
	require.NoError(t, err)
	require.Len(t, roles, 5)
	for _, role := range roles {
		assert.True(t, role.IsSystem, role.Name)
		assert.True(t, role.IsActive, role.Name)
	}

	super, err := store.GetRoleByName(ctx, RoleSuperAdmin)
	require.NoError(t, err)
	assert.Len(t, super.Permissions, 55)

	viewer, err := store.GetRoleByName(ctx, RoleViewer)
	require.NoError(t, err)
	assert.Len(t, viewer.Permissions, 5)
	for _, p := range viewer.Permissions {
		assert.Equal(t, ActionRead, p.Action)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, store, testLogger()))
	require.NoError(t, Seed(ctx, store, testLogger()))

	perms, err := store.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, 55)

	roles, err := store.ListRoles(ctx, true)
	require.NoError(t, err)
	assert.Len(t, roles, 5)

	var grants int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM role_permissions`).Scan(&grants))
	assert.Equal(t, 55+54+6+30+5, grants)
}

func TestSeedBackfillsTraderRole(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, nil)
	ctx := context.Background()

	createTestUser(t, db, "legacy-user")

	require.NoError(t, Seed(ctx, store, testLogger()))

	isTrader, err := checker.HasRole(ctx, "legacy-user", RoleTrader)
	require.NoError(t, err)
	assert.True(t, isTrader)

	// a user who already holds a role is left alone
	viewer, err := store.GetRoleByName(ctx, RoleViewer)
	require.NoError(t, err)
	createTestUser(t, db, "viewer-user")
	assignTestRole(t, store, "viewer-user", viewer.ID)

	require.NoError(t, Seed(ctx, store, testLogger()))

	isTrader, err = checker.HasRole(ctx, "viewer-user", RoleTrader)
	require.NoError(t, err)
	assert.False(t, isTrader)

	roles, err := checker.GetUserRoles(ctx, "viewer-user")
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestEnsureAdminBootstrapsUserAndRole(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	require.NoError(t, Seed(context.Background(), store, testLogger()))

	// The user does not exist yet; EnsureAdmin must create the row.
	require.NoError(t, EnsureAdmin(context.Background(), store, testLogger(), "ops-1"))

	checker := NewChecker(store, nil)
	isSuper, err := checker.IsSuperAdmin(context.Background(), "ops-1")
	require.NoError(t, err)
	assert.True(t, isSuper)

	// Re-running refreshes the assignment without duplicating rows.
	require.NoError(t, EnsureAdmin(context.Background(), store, testLogger(), "ops-1"))
	assignments, err := store.ListUserAssignments(context.Background(), "ops-1")
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}

func TestEnsureAdminRequiresSeededRoles(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	err := EnsureAdmin(context.Background(), store, testLogger(), "ops-1")
	assert.ErrorIs(t, err, ErrRoleNotFound)

	err = EnsureAdmin(context.Background(), store, testLogger(), "")
	assert.ErrorIs(t, err, ErrMissingUserID)
}
