package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserRolesAndPermissionsUnion(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, nil)
	ctx := context.Background()

	r1 := createTestRole(t, store, "desk_lead")
	r2 := createTestRole(t, store, "trader")
	shared := createTestPermission(t, store, ActionRead, ResourceDashboard)
	manageTrades := createTestPermission(t, store, ActionManage, ResourceTrade)

	require.NoError(t, store.GrantPermission(ctx, r1.ID, shared.ID))
	require.NoError(t, store.GrantPermission(ctx, r2.ID, shared.ID))
	require.NoError(t, store.GrantPermission(ctx, r1.ID, manageTrades.ID))

	createTestUser(t, db, "user-1")
	assignTestRole(t, store, "user-1", r1.ID)
	assignTestRole(t, store, "user-1", r2.ID)

	roles, err := checker.GetUserRoles(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "desk_lead", roles[0].Name)

	perms, err := checker.GetUserPermissions(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, perms, 2)
}

func TestCheckerEmptyUserID(t *testing.T) {
	db := setupTestDB(t)
	checker := NewChecker(NewStore(db), nil)
	ctx := context.Background()

	_, err := checker.GetUserRoles(ctx, "")
	assert.ErrorIs(t, err, ErrMissingUserID)
	_, err = checker.GetUserPermissions(ctx, "")
	assert.ErrorIs(t, err, ErrMissingUserID)
	_, err = checker.Context(ctx, "")
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestHasRoleVariants(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, nil)
	ctx := context.Background()

	trader := createTestRole(t, store, "trader")
	viewer := createTestRole(t, store, "viewer")
	createTestUser(t, db, "user-1")
	assignTestRole(t, store, "user-1", trader.ID)
	assignTestRole(t, store, "user-1", viewer.ID)

	has, err := checker.HasRole(ctx, "user-1", "trader")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = checker.HasRole(ctx, "user-1", "admin")
	require.NoError(t, err)
	assert.False(t, has)

	has, err = checker.HasAnyRole(ctx, "user-1", "admin", "viewer")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = checker.HasAllRoles(ctx, "user-1", "trader", "viewer")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = checker.HasAllRoles(ctx, "user-1", "trader", "admin")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestHasPermissionVariants(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, nil)
	ctx := context.Background()

	role := createTestRole(t, store, "trader")
	grantTestPermission(t, store, role.ID, ActionRead, ResourceDashboard)
	grantTestPermission(t, store, role.ID, ActionCreate, ResourceTrade)

	createTestUser(t, db, "user-1")
	assignTestRole(t, store, "user-1", role.ID)

	has, err := checker.HasPermission(ctx, "user-1", ActionRead, ResourceDashboard)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = checker.HasPermission(ctx, "user-1", ActionDelete, ResourceTrade)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = checker.HasAnyPermission(ctx, "user-1",
		PermissionRef{Action: ActionDelete, Resource: ResourceTrade},
		PermissionRef{Action: ActionCreate, Resource: ResourceTrade},
	)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = checker.HasAllPermissions(ctx, "user-1",
		PermissionRef{Action: ActionRead, Resource: ResourceDashboard},
		PermissionRef{Action: ActionCreate, Resource: ResourceTrade},
	)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = checker.HasAllPermissions(ctx, "user-1",
		PermissionRef{Action: ActionRead, Resource: ResourceDashboard},
		PermissionRef{Action: ActionDelete, Resource: ResourceTrade},
	)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestUnknownUserChecksAreFalse(t *testing.T) {
	db := setupTestDB(t)
	checker := NewChecker(NewStore(db), nil)
	ctx := context.Background()

	has, err := checker.HasRole(ctx, "ghost", "trader")
	require.NoError(t, err)
	assert.False(t, has)

	has, err = checker.HasPermission(ctx, "ghost", ActionRead, ResourceDashboard)
	require.NoError(t, err)
	assert.False(t, has)

	isAdmin, err := checker.IsAdmin(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestExpiredAssignmentExcludedFromChecks(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, nil)
	ctx := context.Background()

	role := createTestRole(t, store, "trader")
	grantTestPermission(t, store, role.ID, ActionRead, ResourceDashboard)
	createTestUser(t, db, "user-1")

	ur := &UserRole{UserID: "user-1", RoleID: role.ID, ExpiresAt: futureTime(time.Hour)}
	require.NoError(t, store.AssignRole(ctx, ur))

	has, err := checker.HasRole(ctx, "user-1", "trader")
	require.NoError(t, err)
	assert.True(t, has)

	// move the clock past the expiry
	checker.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	has, err = checker.HasRole(ctx, "user-1", "trader")
	require.NoError(t, err)
	assert.False(t, has)

	has, err = checker.HasPermission(ctx, "user-1", ActionRead, ResourceDashboard)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestAdminPredicateIsRoleBasedOnly(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, nil)
	ctx := context.Background()

	// admin role with zero grants
	admin := &Role{Name: RoleAdmin, DisplayName: "Administrator", IsSystem: true, IsActive: true}
	require.NoError(t, store.CreateRole(ctx, admin))
	createTestUser(t, db, "user-1")
	assignTestRole(t, store, "user-1", admin.ID)

	isAdmin, err := checker.IsAdmin(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, isAdmin, "holding the admin role alone makes is_admin true")

	canAccess, err := checker.CanAccessAdmin(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, canAccess, "can_access_admin needs the MANAGE:ADMIN grant")

	// and the converse: the grant without the role
	ops := createTestRole(t, store, "ops")
	grantTestPermission(t, store, ops.ID, ActionManage, ResourceAdmin)
	createTestUser(t, db, "user-2")
	assignTestRole(t, store, "user-2", ops.ID)

	isAdmin, err = checker.IsAdmin(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, isAdmin)

	canAccess, err = checker.CanAccessAdmin(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, canAccess)
}

func TestNamedPredicates(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, nil)
	ctx := context.Background()

	super := &Role{Name: RoleSuperAdmin, DisplayName: "Super Admin", IsSystem: true, IsActive: true}
	require.NoError(t, store.CreateRole(ctx, super))
	grantTestPermission(t, store, super.ID, ActionManage, ResourceUser)
	grantTestPermission(t, store, super.ID, ActionManage, ResourceRole)
	grantTestPermission(t, store, super.ID, ActionManage, ResourceTradingAccount)
	grantTestPermission(t, store, super.ID, ActionManage, ResourceTrade)
	grantTestPermission(t, store, super.ID, ActionRead, ResourceDashboard)

	createTestUser(t, db, "root")
	assignTestRole(t, store, "root", super.ID)

	for _, name := range NamedCheckNames() {
		ok, err := checker.Evaluate(ctx, "root", name)
		require.NoError(t, err, name)
		if name == CheckCanAccessAdmin {
			assert.False(t, ok, name)
			continue
		}
		assert.True(t, ok, name)
	}

	_, err := checker.Evaluate(ctx, "root", "can_fly")
	assert.ErrorIs(t, err, ErrUnknownCheck)
}

func TestContextAggregate(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, nil)
	ctx := context.Background()

	trader := createTestRole(t, store, RoleTrader)
	grantTestPermission(t, store, trader.ID, ActionManage, ResourceTradingAccount)
	grantTestPermission(t, store, trader.ID, ActionManage, ResourceTrade)
	grantTestPermission(t, store, trader.ID, ActionRead, ResourceDashboard)

	createTestUser(t, db, "user-1")
	assignTestRole(t, store, "user-1", trader.ID)

	rbacCtx, err := checker.Context(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", rbacCtx.UserID)
	require.Len(t, rbacCtx.Roles, 1)
	assert.Len(t, rbacCtx.Permissions, 3)
	assert.False(t, rbacCtx.IsSuperAdmin)
	assert.False(t, rbacCtx.IsAdmin)
	assert.False(t, rbacCtx.CanManageUsers)
	assert.False(t, rbacCtx.CanManageRoles)
	assert.False(t, rbacCtx.CanAccessAdmin)
	assert.True(t, rbacCtx.CanManageTradingAccounts)
	assert.True(t, rbacCtx.CanManageTrades)
	assert.True(t, rbacCtx.CanViewDashboard)
	assert.False(t, rbacCtx.CheckedAt.IsZero())
}

func TestContextUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	checker := NewChecker(NewStore(db), nil)

	rbacCtx, err := checker.Context(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, rbacCtx.Roles)
	assert.Empty(t, rbacCtx.Permissions)
	assert.False(t, rbacCtx.IsAdmin)
	assert.False(t, rbacCtx.CanViewDashboard)
}

func TestContextUsesCache(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	cache := NewLRUContextCache(16, time.Minute)
	checker := NewChecker(store, cache)
	ctx := context.Background()

	role := createTestRole(t, store, "trader")
	createTestUser(t, db, "user-1")
	assignTestRole(t, store, "user-1", role.ID)

	first, err := checker.Context(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, first.Roles, 1)

	// a store change is invisible until the cache entry goes away
	require.NoError(t, store.RemoveRole(ctx, "user-1", role.ID))

	cached, err := checker.Context(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cached.Roles, 1)

	checker.InvalidateContext(ctx, "user-1")

	fresh, err := checker.Context(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, fresh.Roles)
}
