package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/propdesk/propdesk/pkg/observability"
)

// Checker answers point and aggregate queries about a user's effective roles
// and permissions. It is stateless per call: every query is a self-contained
// read over current store state, so concurrent use for different users is
// safe.
type Checker struct {
	store   *Store
	cache   ContextCache
	metrics *observability.Metrics

	// now is swappable for deterministic expiry tests.
	now func() time.Time
}

// NewChecker creates a new permission checker. cache may be nil, in which
// case every Context call hits the store.
func NewChecker(store *Store, cache ContextCache) *Checker {
	return &Checker{
		store: store,
		cache: cache,
		now:   time.Now,
	}
}

// SetMetrics enables check counters and cache hit/miss instrumentation
func (c *Checker) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// recordCheck updates the access check counter and duration histogram.
// kind is "role" or "permission".
func (c *Checker) recordCheck(kind string, start time.Time, allowed bool, err error) {
	if c.metrics == nil {
		return
	}
	result := "denied"
	switch {
	case err != nil:
		result = "error"
	case allowed:
		result = "allowed"
	}
	c.metrics.AccessChecksTotal.WithLabelValues(kind, result).Inc()
	c.metrics.AccessCheckDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// GetUserRoles returns every role the user currently holds, in assignment
// order. An unknown user yields an empty slice, not an error.
func (c *Checker) GetUserRoles(ctx context.Context, userID string) ([]Role, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return c.store.ListEffectiveRoles(ctx, userID, c.now().UTC())
}

// GetUserPermissions returns the deduplicated union of the permissions
// granted by every role the user currently holds.
func (c *Checker) GetUserPermissions(ctx context.Context, userID string) ([]Permission, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return c.store.ListEffectivePermissions(ctx, userID, c.now().UTC())
}

// HasRole reports whether the user currently holds the named role.
func (c *Checker) HasRole(ctx context.Context, userID, roleName string) (bool, error) {
	return c.HasAnyRole(ctx, userID, roleName)
}

// HasAnyRole reports whether the user holds at least one of the named roles.
func (c *Checker) HasAnyRole(ctx context.Context, userID string, roleNames ...string) (bool, error) {
	start := time.Now()
	roles, err := c.GetUserRoles(ctx, userID)
	if err != nil {
		c.recordCheck("role", start, false, err)
		return false, err
	}
	held := roleNameSet(roles)
	allowed := false
	for _, name := range roleNames {
		if held[name] {
			allowed = true
			break
		}
	}
	c.recordCheck("role", start, allowed, nil)
	return allowed, nil
}

// HasAllRoles reports whether the user holds every one of the named roles.
func (c *Checker) HasAllRoles(ctx context.Context, userID string, roleNames ...string) (bool, error) {
	start := time.Now()
	roles, err := c.GetUserRoles(ctx, userID)
	if err != nil {
		c.recordCheck("role", start, false, err)
		return false, err
	}
	held := roleNameSet(roles)
	allowed := true
	for _, name := range roleNames {
		if !held[name] {
			allowed = false
			break
		}
	}
	c.recordCheck("role", start, allowed, nil)
	return allowed, nil
}

// HasPermission reports whether (action, resource) is in the user's
// effective permission set.
func (c *Checker) HasPermission(ctx context.Context, userID string, action Action, resource Resource) (bool, error) {
	return c.HasAnyPermission(ctx, userID, PermissionRef{Action: action, Resource: resource})
}

// HasAnyPermission reports whether the user holds at least one of the given
// permissions.
func (c *Checker) HasAnyPermission(ctx context.Context, userID string, checks ...PermissionRef) (bool, error) {
	start := time.Now()
	granted, err := c.permissionKeySet(ctx, userID)
	if err != nil {
		c.recordCheck("permission", start, false, err)
		return false, err
	}
	allowed := false
	for _, check := range checks {
		if granted[check.Key()] {
			allowed = true
			break
		}
	}
	c.recordCheck("permission", start, allowed, nil)
	return allowed, nil
}

// HasAllPermissions reports whether the user holds every one of the given
// permissions.
func (c *Checker) HasAllPermissions(ctx context.Context, userID string, checks ...PermissionRef) (bool, error) {
	start := time.Now()
	granted, err := c.permissionKeySet(ctx, userID)
	if err != nil {
		c.recordCheck("permission", start, false, err)
		return false, err
	}
	allowed := true
	for _, check := range checks {
		if !granted[check.Key()] {
			allowed = false
			break
		}
	}
	c.recordCheck("permission", start, allowed, nil)
	return allowed, nil
}

// Evaluate runs the named check from the declarative predicate table.
// Unknown names return ErrUnknownCheck.
func (c *Checker) Evaluate(ctx context.Context, userID, name string) (bool, error) {
	check, ok := namedChecks[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCheck, name)
	}

	switch check.kind {
	case checkAnyRole:
		return c.HasAnyRole(ctx, userID, check.roles...)
	case checkPermission:
		return c.HasPermission(ctx, userID, check.action, check.resource)
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownCheck, name)
	}
}

// IsSuperAdmin reports whether the user holds the super_admin role.
func (c *Checker) IsSuperAdmin(ctx context.Context, userID string) (bool, error) {
	return c.Evaluate(ctx, userID, CheckIsSuperAdmin)
}

// IsAdmin reports whether the user holds the super_admin or admin role.
// Admin status is role-based only, independent of any MANAGE/ADMIN
// permission grant; CanAccessAdmin is the permission-based counterpart.
func (c *Checker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return c.Evaluate(ctx, userID, CheckIsAdmin)
}

// CanManageUsers reports whether the user holds MANAGE on USER.
func (c *Checker) CanManageUsers(ctx context.Context, userID string) (bool, error) {
	return c.Evaluate(ctx, userID, CheckCanManageUsers)
}

// CanManageRoles reports whether the user holds MANAGE on ROLE.
func (c *Checker) CanManageRoles(ctx context.Context, userID string) (bool, error) {
	return c.Evaluate(ctx, userID, CheckCanManageRoles)
}

// CanAccessAdmin reports whether the user holds MANAGE on ADMIN.
func (c *Checker) CanAccessAdmin(ctx context.Context, userID string) (bool, error) {
	return c.Evaluate(ctx, userID, CheckCanAccessAdmin)
}

// CanManageTradingAccounts reports whether the user holds MANAGE on
// TRADING_ACCOUNT.
func (c *Checker) CanManageTradingAccounts(ctx context.Context, userID string) (bool, error) {
	return c.Evaluate(ctx, userID, CheckCanManageTradingAccounts)
}

// CanManageTrades reports whether the user holds MANAGE on TRADE.
func (c *Checker) CanManageTrades(ctx context.Context, userID string) (bool, error) {
	return c.Evaluate(ctx, userID, CheckCanManageTrades)
}

// CanViewDashboard reports whether the user holds READ on DASHBOARD.
func (c *Checker) CanViewDashboard(ctx context.Context, userID string) (bool, error) {
	return c.Evaluate(ctx, userID, CheckCanViewDashboard)
}

// Context builds the aggregate RBAC snapshot for a user in two store reads,
// evaluating every named check locally against the loaded sets. Results are
// served from the cache when one is configured.
func (c *Checker) Context(ctx context.Context, userID string) (*Context, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, userID); ok {
			if c.metrics != nil {
				c.metrics.ContextCacheHitsTotal.Inc()
			}
			return cached, nil
		}
		if c.metrics != nil {
			c.metrics.ContextCacheMissesTotal.Inc()
		}
	}

	now := c.now().UTC()
	roles, err := c.store.ListEffectiveRoles(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	permissions, err := c.store.ListEffectivePermissions(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	held := roleNameSet(roles)
	granted := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		granted[p.Key()] = true
	}

	rbacCtx := &Context{
		UserID:      userID,
		Roles:       roles,
		Permissions: permissions,
		CheckedAt:   now,
	}
	rbacCtx.IsSuperAdmin = evalNamedCheck(namedChecks[CheckIsSuperAdmin], held, granted)
	rbacCtx.IsAdmin = evalNamedCheck(namedChecks[CheckIsAdmin], held, granted)
	rbacCtx.CanManageUsers = evalNamedCheck(namedChecks[CheckCanManageUsers], held, granted)
	rbacCtx.CanManageRoles = evalNamedCheck(namedChecks[CheckCanManageRoles], held, granted)
	rbacCtx.CanAccessAdmin = evalNamedCheck(namedChecks[CheckCanAccessAdmin], held, granted)
	rbacCtx.CanManageTradingAccounts = evalNamedCheck(namedChecks[CheckCanManageTradingAccounts], held, granted)
	rbacCtx.CanManageTrades = evalNamedCheck(namedChecks[CheckCanManageTrades], held, granted)
	rbacCtx.CanViewDashboard = evalNamedCheck(namedChecks[CheckCanViewDashboard], held, granted)

	if c.cache != nil {
		c.cache.Set(ctx, userID, rbacCtx)
	}

	return rbacCtx, nil
}

// InvalidateContext drops any cached snapshot for the user. Mutating
// handlers call this after assignment or grant changes.
func (c *Checker) InvalidateContext(ctx context.Context, userID string) {
	if c.cache != nil {
		c.cache.Invalidate(ctx, userID)
	}
}

// permissionKeySet loads the user's effective permission set keyed by
// natural key.
func (c *Checker) permissionKeySet(ctx context.Context, userID string) (map[string]bool, error) {
	permissions, err := c.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	granted := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		granted[p.Key()] = true
	}
	return granted, nil
}

func roleNameSet(roles []Role) map[string]bool {
	held := make(map[string]bool, len(roles))
	for _, role := range roles {
		held[role.Name] = true
	}
	return held
}
