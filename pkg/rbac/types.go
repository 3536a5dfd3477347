package rbac

import (
	"time"
)

// Action represents an action that can be performed on a resource
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionManage Action = "MANAGE"
)

// Actions returns every action in the catalog, in declaration order.
func Actions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage}
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage:
		return true
	}
	return false
}

// Resource represents a resource type in the platform
type Resource string

const (
	ResourceUser           Resource = "USER"
	ResourceRole           Resource = "ROLE"
	ResourcePermission     Resource = "PERMISSION"
	ResourceTradingAccount Resource = "TRADING_ACCOUNT"
	ResourceTrade          Resource = "TRADE"
	ResourcePropfirm       Resource = "PROPFIRM"
	ResourceBroker         Resource = "BROKER"
	ResourceSymbol         Resource = "SYMBOL"
	ResourceSubscription   Resource = "SUBSCRIPTION"
	ResourceDashboard      Resource = "DASHBOARD"
	ResourceAdmin          Resource = "ADMIN"
)

// Resources returns every resource in the catalog, in declaration order.
func Resources() []Resource {
	return []Resource{
		ResourceUser, ResourceRole, ResourcePermission, ResourceTradingAccount,
		ResourceTrade, ResourcePropfirm, ResourceBroker, ResourceSymbol,
		ResourceSubscription, ResourceDashboard, ResourceAdmin,
	}
}

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	for _, known := range Resources() {
		if r == known {
			return true
		}
	}
	return false
}

// Permission is a single (action, resource) pair from the catalog.
// The pair is globally unique; action and resource are immutable identity.
type Permission struct {
	ID          int64    `json:"id"`
	Action      Action   `json:"action"`
	Resource    Resource `json:"resource"`
	Description string   `json:"description,omitempty"`
}

// Key returns the natural key of the permission
func (p Permission) Key() string {
	return string(p.Action) + ":" + string(p.Resource)
}

// PermissionRef identifies a permission by its natural key in check requests.
type PermissionRef struct {
	Action   Action   `json:"action"`
	Resource Resource `json:"resource"`
}

// Key returns the natural key of the referenced permission
func (r PermissionRef) Key() string {
	return string(r.Action) + ":" + string(r.Resource)
}

// Role is a named, reusable bundle of permissions.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	IsSystem    bool   `json:"is_system"`
	IsActive    bool   `json:"is_active"`
	// Permissions is a read-side enrichment populated by list/get calls,
	// not a stored column.
	Permissions []Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// System role names created by Seed
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleModerator  = "moderator"
	RoleTrader     = "trader"
	RoleViewer     = "viewer"
)

// SystemRoleNames returns the names of the five bootstrap roles.
func SystemRoleNames() []string {
	return []string{RoleSuperAdmin, RoleAdmin, RoleModerator, RoleTrader, RoleViewer}
}

// UserRole is a role assignment to a user. An assignment is effective iff
// IsActive is true, the referenced role is active, and ExpiresAt is unset or
// strictly in the future at evaluation time.
type UserRole struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"user_id"`
	RoleID     int64      `json:"role_id"`
	AssignedBy *string    `json:"assigned_by,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
}

// RoleUpdate carries the mutable fields of a role. Nil fields are left
// unchanged.
type RoleUpdate struct {
	Name        *string `json:"name,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Context is the aggregate RBAC snapshot for one user, combining the
// effective role set, the effective permission set and every named predicate
// so a caller needs a single round trip.
type Context struct {
	UserID                   string       `json:"user_id"`
	Roles                    []Role       `json:"roles"`
	Permissions              []Permission `json:"permissions"`
	IsSuperAdmin             bool         `json:"is_super_admin"`
	IsAdmin                  bool         `json:"is_admin"`
	CanManageUsers           bool         `json:"can_manage_users"`
	CanManageRoles           bool         `json:"can_manage_roles"`
	CanAccessAdmin           bool         `json:"can_access_admin"`
	CanManageTradingAccounts bool         `json:"can_manage_trading_accounts"`
	CanManageTrades          bool         `json:"can_manage_trades"`
	CanViewDashboard         bool         `json:"can_view_dashboard"`
	CheckedAt                time.Time    `json:"checked_at"`
}
