package rbac

// Named checks are the platform's access-control vocabulary. Each name maps
// to either a role check or a permission check and is evaluated uniformly by
// Checker.Evaluate, so adding a predicate is a table entry, not a new code
// path.
const (
	CheckIsSuperAdmin             = "is_super_admin"
	CheckIsAdmin                  = "is_admin"
	CheckCanManageUsers           = "can_manage_users"
	CheckCanManageRoles           = "can_manage_roles"
	CheckCanAccessAdmin           = "can_access_admin"
	CheckCanManageTradingAccounts = "can_manage_trading_accounts"
	CheckCanManageTrades          = "can_manage_trades"
	CheckCanViewDashboard         = "can_view_dashboard"
)

type checkKind int

const (
	checkAnyRole checkKind = iota
	checkPermission
)

type namedCheck struct {
	kind     checkKind
	roles    []string
	action   Action
	resource Resource
}

// namedChecks maps predicate names to their definition. is_admin is
// deliberately role-based while can_access_admin is permission-based; the
// two are independent paths and must stay that way.
var namedChecks = map[string]namedCheck{
	CheckIsSuperAdmin: {kind: checkAnyRole, roles: []string{RoleSuperAdmin}},
	CheckIsAdmin:      {kind: checkAnyRole, roles: []string{RoleSuperAdmin, RoleAdmin}},

	CheckCanManageUsers:           {kind: checkPermission, action: ActionManage, resource: ResourceUser},
	CheckCanManageRoles:           {kind: checkPermission, action: ActionManage, resource: ResourceRole},
	CheckCanAccessAdmin:           {kind: checkPermission, action: ActionManage, resource: ResourceAdmin},
	CheckCanManageTradingAccounts: {kind: checkPermission, action: ActionManage, resource: ResourceTradingAccount},
	CheckCanManageTrades:          {kind: checkPermission, action: ActionManage, resource: ResourceTrade},
	CheckCanViewDashboard:         {kind: checkPermission, action: ActionRead, resource: ResourceDashboard},
}

// NamedCheckNames returns the names in the predicate table.
func NamedCheckNames() []string {
	return []string{
		CheckIsSuperAdmin, CheckIsAdmin,
		CheckCanManageUsers, CheckCanManageRoles, CheckCanAccessAdmin,
		CheckCanManageTradingAccounts, CheckCanManageTrades, CheckCanViewDashboard,
	}
}

// evalNamedCheck evaluates a check against already-loaded role and
// permission sets, avoiding extra store reads when building a Context.
func evalNamedCheck(check namedCheck, heldRoles map[string]bool, grantedPerms map[string]bool) bool {
	switch check.kind {
	case checkAnyRole:
		for _, name := range check.roles {
			if heldRoles[name] {
				return true
			}
		}
		return false
	case checkPermission:
		return grantedPerms[PermissionRef{Action: check.action, Resource: check.resource}.Key()]
	}
	return false
}
