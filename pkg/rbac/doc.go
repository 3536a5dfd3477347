// Package rbac provides role-based access control for the propdesk trading platform.
//
// # Overview
//
// This package implements the access-control core of the platform: a fixed
// permission catalog, a role store with system-role protection, user role
// assignments with optional expiry, and an evaluation engine that answers
// "may user U perform action A on resource R". It is consumed by the HTTP
// API, by server-side middleware guards, and by the admin UI through the
// per-user context aggregate.
//
// # Permissions
//
// Permissions are (action, resource) pairs. Both dimensions are closed
// enumerations:
//
//	Actions:   CREATE, READ, UPDATE, DELETE, MANAGE
//	Resources: USER, ROLE, PERMISSION, TRADING_ACCOUNT, TRADE, PROPFIRM,
//	           BROKER, SYMBOL, SUBSCRIPTION, DASHBOARD, ADMIN
//
// MANAGE implies nothing; it is an ordinary action name with no wildcard
// semantics. Permission creation is idempotent at the (action, resource)
// identity:
//
//	perm, err := store.CreatePermission(ctx, rbac.ActionRead, rbac.ResourceTrade, "View trades")
//
// # Roles
//
// Roles carry a unique name, a display name, and two flags: IsSystem
// (protected from deletion and rename) and IsActive (inactive roles are
// ignored by evaluation). Deleting a role cascades to its grants and
// assignments:
//
//	role := &rbac.Role{Name: "risk_manager", DisplayName: "Risk Manager", IsActive: true}
//	err := store.CreateRole(ctx, role)          // ErrRoleExists on duplicate name
//	err = store.GrantPermission(ctx, role.ID, perm.ID)
//	err = store.DeleteRole(ctx, role.ID)        // ErrSystemRole for system roles
//
// # Assignments
//
// Users hold roles through assignment rows keyed by (user, role). An
// assignment may expire and may be switched inactive without being removed.
// Re-assigning an already-held role updates the existing row: the newer
// call's assigned_by and expires_at win and the row is reactivated.
//
//	err := store.AssignRole(ctx, &rbac.UserRole{
//		UserID:     user.ID,
//		RoleID:     role.ID,
//		AssignedBy: &adminID,
//		ExpiresAt:  &nextQuarter,
//	})
//
// # Evaluation
//
// An assignment is effective when the assignment is active, the role is
// active, and the expiry (if any) is strictly in the future. Expiry is
// evaluated lazily at read time; expired rows need no background process to
// become ineffective. Checks for unknown users return empty sets or false,
// never errors:
//
//	checker := rbac.NewChecker(store, cache)
//	ok, err := checker.HasPermission(ctx, userID, rbac.ActionManage, rbac.ResourceTrade)
//	ok, err = checker.HasAnyRole(ctx, userID, "admin", "moderator")
//
// Named predicates cover the platform's common questions (isAdmin,
// canManageUsers, canViewDashboard, ...) and are driven by a declarative
// check table, so adding one is a table entry rather than a method. The
// Context aggregate evaluates all of them plus the user's roles and
// permissions in one round trip and is cached per user:
//
//	rbacCtx, err := checker.Context(ctx, userID)
//	if rbacCtx.CanAccessAdmin { ... }
//
// is_admin is role-based (admin or super_admin role held) while
// can_access_admin is permission-based (MANAGE:ADMIN granted); the two are
// independent.
//
// # Seeding
//
// Seed installs the full 55-pair catalog and five system roles
// (super_admin, admin, moderator, trader, viewer) with their grant tables,
// then backfills the trader role for users that have no assignments at all.
// Re-running Seed is a no-op for everything that already exists:
//
//	err := rbac.Seed(ctx, store, logger)
//
// # HTTP Surface
//
// Handlers expose every operation under /rbac/* on a gorilla/mux router,
// and Guard provides server-side middleware enforcement:
//
//	manager := rbac.NewManager(db, cache, logger, rbac.DefaultConfig())
//	err := manager.Initialize(ctx) // migrations, seed, bootstrap admin, sweeper
//	manager.RegisterRoutes(router)
//
// With Config.GuardMutations set, every mutating route requires an
// authenticated caller holding the super_admin or admin role; reads and
// checks stay open for service-to-service callers. The guard also composes
// onto arbitrary routes:
//
//	guard := manager.Guard()
//	router.Handle("/admin", guard.RequireAdmin()(adminHandler))
//	router.Handle("/trades", guard.RequirePermission(rbac.ActionCreate, rbac.ResourceTrade)(tradeHandler))
//
// Store errors map to HTTP statuses at the boundary: not found 404,
// duplicate name 409, system-role protection 403, invalid enum or missing
// user id 400.
//
// # Caching
//
// Context snapshots are cached per user in Redis (shared across instances)
// or in an in-process expirable LRU when Redis is not configured. Mutating
// an assignment invalidates that user's entry; role-level mutations rely on
// the TTL.
//
// # Related Packages
//
//   - pkg/observability: Logging, metrics, health, tracing
//   - pkg/middleware: Bearer-token authentication that supplies the user id
//   - pkg/storage/postgres: Database connection management
package rbac
