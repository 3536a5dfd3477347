package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/propdesk/propdesk/pkg/observability"
)

// Catalog returns the full permission catalog: every (action, resource)
// pair the platform understands, with a generated description.
func Catalog() []PermissionRef {
	refs := make([]PermissionRef, 0, len(Actions())*len(Resources()))
	for _, resource := range Resources() {
		for _, action := range Actions() {
			refs = append(refs, PermissionRef{Action: action, Resource: resource})
		}
	}
	return refs
}

// describePermission builds the human-readable description stored with a
// seeded permission.
func describePermission(ref PermissionRef) string {
	noun := strings.ToLower(strings.ReplaceAll(string(ref.Resource), "_", " "))
	verb := strings.ToLower(string(ref.Action))
	return fmt.Sprintf("Allows %s on %s records", verb, noun)
}

// SystemRoleDefinition describes one bootstrap role and its default grants.
type SystemRoleDefinition struct {
	Name        string
	DisplayName string
	Description string
	Grants      []PermissionRef
}

// SystemRoleDefinitions returns the five bootstrap roles with their default
// grant tables:
//
//	super_admin  every permission in the catalog
//	admin        every permission except MANAGE on ROLE
//	moderator    all USER permissions except DELETE, plus READ DASHBOARD
//	             and READ TRADE
//	trader       all permissions on TRADING_ACCOUNT, TRADE, DASHBOARD,
//	             SYMBOL, PROPFIRM and BROKER
//	viewer       READ-only on DASHBOARD, TRADE, SYMBOL, PROPFIRM and BROKER
func SystemRoleDefinitions() []SystemRoleDefinition {
	all := Catalog()

	adminGrants := make([]PermissionRef, 0, len(all)-1)
	for _, ref := range all {
		if ref.Action == ActionManage && ref.Resource == ResourceRole {
			continue
		}
		adminGrants = append(adminGrants, ref)
	}

	moderatorGrants := []PermissionRef{
		{Action: ActionCreate, Resource: ResourceUser},
		{Action: ActionRead, Resource: ResourceUser},
		{Action: ActionUpdate, Resource: ResourceUser},
		{Action: ActionManage, Resource: ResourceUser},
		{Action: ActionRead, Resource: ResourceDashboard},
		{Action: ActionRead, Resource: ResourceTrade},
	}

	traderResources := []Resource{
		ResourceTradingAccount, ResourceTrade, ResourceDashboard,
		ResourceSymbol, ResourcePropfirm, ResourceBroker,
	}
	traderGrants := make([]PermissionRef, 0, len(traderResources)*len(Actions()))
	for _, resource := range traderResources {
		for _, action := range Actions() {
			traderGrants = append(traderGrants, PermissionRef{Action: action, Resource: resource})
		}
	}

	viewerGrants := []PermissionRef{
		{Action: ActionRead, Resource: ResourceDashboard},
		{Action: ActionRead, Resource: ResourceTrade},
		{Action: ActionRead, Resource: ResourceSymbol},
		{Action: ActionRead, Resource: ResourcePropfirm},
		{Action: ActionRead, Resource: ResourceBroker},
	}

	return []SystemRoleDefinition{
		{
			Name:        RoleSuperAdmin,
			DisplayName: "Super Administrator",
			Description: "Unrestricted access to every platform resource",
			Grants:      all,
		},
		{
			Name:        RoleAdmin,
			DisplayName: "Administrator",
			Description: "Full platform access except role management",
			Grants:      adminGrants,
		},
		{
			Name:        RoleModerator,
			DisplayName: "Moderator",
			Description: "Manages users and reviews trading activity",
			Grants:      moderatorGrants,
		},
		{
			Name:        RoleTrader,
			DisplayName: "Trader",
			Description: "Operates trading accounts, trades and market data",
			Grants:      traderGrants,
		},
		{
			Name:        RoleViewer,
			DisplayName: "Viewer",
			Description: "Read-only access to dashboards and market data",
			Grants:      viewerGrants,
		},
	}
}

// Seed populates the permission catalog, creates the five system roles with
// their default grants, and backfills the trader role for any pre-existing
// user with no assignments. Every step is create-if-absent by natural key,
// so re-running the seed is safe and produces no duplicates.
func Seed(ctx context.Context, store *Store, logger *observability.Logger) error {
	permsByKey := make(map[string]*Permission, len(Catalog()))
	for _, ref := range Catalog() {
		perm, err := store.CreatePermission(ctx, ref.Action, ref.Resource, describePermission(ref))
		if err != nil {
			return fmt.Errorf("failed to seed permission %s: %w", ref.Key(), err)
		}
		permsByKey[perm.Key()] = perm
	}
	logger.WithField("permissions", len(permsByKey)).Info("Permission catalog seeded")

	for _, def := range SystemRoleDefinitions() {
		role, err := store.GetRoleByName(ctx, def.Name)
		if err != nil && !errors.Is(err, ErrRoleNotFound) {
			return err
		}
		if err != nil {
			role = &Role{
				Name:        def.Name,
				DisplayName: def.DisplayName,
				Description: def.Description,
				IsSystem:    true,
				IsActive:    true,
			}
			if err := store.CreateRole(ctx, role); err != nil {
				return fmt.Errorf("failed to seed role %s: %w", def.Name, err)
			}
			logger.WithField("role", def.Name).Info("Created system role")
		}

		for _, ref := range def.Grants {
			perm, ok := permsByKey[ref.Key()]
			if !ok {
				return fmt.Errorf("%w: %s", ErrPermissionNotFound, ref.Key())
			}
			if err := store.GrantPermission(ctx, role.ID, perm.ID); err != nil {
				return fmt.Errorf("failed to seed grant %s for %s: %w", ref.Key(), def.Name, err)
			}
		}
	}

	return backfillDefaultRole(ctx, store, logger)
}

// EnsureAdmin grants the super_admin role to the given user, creating the
// user row if needed. A guarded deployment runs this at startup so at least
// one caller can reach the mutating routes. Re-running it refreshes the
// assignment to active with no expiry.
func EnsureAdmin(ctx context.Context, store *Store, logger *observability.Logger, userID string) error {
	if userID == "" {
		return ErrMissingUserID
	}

	superAdmin, err := store.GetRoleByName(ctx, RoleSuperAdmin)
	if err != nil {
		return err
	}
	if err := store.EnsureUser(ctx, userID); err != nil {
		return err
	}
	if err := store.AssignRole(ctx, &UserRole{UserID: userID, RoleID: superAdmin.ID}); err != nil {
		return fmt.Errorf("failed to grant super_admin to %s: %w", userID, err)
	}

	logger.WithField("user_id", userID).Info("Bootstrap administrator ensured")
	return nil
}

// backfillDefaultRole assigns the trader role to every user with zero
// assignment rows.
func backfillDefaultRole(ctx context.Context, store *Store, logger *observability.Logger) error {
	trader, err := store.GetRoleByName(ctx, RoleTrader)
	if err != nil {
		return err
	}

	userIDs, err := store.UsersWithoutRoles(ctx)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		ur := &UserRole{UserID: userID, RoleID: trader.ID}
		if err := store.AssignRole(ctx, ur); err != nil {
			return fmt.Errorf("failed to backfill user %s: %w", userID, err)
		}
	}

	if len(userIDs) > 0 {
		logger.WithField("users", len(userIDs)).Info("Backfilled default trader role")
	}
	return nil
}
