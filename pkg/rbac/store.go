package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Store handles RBAC data persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new RBAC store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// isUniqueViolation reports whether err is a unique-constraint violation.
// Both the Postgres driver (error code 23505) and the sqlite driver used in
// tests are recognized.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreatePermission creates a permission, idempotently at its (action,
// resource) identity: if the pair already exists the stored permission is
// returned without error.
func (s *Store) CreatePermission(ctx context.Context, action Action, resource Resource, description string) (*Permission, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if !resource.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResource, resource)
	}

	existing, err := s.GetPermission(ctx, action, resource)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrPermissionNotFound) {
		return nil, err
	}

	query := `
		INSERT INTO permissions (action, resource, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (action, resource) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, string(action), string(resource), description); err != nil {
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}

	// Re-read so a concurrent creator's row is returned too.
	return s.GetPermission(ctx, action, resource)
}

// GetPermission retrieves a permission by its natural key
func (s *Store) GetPermission(ctx context.Context, action Action, resource Resource) (*Permission, error) {
	query := `
		SELECT id, action, resource, description
		FROM permissions
		WHERE action = $1 AND resource = $2
	`

	var p Permission
	err := s.db.QueryRowContext(ctx, query, string(action), string(resource)).Scan(
		&p.ID,
		&p.Action,
		&p.Resource,
		&p.Description,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s:%s", ErrPermissionNotFound, action, resource)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	return &p, nil
}

// getPermissionByID retrieves a permission by id
func (s *Store) getPermissionByID(ctx context.Context, id int64) (*Permission, error) {
	query := `SELECT id, action, resource, description FROM permissions WHERE id = $1`

	var p Permission
	err := s.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Action, &p.Resource, &p.Description)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrPermissionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	return &p, nil
}

// ListPermissions lists the whole permission catalog
func (s *Store) ListPermissions(ctx context.Context) ([]Permission, error) {
	query := `
		SELECT id, action, resource, description
		FROM permissions
		ORDER BY resource ASC, action ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var permissions []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Action, &p.Resource, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}

	return permissions, rows.Err()
}

// CreateRole creates a new role. Role names are unique; creating a role with
// an existing name fails with ErrRoleExists.
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	if _, err := s.GetRoleByName(ctx, role.Name); err == nil {
		return fmt.Errorf("%w: %s", ErrRoleExists, role.Name)
	} else if !errors.Is(err, ErrRoleNotFound) {
		return err
	}

	query := `
		INSERT INTO roles (name, display_name, description, is_system, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, query,
		role.Name,
		role.DisplayName,
		role.Description,
		role.IsSystem,
		role.IsActive,
		now,
		now,
	).Scan(&role.ID)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race against a concurrent creator.
			return fmt.Errorf("%w: %s", ErrRoleExists, role.Name)
		}
		return fmt.Errorf("failed to create role: %w", err)
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// GetRole retrieves a role by id, enriched with its granted permissions.
func (s *Store) GetRole(ctx context.Context, roleID int64) (*Role, error) {
	query := `
		SELECT id, name, display_name, description, is_system, is_active, created_at, updated_at
		FROM roles
		WHERE id = $1
	`

	role, err := scanRole(s.db.QueryRowContext(ctx, query, roleID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrRoleNotFound, roleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	role.Permissions, err = s.RolePermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}

	return role, nil
}

// GetRoleByName retrieves a role by its unique name, enriched with its
// granted permissions.
func (s *Store) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	query := `
		SELECT id, name, display_name, description, is_system, is_active, created_at, updated_at
		FROM roles
		WHERE name = $1
	`

	role, err := scanRole(s.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	role.Permissions, err = s.RolePermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}

	return role, nil
}

// ListRoles lists roles ordered with system roles first, each enriched with
// its granted permissions. Inactive roles are included unless
// includeInactive is false.
func (s *Store) ListRoles(ctx context.Context, includeInactive bool) ([]Role, error) {
	query := `
		SELECT id, name, display_name, description, is_system, is_active, created_at, updated_at
		FROM roles
	`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY is_system DESC, name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	grants, err := s.allRolePermissions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		roles[i].Permissions = grants[roles[i].ID]
	}

	return roles, nil
}

// UpdateRole applies upd to an existing role. Renaming re-checks name
// uniqueness and is refused for system roles.
func (s *Store) UpdateRole(ctx context.Context, roleID int64, upd RoleUpdate) (*Role, error) {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil && *upd.Name != role.Name {
		if role.IsSystem {
			return nil, fmt.Errorf("%w: %s", ErrSystemRole, role.Name)
		}
		if _, err := s.GetRoleByName(ctx, *upd.Name); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrRoleExists, *upd.Name)
		} else if !errors.Is(err, ErrRoleNotFound) {
			return nil, err
		}
		role.Name = *upd.Name
	}
	if upd.DisplayName != nil {
		role.DisplayName = *upd.DisplayName
	}
	if upd.Description != nil {
		role.Description = *upd.Description
	}
	if upd.IsActive != nil {
		role.IsActive = *upd.IsActive
	}

	query := `
		UPDATE roles
		SET name = $1, display_name = $2, description = $3, is_active = $4, updated_at = $5
		WHERE id = $6
	`

	role.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx, query,
		role.Name,
		role.DisplayName,
		role.Description,
		role.IsActive,
		role.UpdatedAt,
		role.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrRoleExists, role.Name)
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return role, nil
}

// DeleteRole hard-deletes a role and cascades deletion of its permission
// grants and user assignments, so no dangling edges survive. System roles
// cannot be deleted.
func (s *Store) DeleteRole(ctx context.Context, roleID int64) error {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return fmt.Errorf("%w: %s", ErrSystemRole, role.Name)
	}

	// Explicit cascade keeps behavior identical across backends regardless
	// of foreign key enforcement.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to delete role grants: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_roles WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to delete role assignments: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	return nil
}

// GrantPermission assigns a permission to a role. The grant is idempotent:
// re-granting an already-granted permission is a no-op, not an error.
func (s *Store) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return err
	}
	if _, err := s.getPermissionByID(ctx, permissionID); err != nil {
		return err
	}

	query := `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, roleID, permissionID); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}

	return nil
}

// RevokePermission removes a permission grant from a role. Revoking a
// permission that is not granted is a no-op.
func (s *Store) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	query := `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`
	if _, err := s.db.ExecContext(ctx, query, roleID, permissionID); err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}
	return nil
}

// RolePermissions retrieves the permissions granted to a role
func (s *Store) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	query := `
		SELECT p.id, p.action, p.resource, p.description
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.resource ASC, p.action ASC
	`

	rows, err := s.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	defer rows.Close()

	var permissions []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Action, &p.Resource, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}

	return permissions, rows.Err()
}

// allRolePermissions loads every grant in one query, keyed by role id.
func (s *Store) allRolePermissions(ctx context.Context) (map[int64][]Permission, error) {
	query := `
		SELECT rp.role_id, p.id, p.action, p.resource, p.description
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		ORDER BY p.resource ASC, p.action ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	defer rows.Close()

	grants := make(map[int64][]Permission)
	for rows.Next() {
		var roleID int64
		var p Permission
		if err := rows.Scan(&roleID, &p.ID, &p.Action, &p.Resource, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan role permission: %w", err)
		}
		grants[roleID] = append(grants[roleID], p)
	}

	return grants, rows.Err()
}

// AssignRole assigns a role to a user. The assignment is idempotent at the
// (user id, role id) identity: re-assigning an already-held role updates the
// existing row's assigned_by, expires_at and active flag instead of creating
// a duplicate, and the newer call's metadata wins.
func (s *Store) AssignRole(ctx context.Context, userRole *UserRole) error {
	if userRole.UserID == "" {
		return ErrMissingUserID
	}
	if _, err := s.GetRole(ctx, userRole.RoleID); err != nil {
		return err
	}

	query := `
		INSERT INTO user_roles (user_id, role_id, assigned_by, assigned_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, role_id)
		DO UPDATE SET assigned_by = excluded.assigned_by,
		              expires_at = excluded.expires_at,
		              is_active = excluded.is_active
		RETURNING id, assigned_at
	`

	now := time.Now().UTC()
	userRole.IsActive = true
	err := s.db.QueryRowContext(ctx, query,
		userRole.UserID,
		userRole.RoleID,
		userRole.AssignedBy,
		now,
		userRole.ExpiresAt,
		userRole.IsActive,
	).Scan(&userRole.ID, &userRole.AssignedAt)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}

	return nil
}

// RemoveRole removes a role assignment from a user. Removing an assignment
// the user does not hold is a no-op.
func (s *Store) RemoveRole(ctx context.Context, userID string, roleID int64) error {
	if userID == "" {
		return ErrMissingUserID
	}

	query := `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`
	if _, err := s.db.ExecContext(ctx, query, userID, roleID); err != nil {
		return fmt.Errorf("failed to remove role: %w", err)
	}
	return nil
}

// SetAssignmentActive flips the per-assignment active switch without
// touching the role definition.
func (s *Store) SetAssignmentActive(ctx context.Context, userID string, roleID int64, active bool) error {
	if userID == "" {
		return ErrMissingUserID
	}

	query := `UPDATE user_roles SET is_active = $1 WHERE user_id = $2 AND role_id = $3`
	res, err := s.db.ExecContext(ctx, query, active, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: user %s role %d", ErrRoleNotFound, userID, roleID)
	}
	return nil
}

// ListUserAssignments retrieves every assignment row for a user, including
// inactive and expired ones, ordered by assignment time.
func (s *Store) ListUserAssignments(ctx context.Context, userID string) ([]UserRole, error) {
	query := `
		SELECT id, user_id, role_id, assigned_by, assigned_at, expires_at, is_active
		FROM user_roles
		WHERE user_id = $1
		ORDER BY assigned_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []UserRole
	for rows.Next() {
		var ur UserRole
		var assignedBy sql.NullString
		var expiresAt sql.NullTime

		err := rows.Scan(&ur.ID, &ur.UserID, &ur.RoleID, &assignedBy, &ur.AssignedAt, &expiresAt, &ur.IsActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}

		if assignedBy.Valid {
			by := assignedBy.String
			ur.AssignedBy = &by
		}
		if expiresAt.Valid {
			ea := expiresAt.Time
			ur.ExpiresAt = &ea
		}

		assignments = append(assignments, ur)
	}

	return assignments, rows.Err()
}

// ListEffectiveRoles retrieves the roles a user currently holds: the
// assignment must be active, the role must be active and the assignment must
// not have expired as of now. Order follows assignment creation order.
func (s *Store) ListEffectiveRoles(ctx context.Context, userID string, now time.Time) ([]Role, error) {
	query := `
		SELECT r.id, r.name, r.display_name, r.description, r.is_system, r.is_active, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		  AND ur.is_active
		  AND r.is_active
		  AND (ur.expires_at IS NULL OR ur.expires_at > $2)
		ORDER BY ur.assigned_at ASC, ur.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get effective roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *role)
	}

	return roles, rows.Err()
}

// ListEffectivePermissions retrieves the deduplicated union of permissions
// granted through the user's currently-effective role assignments.
func (s *Store) ListEffectivePermissions(ctx context.Context, userID string, now time.Time) ([]Permission, error) {
	query := `
		SELECT DISTINCT p.id, p.action, p.resource, p.description
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN roles r ON r.id = rp.role_id
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		  AND ur.is_active
		  AND r.is_active
		  AND (ur.expires_at IS NULL OR ur.expires_at > $2)
		ORDER BY p.resource ASC, p.action ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get effective permissions: %w", err)
	}
	defer rows.Close()

	var permissions []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Action, &p.Resource, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}

	return permissions, rows.Err()
}

// DeleteExpiredAssignments removes assignment rows whose expiry has passed.
// Evaluation never reads expired rows, so this is storage hygiene only.
func (s *Store) DeleteExpiredAssignments(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM user_roles WHERE expires_at IS NOT NULL AND expires_at <= $1`

	res, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired assignments: %w", err)
	}

	return res.RowsAffected()
}

// EnsureUser creates the user row if absent. User records are owned by the
// authentication collaborator; this only anchors the assignment foreign key
// for users that predate their first login here.
func (s *Store) EnsureUser(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUserID
	}

	query := `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

// UsersWithoutRoles returns the ids of users that have no assignment rows at
// all. Used by the seed backfill.
func (s *Store) UsersWithoutRoles(ctx context.Context) ([]string, error) {
	query := `
		SELECT u.id
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE ur.id IS NULL
		ORDER BY u.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users without roles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// scanRole scans a role row without permission enrichment
func scanRole(scanner interface {
	Scan(dest ...interface{}) error
}) (*Role, error) {
	var role Role
	err := scanner.Scan(
		&role.ID,
		&role.Name,
		&role.DisplayName,
		&role.Description,
		&role.IsSystem,
		&role.IsActive,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &role, nil
}
