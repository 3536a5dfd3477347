package rbac

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/propdesk/propdesk/pkg/httputil"
	"github.com/propdesk/propdesk/pkg/observability"
)

// Handlers provides HTTP handlers for RBAC operations
type Handlers struct {
	store   *Store
	checker *Checker
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewHandlers creates new RBAC handlers
func NewHandlers(store *Store, checker *Checker, logger *observability.Logger) *Handlers {
	return &Handlers{
		store:   store,
		checker: checker,
		logger:  logger,
	}
}

// SetMetrics enables assignment operation counters
func (h *Handlers) SetMetrics(m *observability.Metrics) {
	h.metrics = m
}

func (h *Handlers) recordAssignment(operation string) {
	if h.metrics != nil {
		h.metrics.RoleAssignmentsTotal.WithLabelValues(operation).Inc()
	}
}

// RegisterRoutes registers all RBAC routes. When guard is non-nil every
// mutating route requires an authenticated administrator; read and check
// routes stay open for service-to-service callers.
func (h *Handlers) RegisterRoutes(router *mux.Router, guard *Guard) {
	protect := func(fn http.HandlerFunc) http.Handler {
		if guard == nil {
			return fn
		}
		return guard.RequireAdmin()(fn)
	}

	// Permission catalog
	router.Handle("/rbac/permissions", protect(h.CreatePermission)).Methods("POST")
	router.HandleFunc("/rbac/permissions", h.ListPermissions).Methods("GET")

	// Role management
	router.Handle("/rbac/roles", protect(h.CreateRole)).Methods("POST")
	router.HandleFunc("/rbac/roles", h.ListRoles).Methods("GET")
	router.HandleFunc("/rbac/roles/{id}", h.GetRole).Methods("GET")
	router.Handle("/rbac/roles/{id}", protect(h.UpdateRole)).Methods("PUT")
	router.Handle("/rbac/roles/{id}", protect(h.DeleteRole)).Methods("DELETE")

	// Role permission grants
	router.Handle("/rbac/roles/{id}/permissions", protect(h.GrantPermission)).Methods("POST")
	router.Handle("/rbac/roles/{id}/permissions/{permission_id}", protect(h.RevokePermission)).Methods("DELETE")

	// User role assignments
	router.Handle("/rbac/users/{id}/roles", protect(h.AssignRole)).Methods("POST")
	router.HandleFunc("/rbac/users/{id}/roles", h.GetUserRoles).Methods("GET")
	router.Handle("/rbac/users/{id}/roles/{role_id}", protect(h.SetAssignmentActive)).Methods("PUT")
	router.Handle("/rbac/users/{id}/roles/{role_id}", protect(h.RemoveRole)).Methods("DELETE")
	router.HandleFunc("/rbac/users/{id}/assignments", h.GetUserAssignments).Methods("GET")
	router.HandleFunc("/rbac/users/{id}/permissions", h.GetUserPermissions).Methods("GET")
	router.HandleFunc("/rbac/users/{id}/context", h.GetUserContext).Methods("GET")

	// Access checking
	router.HandleFunc("/rbac/check/permissions", h.CheckPermissions).Methods("POST")
	router.HandleFunc("/rbac/check/roles", h.CheckRoles).Methods("POST")
}

// writeStoreError maps store errors to HTTP status codes
func (h *Handlers) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRoleNotFound), errors.Is(err, ErrPermissionNotFound):
		httputil.WriteError(w, http.StatusNotFound, err)
	case errors.Is(err, ErrRoleExists):
		httputil.WriteError(w, http.StatusConflict, err)
	case errors.Is(err, ErrSystemRole):
		httputil.WriteError(w, http.StatusForbidden, err)
	case errors.Is(err, ErrInvalidAction), errors.Is(err, ErrInvalidResource), errors.Is(err, ErrMissingUserID):
		httputil.WriteError(w, http.StatusBadRequest, err)
	default:
		h.logger.WithError(err).Error("RBAC store operation failed")
		httputil.WriteInternalError(w, err)
	}
}

// CreatePermission registers a permission in the catalog
func (h *Handlers) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action      Action   `json:"action"`
		Resource    Resource `json:"resource"`
		Description string   `json:"description"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteValidationError(w, "Invalid request body")
		return
	}

	perm, err := h.store.CreatePermission(r.Context(), req.Action, req.Resource, req.Description)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteCreated(w, perm)
}

// ListPermissions returns the full permission catalog
func (h *Handlers) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.store.ListPermissions(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"permissions": perms,
		"count":       len(perms),
	})
}

// CreateRole creates a new custom role
func (h *Handlers) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Description string `json:"description"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteValidationError(w, "Invalid request body")
		return
	}
	if req.Name == "" || req.DisplayName == "" {
		httputil.WriteValidationError(w, "Name and display_name are required")
		return
	}

	role := &Role{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		IsActive:    true,
	}
	if err := h.store.CreateRole(r.Context(), role); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteCreated(w, role)
}

// ListRoles returns all roles, optionally including inactive ones
func (h *Handlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	includeInactive := httputil.ParseQueryBool(r, "include_inactive")
	roles, err := h.store.ListRoles(r.Context(), includeInactive)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"roles": roles,
		"count": len(roles),
	})
}

// GetRole returns a single role with its permissions
func (h *Handlers) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "Invalid role ID")
		return
	}
	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

// UpdateRole updates mutable role fields
func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "Invalid role ID")
		return
	}

	var req RoleUpdate
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteValidationError(w, "Invalid request body")
		return
	}

	role, err := h.store.UpdateRole(r.Context(), id, req)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

// DeleteRole deletes a custom role and all its grants and assignments
func (h *Handlers) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "Invalid role ID")
		return
	}
	if err := h.store.DeleteRole(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// GrantPermission attaches a permission to a role
func (h *Handlers) GrantPermission(w http.ResponseWriter, r *http.Request) {
	roleID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "Invalid role ID")
		return
	}

	var req struct {
		PermissionID int64 `json:"permission_id"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := h.store.GrantPermission(r.Context(), roleID, req.PermissionID); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"role_id":       roleID,
		"permission_id": req.PermissionID,
		"granted":       true,
	})
}

// RevokePermission detaches a permission from a role
func (h *Handlers) RevokePermission(w http.ResponseWriter, r *http.Request) {
	roleID, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "Invalid role ID")
		return
	}
	permissionID, err := httputil.ParsePathInt64(r, "permission_id")
	if err != nil {
		httputil.WriteValidationError(w, "Invalid permission ID")
		return
	}

	if err := h.store.RevokePermission(r.Context(), roleID, permissionID); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// AssignRole assigns a role to a user, updating the existing assignment if present
func (h *Handlers) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	var req struct {
		RoleID     int64      `json:"role_id"`
		AssignedBy *string    `json:"assigned_by,omitempty"`
		ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteValidationError(w, "Invalid request body")
		return
	}

	assignment := &UserRole{
		UserID:     userID,
		RoleID:     req.RoleID,
		AssignedBy: req.AssignedBy,
		ExpiresAt:  req.ExpiresAt,
	}
	if err := h.store.AssignRole(r.Context(), assignment); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.recordAssignment("assign")
	h.checker.InvalidateContext(r.Context(), userID)
	httputil.WriteCreated(w, assignment)
}

// SetAssignmentActive enables or disables a single assignment without
// removing it
func (h *Handlers) SetAssignmentActive(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	roleID, err := httputil.ParsePathInt64(r, "role_id")
	if err != nil {
		httputil.WriteValidationError(w, "Invalid role ID")
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := h.store.SetAssignmentActive(r.Context(), userID, roleID, req.IsActive); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.recordAssignment("set_active")
	h.checker.InvalidateContext(r.Context(), userID)
	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id":   userID,
		"role_id":   roleID,
		"is_active": req.IsActive,
	})
}

// GetUserRoles returns the user's currently effective roles
func (h *Handlers) GetUserRoles(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	roles, err := h.checker.GetUserRoles(r.Context(), userID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id": userID,
		"roles":   roles,
		"count":   len(roles),
	})
}

// GetUserAssignments returns every assignment row for a user, including
// inactive and expired ones
func (h *Handlers) GetUserAssignments(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "user ID is required")
		return
	}
	assignments, err := h.store.ListUserAssignments(r.Context(), userID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id":     userID,
		"assignments": assignments,
		"count":       len(assignments),
	})
}

// RemoveRole removes a role assignment from a user
func (h *Handlers) RemoveRole(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	roleID, err := httputil.ParsePathInt64(r, "role_id")
	if err != nil {
		httputil.WriteValidationError(w, "Invalid role ID")
		return
	}

	if err := h.store.RemoveRole(r.Context(), userID, roleID); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.recordAssignment("remove")
	h.checker.InvalidateContext(r.Context(), userID)
	httputil.WriteNoContent(w)
}

// GetUserPermissions returns the deduplicated union of the user's permissions
func (h *Handlers) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	perms, err := h.checker.GetUserPermissions(r.Context(), userID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id":     userID,
		"permissions": perms,
		"count":       len(perms),
	})
}

// GetUserContext returns the full RBAC context for a user
func (h *Handlers) GetUserContext(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	rbacCtx, err := h.checker.Context(r.Context(), userID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, rbacCtx)
}

// CheckPermissions evaluates one or more permission checks for a user
func (h *Handlers) CheckPermissions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string          `json:"user_id"`
		Checks []PermissionRef `json:"checks"`
		Mode   string          `json:"mode"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteValidationError(w, "Invalid request body")
		return
	}
	if req.UserID == "" {
		httputil.WriteValidationError(w, "user_id is required")
		return
	}
	if len(req.Checks) == 0 {
		httputil.WriteValidationError(w, "At least one check is required")
		return
	}

	var (
		allowed bool
		err     error
	)
	switch req.Mode {
	case "", "any":
		allowed, err = h.checker.HasAnyPermission(r.Context(), req.UserID, req.Checks...)
	case "all":
		allowed, err = h.checker.HasAllPermissions(r.Context(), req.UserID, req.Checks...)
	default:
		httputil.WriteValidationError(w, "Mode must be 'any' or 'all'")
		return
	}
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id": req.UserID,
		"allowed": allowed,
	})
}

// CheckRoles evaluates one or more role checks for a user
func (h *Handlers) CheckRoles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string   `json:"user_id"`
		Roles  []string `json:"roles"`
		Mode   string   `json:"mode"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteValidationError(w, "Invalid request body")
		return
	}
	if req.UserID == "" {
		httputil.WriteValidationError(w, "user_id is required")
		return
	}
	if len(req.Roles) == 0 {
		httputil.WriteValidationError(w, "At least one role is required")
		return
	}

	var (
		allowed bool
		err     error
	)
	switch req.Mode {
	case "", "any":
		allowed, err = h.checker.HasAnyRole(r.Context(), req.UserID, req.Roles...)
	case "all":
		allowed, err = h.checker.HasAllRoles(r.Context(), req.UserID, req.Roles...)
	default:
		httputil.WriteValidationError(w, "Mode must be 'any' or 'all'")
		return
	}
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id": req.UserID,
		"allowed": allowed,
	})
}
