package rbac

import (
	"net/http"

	"github.com/propdesk/propdesk/pkg/contextkeys"
	"github.com/propdesk/propdesk/pkg/httputil"
)

// Guard provides HTTP middleware that enforces roles and permissions
// server-side. Handlers behind a guard never see requests from callers
// that fail the check.
type Guard struct {
	checker *Checker
}

// NewGuard creates a new permission guard
func NewGuard(checker *Checker) *Guard {
	return &Guard{checker: checker}
}

func requestUserID(r *http.Request) string {
	userID, _ := r.Context().Value(contextkeys.UserIDKey).(string)
	return userID
}

// RequirePermission creates middleware that requires a specific permission
func (g *Guard) RequirePermission(action Action, resource Resource) func(http.Handler) http.Handler {
	return g.RequireAnyPermission(PermissionRef{Action: action, Resource: resource})
}

// RequireAnyPermission creates middleware that requires at least one of the
// given permissions
func (g *Guard) RequireAnyPermission(checks ...PermissionRef) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := requestUserID(r)
			if userID == "" {
				httputil.WriteErrorMessage(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			allowed, err := g.checker.HasAnyPermission(r.Context(), userID, checks...)
			if err != nil {
				httputil.WriteErrorMessage(w, http.StatusInternalServerError, "Permission check failed")
				return
			}
			if !allowed {
				httputil.WriteErrorMessage(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole creates middleware that requires at least one of the given roles
func (g *Guard) RequireRole(roleNames ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := requestUserID(r)
			if userID == "" {
				httputil.WriteErrorMessage(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			allowed, err := g.checker.HasAnyRole(r.Context(), userID, roleNames...)
			if err != nil {
				httputil.WriteErrorMessage(w, http.StatusInternalServerError, "Role check failed")
				return
			}
			if !allowed {
				httputil.WriteErrorMessage(w, http.StatusForbidden, "Insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin creates middleware that requires an administrator role
func (g *Guard) RequireAdmin() func(http.Handler) http.Handler {
	return g.RequireRole(RoleSuperAdmin, RoleAdmin)
}
