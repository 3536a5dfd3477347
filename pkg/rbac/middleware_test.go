package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propdesk/propdesk/pkg/contextkeys"
)

func guardTestRequest(userID string) *http.Request {
	req := httptest.NewRequest("GET", "/protected", nil)
	if userID != "" {
		ctx := context.WithValue(req.Context(), contextkeys.UserIDKey, userID)
		req = req.WithContext(ctx)
	}
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardRequirePermission(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, NewLRUContextCache(16, time.Minute))
	guard := NewGuard(checker)

	role := createTestRole(t, store, "trader")
	grantTestPermission(t, store, role.ID, ActionRead, ResourceTrade)
	createTestUser(t, db, "trader-user")
	assignTestRole(t, store, "trader-user", role.ID)
	createTestUser(t, db, "other-user")

	protected := guard.RequirePermission(ActionRead, ResourceTrade)(okHandler())

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, guardTestRequest("trader-user"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, guardTestRequest("other-user"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, guardTestRequest(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardRequireAnyPermission(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, NewLRUContextCache(16, time.Minute))
	guard := NewGuard(checker)

	role := createTestRole(t, store, "viewer")
	grantTestPermission(t, store, role.ID, ActionRead, ResourceDashboard)
	createTestUser(t, db, "viewer-user")
	assignTestRole(t, store, "viewer-user", role.ID)

	protected := guard.RequireAnyPermission(
		PermissionRef{Action: ActionManage, Resource: ResourceAdmin},
		PermissionRef{Action: ActionRead, Resource: ResourceDashboard},
	)(okHandler())

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, guardTestRequest("viewer-user"))
	assert.Equal(t, http.StatusOK, rec.Code, "one matching permission is enough")
}

func TestGuardRequireRole(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, NewLRUContextCache(16, time.Minute))
	guard := NewGuard(checker)

	role := createTestRole(t, store, "moderator")
	createTestUser(t, db, "mod-user")
	assignTestRole(t, store, "mod-user", role.ID)
	createTestUser(t, db, "plain-user")

	protected := guard.RequireRole("moderator", "admin")(okHandler())

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, guardTestRequest("mod-user"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, guardTestRequest("plain-user"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardRequireAdmin(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, NewLRUContextCache(16, time.Minute))
	guard := NewGuard(checker)

	admin := createTestRole(t, store, RoleAdmin)
	createTestUser(t, db, "admin-user")
	assignTestRole(t, store, "admin-user", admin.ID)
	createTestUser(t, db, "plain-user")

	protected := guard.RequireAdmin()(okHandler())

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, guardTestRequest("admin-user"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, guardTestRequest("plain-user"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardExpiredAssignmentRejected(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker := NewChecker(store, NewLRUContextCache(16, time.Minute))
	guard := NewGuard(checker)

	role := createTestRole(t, store, "trader")
	grantTestPermission(t, store, role.ID, ActionRead, ResourceTrade)
	createTestUser(t, db, "expired-user")

	expired := time.Now().UTC().Add(-time.Hour)
	assignment := &UserRole{UserID: "expired-user", RoleID: role.ID, ExpiresAt: &expired}
	require.NoError(t, store.AssignRole(context.Background(), assignment))

	protected := guard.RequirePermission(ActionRead, ResourceTrade)(okHandler())

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, guardTestRequest("expired-user"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
