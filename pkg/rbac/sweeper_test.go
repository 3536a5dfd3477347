package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRemovesExpiredAssignments(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	sweeper := NewSweeper(store, testLogger(), "30 0 * * *")

	role := createTestRole(t, store, "trader")
	createTestUser(t, db, "expired-user")
	createTestUser(t, db, "current-user")
	createTestUser(t, db, "permanent-user")

	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.AssignRole(ctx, &UserRole{UserID: "expired-user", RoleID: role.ID, ExpiresAt: &past}))
	require.NoError(t, store.AssignRole(ctx, &UserRole{UserID: "current-user", RoleID: role.ID, ExpiresAt: futureTime(time.Hour)}))
	require.NoError(t, store.AssignRole(ctx, &UserRole{UserID: "permanent-user", RoleID: role.ID}))

	require.NoError(t, sweeper.Sweep(ctx))

	var remaining int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM user_roles`).Scan(&remaining))
	assert.Equal(t, 2, remaining, "only the expired assignment is reclaimed")

	expiredRows, err := store.ListUserAssignments(ctx, "expired-user")
	require.NoError(t, err)
	assert.Empty(t, expiredRows)
}

func TestSweepIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	sweeper := NewSweeper(store, testLogger(), "30 0 * * *")

	ctx := context.Background()
	require.NoError(t, sweeper.Sweep(ctx))
	require.NoError(t, sweeper.Sweep(ctx))
}

func TestSweeperStartStop(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	sweeper := NewSweeper(store, testLogger(), "30 0 * * *")

	require.NoError(t, sweeper.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, sweeper.Stop(ctx))
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	sweeper := NewSweeper(store, testLogger(), "not a schedule")

	assert.Error(t, sweeper.Start())
}
