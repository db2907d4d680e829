package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

func setupSessionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS auth_session (
  id INTEGER PRIMARY KEY,
  user_id TEXT NOT NULL,
  email TEXT NOT NULL,
  role TEXT NOT NULL,
  store_id TEXT,
  issued_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func TestSaveThenGetReturnsActiveSession(t *testing.T) {
	db := setupSessionTestDB(t)
	mgr := NewManager(db, time.Hour)
	ctx := context.Background()

	userID := uuid.New()
	storeID := uuid.New()
	saved, err := mgr.Save(ctx, userID, "owner@example.com", enums.RoleOwner, &storeID)
	require.NoError(t, err)
	assert.Equal(t, saved.IssuedAt.Add(time.Hour), saved.ExpiresAt)

	got, err := mgr.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, enums.RoleOwner, got.Role)
	require.NotNil(t, got.StoreID)
	assert.Equal(t, storeID, *got.StoreID)
}

func TestSaveReplacesExistingSession(t *testing.T) {
	db := setupSessionTestDB(t)
	mgr := NewManager(db, time.Hour)
	ctx := context.Background()

	_, err := mgr.Save(ctx, uuid.New(), "first@example.com", enums.RoleOwner, nil)
	require.NoError(t, err)
	second := uuid.New()
	_, err = mgr.Save(ctx, second, "second@example.com", enums.RoleEmployee, nil)
	require.NoError(t, err)

	got, err := mgr.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got.UserID)
	assert.Equal(t, "second@example.com", got.Email)

	var count int64
	require.NoError(t, db.Model(&models.AuthSession{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "session row is a singleton")
}

func TestGetWithoutSessionReturnsNotFound(t *testing.T) {
	db := setupSessionTestDB(t)
	mgr := NewManager(db, time.Hour)

	_, err := mgr.Get(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestGetClearsExpiredSession(t *testing.T) {
	db := setupSessionTestDB(t)
	mgr := NewManager(db, time.Hour)
	ctx := context.Background()

	_, err := mgr.Save(ctx, uuid.New(), "owner@example.com", enums.RoleOwner, nil)
	require.NoError(t, err)

	// Jump the clock just past expiry.
	mgr.now = func() time.Time { return time.Now().Add(time.Hour + time.Millisecond) }

	_, err = mgr.Get(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSessionExpired))

	// The expired session is gone for good, not just hidden.
	var count int64
	require.NoError(t, db.Model(&models.AuthSession{}).Count(&count).Error)
	assert.Zero(t, count)

	_, err = mgr.Get(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestSessionValidUpToExpiryInstant(t *testing.T) {
	db := setupSessionTestDB(t)
	mgr := NewManager(db, time.Hour)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return base }
	saved, err := mgr.Save(ctx, uuid.New(), "owner@example.com", enums.RoleOwner, nil)
	require.NoError(t, err)

	// now == expiresAt is still valid; one tick later it is not.
	mgr.now = func() time.Time { return saved.ExpiresAt }
	_, err = mgr.Get(ctx)
	require.NoError(t, err)

	mgr.now = func() time.Time { return saved.ExpiresAt.Add(time.Millisecond) }
	_, err = mgr.Get(ctx)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSessionExpired))
}

func TestDefaultTTLApplied(t *testing.T) {
	db := setupSessionTestDB(t)
	mgr := NewManager(db, 0)

	saved, err := mgr.Save(context.Background(), uuid.New(), "owner@example.com", enums.RoleOwner, nil)
	require.NoError(t, err)
	assert.Equal(t, saved.IssuedAt.Add(24*time.Hour), saved.ExpiresAt)
}

func TestSelectMode(t *testing.T) {
	owner := &models.AuthSession{Role: enums.RoleOwner}
	admin := &models.AuthSession{Role: enums.RoleAdmin}
	employee := &models.AuthSession{Role: enums.RoleEmployee}

	tests := []struct {
		name       string
		session    *models.AuthSession
		configured enums.Mode
		want       enums.Mode
	}{
		{"owner goes remote", owner, enums.ModeRemoteDirect, enums.ModeRemoteDirect},
		{"admin goes remote", admin, enums.ModeRemoteDirect, enums.ModeRemoteDirect},
		{"employee stays local", employee, enums.ModeRemoteDirect, enums.ModeLocalFirst},
		{"no session stays local", nil, enums.ModeRemoteDirect, enums.ModeLocalFirst},
		{"pinned local overrides owner", owner, enums.ModeLocalFirst, enums.ModeLocalFirst},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectMode(tt.session, tt.configured))
		})
	}
}
