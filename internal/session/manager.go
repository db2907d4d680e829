package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

// DefaultTTL applies when no duration is configured.
const DefaultTTL = 24 * time.Hour

// Manager persists the singleton local session. Saving replaces any previous
// session; reading an expired session clears it, and an expired session is
// never resurrected.
type Manager struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewManager builds a manager with the given session lifetime.
func NewManager(db *gorm.DB, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{db: db, ttl: ttl, now: time.Now}
}

// Save persists a fresh session for the user, replacing any existing one.
func (m *Manager) Save(ctx context.Context, userID uuid.UUID, email string, role enums.Role, storeID *uuid.UUID) (*models.AuthSession, error) {
	now := m.now().UTC()
	session := models.AuthSession{
		ID:        models.AuthSessionRowID,
		UserID:    userID,
		Email:     email,
		Role:      role,
		StoreID:   storeID,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	err := m.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&session).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "saving session")
	}
	return &session, nil
}

// Get returns the active session. An expired session is cleared and reported
// as such; a missing session is reported as not found.
func (m *Manager) Get(ctx context.Context) (*models.AuthSession, error) {
	var session models.AuthSession
	err := m.db.WithContext(ctx).First(&session, models.AuthSessionRowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active session")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "reading session")
	}
	if session.Expired(m.now().UTC()) {
		if err := m.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeSessionExpired, "session expired")
	}
	return &session, nil
}

// Clear removes the persisted session, if any.
func (m *Manager) Clear(ctx context.Context) error {
	err := m.db.WithContext(ctx).
		Delete(&models.AuthSession{}, models.AuthSessionRowID).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "clearing session")
	}
	return nil
}
