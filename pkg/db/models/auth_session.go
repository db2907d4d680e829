package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harrypeter07/billsync/pkg/enums"
)

// AuthSessionRowID pins the session table to a single row.
const AuthSessionRowID = 1

// AuthSession is the singleton local session record. At most one non-expired
// session exists per store instance.
type AuthSession struct {
	ID        int        `gorm:"column:id;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Email     string     `gorm:"column:email;not null" json:"email"`
	Role      enums.Role `gorm:"column:role;not null" json:"role"`
	StoreID   *uuid.UUID `gorm:"column:store_id;type:uuid" json:"store_id,omitempty"`
	IssuedAt  time.Time  `gorm:"column:issued_at;not null" json:"issued_at"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null" json:"expires_at"`
}

// TableName keeps the historical table name.
func (AuthSession) TableName() string {
	return "auth_session"
}

// Expired reports whether the session is past its expiry at the given time.
func (s AuthSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
