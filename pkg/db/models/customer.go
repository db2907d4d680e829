package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer mirrors a contact row between the local store and the remote store.
type Customer struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Name            string    `gorm:"column:name;not null" json:"name"`
	Email           string    `gorm:"column:email" json:"email"`
	Phone           string    `gorm:"column:phone" json:"phone"`
	GSTIN           string    `gorm:"column:gstin" json:"gstin"`
	BillingAddress  string    `gorm:"column:billing_address" json:"billing_address"`
	ShippingAddress string    `gorm:"column:shipping_address" json:"shipping_address"`
	Notes           string    `gorm:"column:notes" json:"notes"`
	IsSynced        bool      `gorm:"column:is_synced;not null;default:false;index" json:"is_synced"`
	Deleted         bool      `gorm:"column:deleted;not null;default:false;index" json:"deleted"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}
