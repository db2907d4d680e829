package models

import (
	"time"

	"github.com/google/uuid"
)

// Store is the tenant every entity belongs to. Code is the 4-character prefix
// embedded into invoice numbers and employee codes.
type Store struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null" json:"owner_id"`
	Code      string    `gorm:"column:code;size:4;not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	GSTIN     string    `gorm:"column:gstin" json:"gstin"`
	StateCode string    `gorm:"column:state_code" json:"state_code"`
	Address   string    `gorm:"column:address" json:"address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
