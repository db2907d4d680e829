package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harrypeter07/billsync/pkg/enums"
)

// Employee is a store staff member who can log in locally with a PIN.
// Code is generated per store and embedded into invoice numbers.
type Employee struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	StoreID   uuid.UUID  `gorm:"column:store_id;type:uuid;not null;uniqueIndex:ux_employees_store_code" json:"store_id"`
	Name      string     `gorm:"column:name;not null" json:"name"`
	Code      string     `gorm:"column:code;size:4;not null;uniqueIndex:ux_employees_store_code" json:"code"`
	PinHash   string     `gorm:"column:pin_hash" json:"-"`
	Role      enums.Role `gorm:"column:role;not null;default:'employee'" json:"role"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
