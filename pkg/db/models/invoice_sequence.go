package models

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceSequence is the per-(store, calendar day) counter backing invoice
// number generation. Sequence is monotonically non-decreasing within a key;
// the key itself rolls over daily.
type InvoiceSequence struct {
	StoreID  uuid.UUID `gorm:"column:store_id;type:uuid;primaryKey" json:"store_id"`
	Date     string    `gorm:"column:date;primaryKey" json:"date"` // YYYYMMDD
	Sequence int       `gorm:"column:sequence;not null;default:0" json:"sequence"`

	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName keeps the historical table name.
func (InvoiceSequence) TableName() string {
	return "invoice_sequences"
}
