package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product mirrors a catalog row between the local store and the remote store.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Name          string          `gorm:"column:name;not null" json:"name"`
	SKU           string          `gorm:"column:sku" json:"sku"`
	Category      string          `gorm:"column:category" json:"category"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	CostPrice     decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2)" json:"cost_price"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0" json:"stock_quantity"`
	Unit          string          `gorm:"column:unit;default:'pcs'" json:"unit"`
	HSNCode       string          `gorm:"column:hsn_code" json:"hsn_code"`
	GSTRate       decimal.Decimal `gorm:"column:gst_rate;type:numeric(5,2)" json:"gst_rate"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsSynced      bool            `gorm:"column:is_synced;not null;default:false;index" json:"is_synced"`
	Deleted       bool            `gorm:"column:deleted;not null;default:false;index" json:"deleted"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}
