package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harrypeter07/billsync/pkg/enums"
)

// Invoice is the billing document header. InvoiceNumber is generated locally
// and stays unique within a store for the lifetime of the system.
type Invoice struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	CustomerID     *uuid.UUID          `gorm:"column:customer_id;type:uuid" json:"customer_id,omitempty"`
	InvoiceNumber  string              `gorm:"column:invoice_number;not null;uniqueIndex" json:"invoice_number"`
	InvoiceDate    time.Time           `gorm:"column:invoice_date;not null" json:"invoice_date"`
	DueDate        *time.Time          `gorm:"column:due_date" json:"due_date,omitempty"`
	Status         enums.InvoiceStatus `gorm:"column:status;not null;default:'draft'" json:"status"`
	IsGSTInvoice   bool                `gorm:"column:is_gst_invoice;not null;default:false" json:"is_gst_invoice"`
	Subtotal       decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2)" json:"discount_amount"`
	CGSTAmount     decimal.Decimal     `gorm:"column:cgst_amount;type:numeric(12,2)" json:"cgst_amount"`
	SGSTAmount     decimal.Decimal     `gorm:"column:sgst_amount;type:numeric(12,2)" json:"sgst_amount"`
	IGSTAmount     decimal.Decimal     `gorm:"column:igst_amount;type:numeric(12,2)" json:"igst_amount"`
	TotalAmount    decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	Items          []InvoiceItem       `gorm:"-" json:"items,omitempty"`
	IsSynced       bool                `gorm:"column:is_synced;not null;default:false;index" json:"is_synced"`
	Deleted        bool                `gorm:"column:deleted;not null;default:false;index" json:"deleted"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}

// InvoiceItem is a line on an invoice. Item lifetime is bound to the invoice;
// ProductID is a weak reference kept for lookups only.
type InvoiceItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InvoiceID       uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index" json:"invoice_id"`
	ProductID       *uuid.UUID      `gorm:"column:product_id;type:uuid" json:"product_id,omitempty"`
	Description     string          `gorm:"column:description;not null" json:"description"`
	Quantity        decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2)" json:"discount_percent"`
	GSTRate         decimal.Decimal `gorm:"column:gst_rate;type:numeric(5,2)" json:"gst_rate"`
	HSNCode         string          `gorm:"column:hsn_code" json:"hsn_code"`
	LineTotal       decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null" json:"line_total"`
	GSTAmount       decimal.Decimal `gorm:"column:gst_amount;type:numeric(12,2)" json:"gst_amount"`
}
