package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gstbill-io/gstbill-backend/pkg/enums"
)

// Invoice is a tax document. OrderID is set when the invoice was generated
// from an order; the unique index enforces at most one invoice per order.
type Invoice struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_tenant_invoice_number"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	OrderID       *uuid.UUID          `gorm:"column:order_id;type:uuid;uniqueIndex"`
	InvoiceNumber string              `gorm:"column:invoice_number;not null;uniqueIndex:idx_tenant_invoice_number"`
	InvoiceDate   time.Time           `gorm:"column:invoice_date;not null"`
	DueDate       *time.Time          `gorm:"column:due_date"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	CGSTAmount    decimal.Decimal     `gorm:"column:cgst_amount;type:numeric(12,2);not null;default:0"`
	SGSTAmount    decimal.Decimal     `gorm:"column:sgst_amount;type:numeric(12,2);not null;default:0"`
	IGSTAmount    decimal.Decimal     `gorm:"column:igst_amount;type:numeric(12,2);not null;default:0"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	Status        enums.InvoiceStatus `gorm:"column:status;not null;default:'pending'"`
	Notes         string              `gorm:"column:notes"`
	Items         []InvoiceItem       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsLocked reports whether the invoice rejects edits and deletion.
func (i *Invoice) IsLocked() bool {
	return i.Status == enums.InvoiceStatusPaid
}

// InvoiceItem is one line on an invoice. GSTRate and GSTAmount are
// snapshots taken at invoice time; Total excludes GST.
type InvoiceItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	GSTRate   decimal.Decimal `gorm:"column:gst_rate;type:numeric(5,2);not null"`
	GSTAmount decimal.Decimal `gorm:"column:gst_amount;type:numeric(12,2);not null"`
	Total     decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
}
