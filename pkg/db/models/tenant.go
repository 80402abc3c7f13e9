package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the business that owns products, customers, orders and invoices.
// Code feeds the tenant-scoped invoice number prefix (INV-{code:03d}-...).
type Tenant struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code            int       `gorm:"column:code;not null;uniqueIndex"`
	BusinessName    string    `gorm:"column:business_name;not null"`
	GSTNumber       string    `gorm:"column:gst_number;not null;uniqueIndex"`
	BusinessState   string    `gorm:"column:business_state;not null"`
	BusinessAddress string    `gorm:"column:business_address"`
	Pincode         string    `gorm:"column:pincode"`
	Email           string    `gorm:"column:email;not null"`
	Phone           string    `gorm:"column:phone"`
	// ExtendedInvoiceStatuses lets the tenant use draft/done in addition
	// to the canonical pending/paid/cancelled set.
	ExtendedInvoiceStatuses bool      `gorm:"column:extended_invoice_statuses;not null;default:false"`
	IsActive                bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt               time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
