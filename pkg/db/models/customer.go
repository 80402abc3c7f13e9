package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer belongs to one tenant. TenantID is nullable to tolerate legacy
// rows imported before tenancy was enforced. Email is unique across the
// whole system, not per tenant.
type Customer struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TenantID        *uuid.UUID `gorm:"column:tenant_id;type:uuid;index"`
	Name            string     `gorm:"column:name;not null"`
	Email           string     `gorm:"column:email;not null;uniqueIndex"`
	Phone           string     `gorm:"column:phone"`
	GSTIN           *string    `gorm:"column:gstin"`
	State           string     `gorm:"column:state"`
	BillingAddress  string     `gorm:"column:billing_address"`
	ShippingAddress string     `gorm:"column:shipping_address"`
	IsActive        bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BelongsTo reports whether the customer is owned by the given tenant.
func (c *Customer) BelongsTo(tenantID uuid.UUID) bool {
	return c.TenantID != nil && *c.TenantID == tenantID
}
