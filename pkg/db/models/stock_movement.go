package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gstbill-io/gstbill-backend/pkg/enums"
)

// StockMovement is an immutable ledger entry. Quantity carries the moved
// amount for in/out and the absolute target quantity for adjustments.
type StockMovement struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index"`
	MovementType enums.MovementType `gorm:"column:movement_type;not null"`
	Quantity     int                `gorm:"column:quantity;not null"`
	Reference    string             `gorm:"column:reference"`
	Notes        string             `gorm:"column:notes"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}
