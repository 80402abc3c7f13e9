package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable SKU. StockQuantity is derived from the stock
// movement ledger; it is only ever mutated through internal/stock.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_products_tenant_sku"`
	SKU           string          `gorm:"column:sku;not null;uniqueIndex:idx_products_tenant_sku"`
	Name          string          `gorm:"column:name;not null"`
	Description   string          `gorm:"column:description"`
	HSNCode       string          `gorm:"column:hsn_code"`
	Category      string          `gorm:"column:category"`
	Brand         string          `gorm:"column:brand"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	PurchasePrice decimal.Decimal `gorm:"column:purchase_price;type:numeric(12,2);not null;default:0"`
	GSTRate       decimal.Decimal `gorm:"column:gst_rate;type:numeric(5,2);not null;default:18"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	MinStockLevel int             `gorm:"column:min_stock_level;not null;default:10"`
	Unit          string          `gorm:"column:unit;not null;default:'PCS'"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// IsLowStock reports whether on-hand quantity has fallen to the
// reorder threshold.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}
