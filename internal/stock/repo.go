package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gstbill-io/gstbill-backend/pkg/db/models"
	"github.com/gstbill-io/gstbill-backend/pkg/enums"
)

// MovementFilter narrows ListMovements results. TenantID scopes the
// listing to movements on the tenant's own products.
type MovementFilter struct {
	TenantID  uuid.UUID
	ProductID *uuid.UUID
	Type      *enums.MovementType
	Limit     int
}

// Repository abstracts stock reads and quantity updates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// AdjustQuantity applies a relative delta. When minRequired is set the
	// update only lands if stock_quantity >= minRequired; the returned bool
	// reports whether a row was updated.
	AdjustQuantity(ctx context.Context, productID uuid.UUID, delta int, minRequired *int) (bool, error)
	SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) (bool, error)
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, error)
	ListLowStock(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a stock repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) AdjustQuantity(ctx context.Context, productID uuid.UUID, delta int, minRequired *int) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID)
	if minRequired != nil {
		query = query.Where("stock_quantity >= ?", *minRequired)
	}
	res := query.Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", quantity)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).Model(&models.StockMovement{})
	if filter.TenantID != uuid.Nil {
		query = query.
			Select("stock_movements.*").
			Joins("JOIN products ON products.id = stock_movements.product_id").
			Where("products.tenant_id = ?", filter.TenantID)
	}
	if filter.ProductID != nil {
		query = query.Where("stock_movements.product_id = ?", *filter.ProductID)
	}
	if filter.Type != nil {
		query = query.Where("stock_movements.movement_type = ?", *filter.Type)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var movements []models.StockMovement
	if err := query.Order("stock_movements.created_at DESC").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) ListLowStock(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ? AND stock_quantity <= min_stock_level", tenantID, true).
		Order("stock_quantity ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
