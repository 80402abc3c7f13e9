// Package stock keeps the immutable movement ledger and the derived
// on-hand quantity on products in sync.
package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/gstbill-io/gstbill-backend/pkg/db"
	"github.com/gstbill-io/gstbill-backend/pkg/db/models"
	"github.com/gstbill-io/gstbill-backend/pkg/enums"
	pkgerrors "github.com/gstbill-io/gstbill-backend/pkg/errors"
	"github.com/gstbill-io/gstbill-backend/pkg/metrics"
)

// MovementInput describes one ledger entry to record.
type MovementInput struct {
	// TenantID, when set, restricts the movement to products owned by
	// that tenant. Foreign products read as not found. Internal callers
	// that already tenant-checked the product may leave it zero.
	TenantID  uuid.UUID
	ProductID uuid.UUID
	Type      enums.MovementType
	Quantity  int
	Reference string
	Notes     string
	// Strict makes an out movement fail instead of driving the
	// quantity negative. Invoice reservations are always strict;
	// manual movements may run lenient to record backorders.
	Strict bool
}

// ReservationLine is one invoice line to reserve stock for.
type ReservationLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// Service records stock movements and reservations.
type Service interface {
	RecordMovement(ctx context.Context, input MovementInput) (int, error)
	ReserveForInvoice(ctx context.Context, tx *gorm.DB, lines []ReservationLine, invoiceNumber string) error
	ReleaseForInvoice(ctx context.Context, tx *gorm.DB, items []models.InvoiceItem, invoiceNumber string) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, error)
	ListLowStock(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error)
	WithTx(tx *gorm.DB) Service
}

type service struct {
	client  *db.Client
	repo    Repository
	metrics *metrics.EngineMetrics
}

// NewService wires a stock service with the provided repository.
func NewService(client *db.Client, repo Repository, engineMetrics *metrics.EngineMetrics) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{client: client, repo: repo, metrics: engineMetrics}, nil
}

// WithTx rebinds the service to the caller's transaction. The bound
// copy never opens its own transaction.
func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), metrics: s.metrics}
}

// RecordMovement appends a ledger row and updates the product quantity
// in one transaction, so the ledger and the derived quantity cannot
// diverge. Returns the quantity after the movement.
func (s *service) RecordMovement(ctx context.Context, input MovementInput) (int, error) {
	if input.ProductID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if !input.Type.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement type %q", input.Type))
	}
	if input.Quantity <= 0 && input.Type != enums.MovementTypeAdjustment {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Quantity < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "adjustment quantity must not be negative")
	}

	if s.client == nil {
		return s.applyMovement(ctx, s.repo, input)
	}

	var quantity int
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		var applyErr error
		quantity, applyErr = s.applyMovement(ctx, s.repo.WithTx(tx), input)
		return applyErr
	})
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

func (s *service) applyMovement(ctx context.Context, repo Repository, input MovementInput) (int, error) {
	if input.TenantID != uuid.Nil {
		product, err := repo.FindProductByID(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}
		if product.TenantID != input.TenantID {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
	}

	switch input.Type {
	case enums.MovementTypeIn:
		updated, err := repo.AdjustQuantity(ctx, input.ProductID, input.Quantity, nil)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding stock")
		}
		if !updated {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

	case enums.MovementTypeOut:
		var minRequired *int
		if input.Strict {
			minRequired = &input.Quantity
		}
		updated, err := repo.AdjustQuantity(ctx, input.ProductID, -input.Quantity, minRequired)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deducting stock")
		}
		if !updated {
			return 0, deductionFailure(ctx, repo, input.ProductID, input.Quantity)
		}

	case enums.MovementTypeAdjustment:
		updated, err := repo.SetQuantity(ctx, input.ProductID, input.Quantity)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjusting stock")
		}
		if !updated {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
	}

	movement := &models.StockMovement{
		ID:           uuid.New(),
		ProductID:    input.ProductID,
		MovementType: input.Type,
		Quantity:     input.Quantity,
		Reference:    input.Reference,
		Notes:        input.Notes,
	}
	if err := repo.CreateMovement(ctx, movement); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording stock movement")
	}
	s.metrics.IncStockMovement(input.Type.String())

	product, err := repo.FindProductByID(ctx, input.ProductID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading updated quantity")
	}
	return product.StockQuantity, nil
}

// deductionFailure distinguishes a missing product from an insufficient
// balance. The guarded update cannot tell them apart.
func deductionFailure(ctx context.Context, repo Repository, productID uuid.UUID, requested int) error {
	product, err := repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	typed := pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %s", product.Name))
	typed.WithDetails(map[string]any{
		"product_id": product.ID.String(),
		"product":    product.Name,
		"available":  product.StockQuantity,
		"requested":  requested,
	})
	return typed
}

// ReserveForInvoice deducts stock for every invoice line, strictly.
// Must run inside the invoice transaction; the first failing line
// aborts it so no partial deduction survives.
func (s *service) ReserveForInvoice(ctx context.Context, tx *gorm.DB, lines []ReservationLine, invoiceNumber string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "reservation requires a transaction")
	}
	bound := s.WithTx(tx)
	for _, line := range lines {
		_, err := bound.RecordMovement(ctx, MovementInput{
			ProductID: line.ProductID,
			Type:      enums.MovementTypeOut,
			Quantity:  line.Quantity,
			Reference: invoiceNumber,
			Notes:     fmt.Sprintf("Sale via %s", invoiceNumber),
			Strict:    true,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ReleaseForInvoice restores stock for every existing invoice line.
// Release is lenient; the quantities were deducted before, so adding
// them back cannot fail a balance check. Errors are aggregated so a
// failing line does not hide the rest.
func (s *service) ReleaseForInvoice(ctx context.Context, tx *gorm.DB, items []models.InvoiceItem, invoiceNumber string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "release requires a transaction")
	}
	bound := s.WithTx(tx)
	var errs error
	for _, item := range items {
		_, err := bound.RecordMovement(ctx, MovementInput{
			ProductID: item.ProductID,
			Type:      enums.MovementTypeIn,
			Quantity:  item.Quantity,
			Reference: fmt.Sprintf("Reversal of %s", invoiceNumber),
		})
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (s *service) ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, error) {
	if filter.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if filter.Type != nil && !filter.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement type %q", *filter.Type))
	}
	movements, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing stock movements")
	}
	return movements, nil
}

func (s *service) ListLowStock(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	products, err := s.repo.ListLowStock(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing low stock products")
	}
	return products, nil
}
