// Package pricing resolves the unit price charged for a product on an
// invoice or order line.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gstbill-io/gstbill-backend/pkg/db/models"
	pkgerrors "github.com/gstbill-io/gstbill-backend/pkg/errors"
)

// Source names the precedence level a quote was resolved at.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceOverride Source = "customer_override"
	SourceCatalog  Source = "catalog_default"
)

// Quote is a resolved unit price. UsedDefault is true whenever the
// catalog price was used, whether or not an override lookup was tried.
type Quote struct {
	Price       decimal.Decimal
	Source      Source
	UsedDefault bool
}

// Service resolves and manages per-customer pricing. Resolve trusts
// its caller to have tenant-checked the pair already; the external
// operations take the acting tenant and hide foreign customers and
// products as not found.
type Service interface {
	Resolve(ctx context.Context, customerID, productID uuid.UUID, explicit *decimal.Decimal) (Quote, error)
	GetCustomerPrice(ctx context.Context, tenantID, customerID, productID uuid.UUID) (Quote, error)
	SetCustomerPrice(ctx context.Context, tenantID, customerID, productID uuid.UUID, price decimal.Decimal) (*models.CustomerProductPrice, error)
	RemoveCustomerPrice(ctx context.Context, tenantID, customerID, productID uuid.UUID) error
	WithTx(tx *gorm.DB) Service
}

type service struct {
	repo Repository
}

// NewService wires a pricing service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// Resolve applies the precedence explicit > customer override > catalog
// default. A failed override lookup is not an error; the quote falls
// back to the catalog price with UsedDefault set.
func (s *service) Resolve(ctx context.Context, customerID, productID uuid.UUID, explicit *decimal.Decimal) (Quote, error) {
	if explicit != nil {
		return Quote{Price: *explicit, Source: SourceExplicit}, nil
	}

	if customerID != uuid.Nil {
		override, err := s.repo.FindOverride(ctx, customerID, productID)
		if err == nil {
			return Quote{Price: override.Price, Source: SourceOverride}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Quote{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up customer price")
		}
	}

	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Quote{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return Quote{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return Quote{Price: product.Price, Source: SourceCatalog, UsedDefault: true}, nil
}

// GetCustomerPrice resolves the non-explicit price a customer would pay.
func (s *service) GetCustomerPrice(ctx context.Context, tenantID, customerID, productID uuid.UUID) (Quote, error) {
	if customerID == uuid.Nil {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if productID == uuid.Nil {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.checkOwnership(ctx, tenantID, customerID, productID); err != nil {
		return Quote{}, err
	}
	return s.Resolve(ctx, customerID, productID, nil)
}

// SetCustomerPrice creates or replaces the override for the pair.
func (s *service) SetCustomerPrice(ctx context.Context, tenantID, customerID, productID uuid.UUID, price decimal.Decimal) (*models.CustomerProductPrice, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if err := s.checkOwnership(ctx, tenantID, customerID, productID); err != nil {
		return nil, err
	}

	override := &models.CustomerProductPrice{
		ID:         uuid.New(),
		CustomerID: customerID,
		ProductID:  productID,
		Price:      price,
	}
	if err := s.repo.UpsertOverride(ctx, override); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving customer price")
	}
	return override, nil
}

// RemoveCustomerPrice deletes the override; missing rows are a no-op.
func (s *service) RemoveCustomerPrice(ctx context.Context, tenantID, customerID, productID uuid.UUID) error {
	if customerID == uuid.Nil || productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id and product id are required")
	}
	if err := s.checkOwnership(ctx, tenantID, customerID, productID); err != nil {
		return err
	}
	if err := s.repo.DeleteOverride(ctx, customerID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting customer price")
	}
	return nil
}

// checkOwnership hides customers and products owned by other tenants
// as not found. Customers without a tenant are legacy rows and stay
// reachable from any tenant.
func (s *service) checkOwnership(ctx context.Context, tenantID, customerID, productID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}

	customer, err := s.repo.FindCustomerByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer")
	}
	if customer.TenantID != nil && !customer.BelongsTo(tenantID) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}

	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if product.TenantID != tenantID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}
