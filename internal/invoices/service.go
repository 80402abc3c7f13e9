// Package invoices implements the invoice lifecycle: creation with
// stock reservation and GST computation, edits, deletion and status
// transitions.
package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gstbill-io/gstbill-backend/internal/numbering"
	"github.com/gstbill-io/gstbill-backend/internal/pricing"
	"github.com/gstbill-io/gstbill-backend/internal/stock"
	"github.com/gstbill-io/gstbill-backend/internal/tax"
	"github.com/gstbill-io/gstbill-backend/pkg/db"
	"github.com/gstbill-io/gstbill-backend/pkg/db/models"
	"github.com/gstbill-io/gstbill-backend/pkg/enums"
	pkgerrors "github.com/gstbill-io/gstbill-backend/pkg/errors"
	"github.com/gstbill-io/gstbill-backend/pkg/metrics"
)

const (
	defaultMaxAttempts = 3
	defaultDueDays     = 30
)

// LockFactory builds the optional per-tenant allocation lock.
type LockFactory func(tenantID uuid.UUID) numbering.Lock

// Service manages the invoice lifecycle.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, input CreateInvoiceInput) (*InvoiceView, error)
	Edit(ctx context.Context, tenantID, invoiceID uuid.UUID, lines []LineInput) (*InvoiceView, error)
	Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error
	UpdateStatus(ctx context.Context, tenantID, invoiceID uuid.UUID, status string) (*InvoiceView, error)
	Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceView, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]*InvoiceView, error)
}

// Options tunes service behavior beyond its dependencies.
type Options struct {
	MaxNumberAttempts int
	DueDays           int
	LockFactory       LockFactory
	Metrics           *metrics.EngineMetrics
	Now               func() time.Time
}

type service struct {
	client      *db.Client
	repo        Repository
	pricing     pricing.Service
	stock       stock.Service
	metrics     *metrics.EngineMetrics
	lockFactory LockFactory
	maxAttempts int
	dueDays     int
	now         func() time.Time
}

// NewService wires the invoice service with its collaborators.
func NewService(client *db.Client, repo Repository, pricingSvc pricing.Service, stockSvc stock.Service, opts Options) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("invoices repository required")
	}
	if pricingSvc == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	if stockSvc == nil {
		return nil, fmt.Errorf("stock service required")
	}

	maxAttempts := opts.MaxNumberAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	dueDays := opts.DueDays
	if dueDays <= 0 {
		dueDays = defaultDueDays
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	lockFactory := opts.LockFactory
	if lockFactory == nil {
		lockFactory = func(uuid.UUID) numbering.Lock { return numbering.NoopLock{} }
	}

	return &service{
		client:      client,
		repo:        repo,
		pricing:     pricingSvc,
		stock:       stockSvc,
		metrics:     opts.Metrics,
		lockFactory: lockFactory,
		maxAttempts: maxAttempts,
		dueDays:     dueDays,
		now:         now,
	}, nil
}

// computedLines is the priced and taxed form of the requested lines.
type computedLines struct {
	items        []models.InvoiceItem
	reservations []stock.ReservationLine
	subtotal     decimal.Decimal
	totalGST     decimal.Decimal
	productNames map[uuid.UUID]string
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line product id is required")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if line.UnitPrice != nil && line.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "line unit price must not be negative")
		}
	}
	return nil
}

// computeLines loads and tenant-checks each product, resolves the unit
// price and computes per-line GST. All reads go through tx.
func (s *service) computeLines(ctx context.Context, tx *gorm.DB, tenantID, customerID uuid.UUID, lines []LineInput) (*computedLines, error) {
	repo := s.repo.WithTx(tx)
	pricingSvc := s.pricing.WithTx(tx)

	out := &computedLines{
		subtotal:     decimal.Zero,
		totalGST:     decimal.Zero,
		productNames: make(map[uuid.UUID]string, len(lines)),
	}
	for _, line := range lines {
		product, err := repo.FindProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", line.ProductID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}
		if product.TenantID != tenantID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", line.ProductID))
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is inactive", product.Name))
		}

		quote, err := pricingSvc.Resolve(ctx, customerID, line.ProductID, line.UnitPrice)
		if err != nil {
			return nil, err
		}

		amounts := tax.ComputeLine(line.Quantity, quote.Price, product.GSTRate)
		out.items = append(out.items, models.InvoiceItem{
			ID:        uuid.New(),
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: quote.Price,
			GSTRate:   product.GSTRate,
			GSTAmount: amounts.GSTAmount,
			Total:     amounts.Total,
		})
		out.reservations = append(out.reservations, stock.ReservationLine{
			ProductID: product.ID,
			Quantity:  line.Quantity,
		})
		out.subtotal = out.subtotal.Add(amounts.Total)
		out.totalGST = out.totalGST.Add(amounts.GSTAmount)
		out.productNames[product.ID] = product.Name
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, input CreateInvoiceInput) (*InvoiceView, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}

	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	status := enums.InvoiceStatusPending
	if input.Status != "" {
		status, err = enums.ParseInvoiceStatus(input.Status, tenant.ExtendedInvoiceStatuses)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
	}

	started := s.now()

	lock := s.lockFactory(tenantID)
	if acquired, lockErr := lock.Acquire(ctx); lockErr == nil && acquired {
		defer func() { _ = lock.Release(ctx) }()
	}

	var invoice *models.Invoice
	var names map[uuid.UUID]string
	var customer *models.Customer

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		txErr := s.client.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			var err error
			customer, err = s.loadCustomer(ctx, repo, tenantID, input.CustomerID)
			if err != nil {
				return err
			}

			computed, err := s.computeLines(ctx, tx, tenantID, customer.ID, input.Lines)
			if err != nil {
				return err
			}

			number, err := numbering.NextInvoiceNumber(ctx, tx, tenant)
			if err != nil {
				return err
			}

			if err := s.stock.ReserveForInvoice(ctx, tx, computed.reservations, number); err != nil {
				return err
			}

			split := tax.ComputeSplit(customer.State, tenant.BusinessState, computed.totalGST)
			invoiceDate := started
			if input.InvoiceDate != nil {
				invoiceDate = *input.InvoiceDate
			}
			dueDate := input.DueDate
			if dueDate == nil {
				d := invoiceDate.AddDate(0, 0, s.dueDays)
				dueDate = &d
			}

			invoice = &models.Invoice{
				ID:            uuid.New(),
				TenantID:      tenantID,
				CustomerID:    customer.ID,
				InvoiceNumber: number,
				InvoiceDate:   invoiceDate,
				DueDate:       dueDate,
				Subtotal:      computed.subtotal,
				CGSTAmount:    split.CGST,
				SGSTAmount:    split.SGST,
				IGSTAmount:    split.IGST,
				TotalAmount:   tax.InvoiceTotal(computed.subtotal, split),
				Status:        status,
				Notes:         input.Notes,
			}
			if err := repo.CreateInvoice(ctx, invoice); err != nil {
				return err
			}

			for i := range computed.items {
				computed.items[i].InvoiceID = invoice.ID
			}
			if err := repo.CreateItems(ctx, computed.items); err != nil {
				return err
			}
			invoice.Items = computed.items
			names = computed.productNames
			return nil
		})

		if txErr == nil {
			s.metrics.IncInvoiceCreated()
			s.metrics.ObserveInvoiceBuild(s.now().Sub(started))
			return buildView(invoice, customer.Name, names), nil
		}
		if db.IsUniqueViolation(txErr, "invoice_number") {
			s.metrics.IncNumberingRetry()
			continue
		}
		return nil, txErr
	}

	return nil, pkgerrors.New(pkgerrors.CodeNumberingConflict,
		fmt.Sprintf("could not allocate an invoice number after %d attempts", s.maxAttempts))
}

func (s *service) Edit(ctx context.Context, tenantID, invoiceID uuid.UUID, lines []LineInput) (*InvoiceView, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var invoice *models.Invoice
	var names map[uuid.UUID]string
	var customer *models.Customer

	txErr := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		invoice, err = s.loadInvoice(ctx, repo, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice.IsLocked() {
			return pkgerrors.New(pkgerrors.CodeLockedInvoice,
				fmt.Sprintf("invoice %s is paid and cannot be edited", invoice.InvoiceNumber))
		}

		customer, err = s.loadCustomer(ctx, repo, tenantID, invoice.CustomerID)
		if err != nil {
			return err
		}

		// put the old lines back before re-reserving the new ones
		if err := s.stock.ReleaseForInvoice(ctx, tx, invoice.Items, invoice.InvoiceNumber); err != nil {
			return err
		}
		if err := repo.DeleteItemsByInvoice(ctx, invoice.ID); err != nil {
			return err
		}

		computed, err := s.computeLines(ctx, tx, tenantID, customer.ID, lines)
		if err != nil {
			return err
		}
		if err := s.stock.ReserveForInvoice(ctx, tx, computed.reservations, invoice.InvoiceNumber); err != nil {
			return err
		}

		split := tax.ComputeSplit(customer.State, tenant.BusinessState, computed.totalGST)
		invoice.Subtotal = computed.subtotal
		invoice.CGSTAmount = split.CGST
		invoice.SGSTAmount = split.SGST
		invoice.IGSTAmount = split.IGST
		invoice.TotalAmount = tax.InvoiceTotal(computed.subtotal, split)

		if err := repo.UpdateInvoice(ctx, invoice); err != nil {
			return err
		}
		for i := range computed.items {
			computed.items[i].InvoiceID = invoice.ID
		}
		if err := repo.CreateItems(ctx, computed.items); err != nil {
			return err
		}
		invoice.Items = computed.items
		names = computed.productNames
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.metrics.IncInvoiceEdited()
	return buildView(invoice, customer.Name, names), nil
}

func (s *service) Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	txErr := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invoice, err := s.loadInvoice(ctx, repo, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice.IsLocked() {
			return pkgerrors.New(pkgerrors.CodeLockedInvoice,
				fmt.Sprintf("invoice %s is paid and cannot be deleted", invoice.InvoiceNumber))
		}

		if err := s.stock.ReleaseForInvoice(ctx, tx, invoice.Items, invoice.InvoiceNumber); err != nil {
			return err
		}
		if err := repo.DeleteItemsByInvoice(ctx, invoice.ID); err != nil {
			return err
		}
		return repo.DeleteInvoice(ctx, invoice.ID)
	})
	if txErr != nil {
		return txErr
	}

	s.metrics.IncInvoiceDeleted()
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, tenantID, invoiceID uuid.UUID, status string) (*InvoiceView, error) {
	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	parsed, err := enums.ParseInvoiceStatus(status, tenant.ExtendedInvoiceStatuses)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	invoice, err := s.loadInvoice(ctx, s.repo, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	invoice.Status = parsed
	if err := s.repo.UpdateInvoice(ctx, invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating invoice status")
	}
	return s.Get(ctx, tenantID, invoiceID)
}

func (s *service) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceView, error) {
	invoice, err := s.loadInvoice(ctx, s.repo, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.renderInvoice(ctx, invoice)
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]*InvoiceView, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	invoices, err := s.repo.ListInvoices(ctx, tenantID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing invoices")
	}

	views := make([]*InvoiceView, 0, len(invoices))
	for i := range invoices {
		view, err := s.renderInvoice(ctx, &invoices[i])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *service) renderInvoice(ctx context.Context, invoice *models.Invoice) (*InvoiceView, error) {
	ids := make([]uuid.UUID, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		ids = append(ids, item.ProductID)
	}
	names, err := s.repo.ProductNames(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product names")
	}

	customerName := ""
	if customer, err := s.repo.FindCustomerByID(ctx, invoice.CustomerID); err == nil {
		customerName = customer.Name
	}
	return buildView(invoice, customerName, names), nil
}

func (s *service) loadTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.repo.FindTenantByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading tenant")
	}
	return tenant, nil
}

// loadCustomer tenant-checks the customer. Rows with a nil tenant are
// legacy imports and stay reachable.
func (s *service) loadCustomer(ctx context.Context, repo Repository, tenantID, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := repo.FindCustomerByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer")
	}
	if customer.TenantID != nil && !customer.BelongsTo(tenantID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return customer, nil
}

func (s *service) loadInvoice(ctx context.Context, repo Repository, tenantID, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := repo.FindInvoiceByID(ctx, tenantID, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading invoice")
	}
	return invoice, nil
}
