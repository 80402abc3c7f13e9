// Package orders handles customer order placement, fulfillment status
// and conversion of an order into an invoice.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gstbill-io/gstbill-backend/internal/invoices"
	"github.com/gstbill-io/gstbill-backend/internal/numbering"
	"github.com/gstbill-io/gstbill-backend/internal/pricing"
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

// Service manages orders and their conversion into invoices.
type Service interface {
	PlaceOrder(ctx context.Context, tenantID uuid.UUID, input PlaceOrderInput) (*OrderView, error)
	UpdateOrderStatus(ctx context.Context, tenantID, orderID uuid.UUID, status string) (*OrderView, error)
	Get(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderView, error)
	List(ctx context.Context, tenantID uuid.UUID, filter OrderListFilter) ([]*OrderView, error)
	GenerateInvoiceFromOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*invoices.InvoiceView, error)
}

// Options tunes service behavior beyond its dependencies.
type Options struct {
	MaxNumberAttempts int
	DueDays           int
	Metrics           *metrics.EngineMetrics
	Now               func() time.Time
}

type service struct {
	client      *db.Client
	repo        Repository
	pricing     pricing.Service
	metrics     *metrics.EngineMetrics
	maxAttempts int
	dueDays     int
	now         func() time.Time
}

// NewService wires the orders service with its collaborators.
func NewService(client *db.Client, repo Repository, pricingSvc pricing.Service, opts Options) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if pricingSvc == nil {
		return nil, fmt.Errorf("pricing service required")
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

	return &service{
		client:      client,
		repo:        repo,
		pricing:     pricingSvc,
		metrics:     opts.Metrics,
		maxAttempts: maxAttempts,
		dueDays:     dueDays,
		now:         now,
	}, nil
}

// PlaceOrder snapshots customer pricing at order time. Stock is not
// touched; the ledger only moves when an invoice is created.
func (s *service) PlaceOrder(ctx context.Context, tenantID uuid.UUID, input PlaceOrderInput) (*OrderView, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line product id is required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
	}

	var order *models.Order
	var names map[uuid.UUID]string
	var customer *models.Customer

	txErr := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pricingSvc := s.pricing.WithTx(tx)

		var err error
		customer, err = s.loadCustomer(ctx, repo, tenantID, input.CustomerID)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		items := make([]models.OrderItem, 0, len(input.Lines))
		names = make(map[uuid.UUID]string, len(input.Lines))
		for _, line := range input.Lines {
			product, err := s.loadProduct(ctx, repo, tenantID, line.ProductID)
			if err != nil {
				return err
			}
			quote, err := pricingSvc.Resolve(ctx, customer.ID, product.ID, nil)
			if err != nil {
				return err
			}
			lineTotal := quote.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			items = append(items, models.OrderItem{
				ID:        uuid.New(),
				ProductID: product.ID,
				Quantity:  line.Quantity,
				UnitPrice: quote.Price,
				Total:     lineTotal,
			})
			subtotal = subtotal.Add(lineTotal)
			names[product.ID] = product.Name
		}

		order = &models.Order{
			ID:          uuid.New(),
			TenantID:    tenantID,
			CustomerID:  customer.ID,
			OrderNumber: numbering.NextOrderNumber(s.now()),
			Status:      enums.OrderStatusPending,
			Subtotal:    subtotal,
			TotalAmount: subtotal,
			Notes:       input.Notes,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order items")
		}
		order.Items = items
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return buildOrderView(order, customer.Name, names), nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, tenantID, orderID uuid.UUID, status string) (*OrderView, error) {
	parsed, err := enums.ParseOrderStatus(status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	order, err := s.loadOrder(ctx, s.repo, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	order.Status = parsed
	if err := s.repo.UpdateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}
	return s.Get(ctx, tenantID, orderID)
}

func (s *service) Get(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.loadOrder(ctx, s.repo, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	return s.renderOrder(ctx, order)
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, filter OrderListFilter) ([]*OrderView, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	rows, err := s.repo.ListOrders(ctx, tenantID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	views := make([]*OrderView, 0, len(rows))
	for i := range rows {
		view, err := s.renderOrder(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// GenerateInvoiceFromOrder builds the one invoice an order may have.
// Unit prices come from the order's snapshot; GST is re-priced at the
// product's current rate. The stock ledger is deliberately untouched:
// fulfillment happened (or will happen) on the order side.
func (s *service) GenerateInvoiceFromOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*invoices.InvoiceView, error) {
	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var invoice *models.Invoice
	var names map[uuid.UUID]string
	var customer *models.Customer

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		txErr := s.client.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			order, err := s.loadOrder(ctx, repo, tenantID, orderID)
			if err != nil {
				return err
			}
			if len(order.Items) == 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
			}

			exists, err := repo.InvoiceExistsForOrder(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking for existing invoice")
			}
			if exists {
				return pkgerrors.New(pkgerrors.CodeDuplicateInvoice,
					fmt.Sprintf("order %s already has an invoice", order.OrderNumber))
			}

			customer, err = s.loadCustomer(ctx, repo, tenantID, order.CustomerID)
			if err != nil {
				return err
			}

			subtotal := decimal.Zero
			totalGST := decimal.Zero
			items := make([]models.InvoiceItem, 0, len(order.Items))
			names = make(map[uuid.UUID]string, len(order.Items))
			for _, orderItem := range order.Items {
				product, err := s.loadProduct(ctx, repo, tenantID, orderItem.ProductID)
				if err != nil {
					return err
				}
				amounts := tax.ComputeLine(orderItem.Quantity, orderItem.UnitPrice, product.GSTRate)
				items = append(items, models.InvoiceItem{
					ID:        uuid.New(),
					ProductID: product.ID,
					Quantity:  orderItem.Quantity,
					UnitPrice: orderItem.UnitPrice,
					GSTRate:   product.GSTRate,
					GSTAmount: amounts.GSTAmount,
					Total:     amounts.Total,
				})
				subtotal = subtotal.Add(amounts.Total)
				totalGST = totalGST.Add(amounts.GSTAmount)
				names[product.ID] = product.Name
			}

			number, err := numbering.NextInvoiceNumber(ctx, tx, tenant)
			if err != nil {
				return err
			}

			split := tax.ComputeSplit(customer.State, tenant.BusinessState, totalGST)
			invoiceDate := s.now()
			dueDate := invoiceDate.AddDate(0, 0, s.dueDays)

			invoice = &models.Invoice{
				ID:            uuid.New(),
				TenantID:      tenantID,
				CustomerID:    customer.ID,
				OrderID:       &order.ID,
				InvoiceNumber: number,
				InvoiceDate:   invoiceDate,
				DueDate:       &dueDate,
				Subtotal:      subtotal,
				CGSTAmount:    split.CGST,
				SGSTAmount:    split.SGST,
				IGSTAmount:    split.IGST,
				TotalAmount:   tax.InvoiceTotal(subtotal, split),
				Status:        enums.InvoiceStatusPending,
				Notes:         fmt.Sprintf("Generated from order %s", order.OrderNumber),
			}
			if err := repo.CreateInvoice(ctx, invoice); err != nil {
				return err
			}
			for i := range items {
				items[i].InvoiceID = invoice.ID
			}
			if err := repo.CreateInvoiceItems(ctx, items); err != nil {
				return err
			}
			invoice.Items = items

			order.Status = enums.OrderStatusCompleted
			return repo.UpdateOrder(ctx, order)
		})

		if txErr == nil {
			s.metrics.IncOrderConversion()
			return buildInvoiceView(invoice, customer.Name, names), nil
		}
		if db.IsUniqueViolation(txErr, "order_id") {
			// another request converted the order first
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateInvoice, "order already has an invoice")
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

func (s *service) renderOrder(ctx context.Context, order *models.Order) (*OrderView, error) {
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	names, err := s.repo.ProductNames(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product names")
	}
	customerName := ""
	if customer, err := s.repo.FindCustomerByID(ctx, order.CustomerID); err == nil {
		customerName = customer.Name
	}
	return buildOrderView(order, customerName, names), nil
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

func (s *service) loadProduct(ctx context.Context, repo Repository, tenantID, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if product.TenantID != tenantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
	}
	return product, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, tenantID, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrderByID(ctx, tenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func buildOrderView(order *models.Order, customerName string, productNames map[uuid.UUID]string) *OrderView {
	view := &OrderView{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerID:   order.CustomerID,
		CustomerName: customerName,
		Status:       order.Status.String(),
		Subtotal:     order.Subtotal.Round(2),
		TotalAmount:  order.TotalAmount.Round(2),
		Notes:        order.Notes,
		Items:        make([]OrderLineView, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, OrderLineView{
			ProductID:   item.ProductID,
			ProductName: productNames[item.ProductID],
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Round(2),
			Total:       item.Total.Round(2),
		})
	}
	return view
}

func buildInvoiceView(invoice *models.Invoice, customerName string, productNames map[uuid.UUID]string) *invoices.InvoiceView {
	view := &invoices.InvoiceView{
		ID:            invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		CustomerID:    invoice.CustomerID,
		CustomerName:  customerName,
		OrderID:       invoice.OrderID,
		Status:        invoice.Status.String(),
		InvoiceDate:   invoice.InvoiceDate,
		DueDate:       invoice.DueDate,
		Subtotal:      invoice.Subtotal.Round(2),
		CGSTAmount:    invoice.CGSTAmount.Round(2),
		SGSTAmount:    invoice.SGSTAmount.Round(2),
		IGSTAmount:    invoice.IGSTAmount.Round(2),
		TotalAmount:   invoice.TotalAmount.Round(2),
		Notes:         invoice.Notes,
		Items:         make([]invoices.LineView, 0, len(invoice.Items)),
	}
	for _, item := range invoice.Items {
		view.Items = append(view.Items, invoices.LineView{
			ProductID:   item.ProductID,
			ProductName: productNames[item.ProductID],
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Round(2),
			GSTRate:     item.GSTRate,
			GSTAmount:   item.GSTAmount.Round(2),
			Total:       item.Total.Round(2),
		})
	}
	return view
}
