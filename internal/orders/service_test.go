package orders

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gstbill-io/gstbill-backend/internal/pricing"
	"github.com/gstbill-io/gstbill-backend/pkg/db"
	"github.com/gstbill-io/gstbill-backend/pkg/db/models"
	pkgerrors "github.com/gstbill-io/gstbill-backend/pkg/errors"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	tenant  *models.Tenant
	cust    *models.Customer
	product *models.Product
}

func TestPlaceOrderSnapshotsCustomerPricing(t *testing.T) {
	f := newFixture(t, "Karnataka", "Karnataka")
	mustCreateOverride(t, f.conn, f.cust.ID, f.product.ID, dec("90"))

	view, err := f.svc.PlaceOrder(context.Background(), f.tenant.ID, PlaceOrderInput{
		CustomerID: f.cust.ID,
		Lines:      []OrderLineInput{{ProductID: f.product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	pattern := regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`)
	if !pattern.MatchString(view.OrderNumber) {
		t.Fatalf("unexpected order number %q", view.OrderNumber)
	}
	if view.Status != "pending" {
		t.Fatalf("expected pending, got %q", view.Status)
	}
	if !view.Items[0].UnitPrice.Equal(dec("90")) {
		t.Fatalf("expected override snapshot, got %s", view.Items[0].UnitPrice)
	}
	if !view.TotalAmount.Equal(dec("270")) {
		t.Fatalf("expected total 270, got %s", view.TotalAmount)
	}

	// placing an order never moves stock
	assertQuantity(t, f.conn, f.product.ID, 10)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t, "Karnataka", "Karnataka")
	ctx := context.Background()

	if _, err := f.svc.PlaceOrder(ctx, f.tenant.ID, PlaceOrderInput{CustomerID: f.cust.ID}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty lines, got %v", err)
	}
	if _, err := f.svc.PlaceOrder(ctx, f.tenant.ID, PlaceOrderInput{
		CustomerID: f.cust.ID,
		Lines:      []OrderLineInput{{ProductID: f.product.ID, Quantity: -1}},
	}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative quantity, got %v", err)
	}
	if _, err := f.svc.PlaceOrder(ctx, f.tenant.ID, PlaceOrderInput{
		CustomerID: uuid.New(),
		Lines:      []OrderLineInput{{ProductID: f.product.ID, Quantity: 1}},
	}); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found for unknown customer, got %v", err)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture(t, "Karnataka", "Karnataka")
	order := f.mustPlaceOrder(t, 1)

	view, err := f.svc.UpdateOrderStatus(context.Background(), f.tenant.ID, order.ID, "shipped")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if view.Status != "shipped" {
		t.Fatalf("expected shipped, got %q", view.Status)
	}

	if _, err := f.svc.UpdateOrderStatus(context.Background(), f.tenant.ID, order.ID, "teleported"); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateInvoiceFromOrder(t *testing.T) {
	f := newFixture(t, "Karnataka", "Karnataka")
	order := f.mustPlaceOrder(t, 2)

	view, err := f.svc.GenerateInvoiceFromOrder(context.Background(), f.tenant.ID, order.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if view.InvoiceNumber != "INV-001-1000" {
		t.Fatalf("unexpected invoice number %q", view.InvoiceNumber)
	}
	if view.OrderID == nil || *view.OrderID != order.ID {
		t.Fatalf("invoice must reference the order, got %v", view.OrderID)
	}
	// 2 * 100 with 18% GST, intra-state
	if !view.Subtotal.Equal(dec("200")) {
		t.Fatalf("unexpected subtotal %s", view.Subtotal)
	}
	if !view.CGSTAmount.Equal(dec("18")) || !view.SGSTAmount.Equal(dec("18")) {
		t.Fatalf("unexpected split %s/%s", view.CGSTAmount, view.SGSTAmount)
	}
	if view.DueDate == nil {
		t.Fatal("expected a due date")
	}
	wantDue := view.InvoiceDate.AddDate(0, 0, 30)
	if !view.DueDate.Equal(wantDue) {
		t.Fatalf("expected due %v, got %v", wantDue, *view.DueDate)
	}
	if view.Status != "pending" {
		t.Fatalf("expected pending invoice, got %q", view.Status)
	}

	// conversion never touches the stock ledger
	assertQuantity(t, f.conn, f.product.ID, 10)
	var movements int64
	if err := f.conn.Model(&models.StockMovement{}).Count(&movements).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if movements != 0 {
		t.Fatalf("expected no stock movements, got %d", movements)
	}

	// order marked completed
	got, err := f.svc.Get(context.Background(), f.tenant.ID, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != "completed" {
		t.Fatalf("expected completed order, got %q", got.Status)
	}
}

func TestGenerateInvoiceUsesCurrentGSTRate(t *testing.T) {
	f := newFixture(t, "Karnataka", "Karnataka")
	order := f.mustPlaceOrder(t, 1)

	// rate changed between order placement and invoicing
	if err := f.conn.Model(&models.Product{}).Where("id = ?", f.product.ID).
		Update("gst_rate", dec("28")).Error; err != nil {
		t.Fatalf("update rate: %v", err)
	}

	view, err := f.svc.GenerateInvoiceFromOrder(context.Background(), f.tenant.ID, order.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// unit price stays the order snapshot, GST re-priced at 28%
	if !view.Items[0].UnitPrice.Equal(dec("100")) {
		t.Fatalf("expected snapshot price, got %s", view.Items[0].UnitPrice)
	}
	if !view.Items[0].GSTRate.Equal(dec("28")) {
		t.Fatalf("expected current rate, got %s", view.Items[0].GSTRate)
	}
	if !view.Items[0].GSTAmount.Equal(dec("28")) {
		t.Fatalf("expected gst 28, got %s", view.Items[0].GSTAmount)
	}
}

func TestGenerateInvoiceTwiceIsRejected(t *testing.T) {
	f := newFixture(t, "Karnataka", "Karnataka")
	order := f.mustPlaceOrder(t, 1)

	if _, err := f.svc.GenerateInvoiceFromOrder(context.Background(), f.tenant.ID, order.ID); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	_, err := f.svc.GenerateInvoiceFromOrder(context.Background(), f.tenant.ID, order.ID)
	if !pkgerrors.Is(err, pkgerrors.CodeDuplicateInvoice) {
		t.Fatalf("expected duplicate invoice, got %v", err)
	}

	var count int64
	if err := f.conn.Model(&models.Invoice{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one invoice for the order, got %d", count)
	}
}

func TestGenerateInvoiceUnknownOrder(t *testing.T) {
	f := newFixture(t, "Karnataka", "Karnataka")
	if _, err := f.svc.GenerateInvoiceFromOrder(context.Background(), f.tenant.ID, uuid.New()); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestGenerateInvoiceInterStateUsesIGST(t *testing.T) {
	f := newFixture(t, "Karnataka", "Tamil Nadu")
	order := f.mustPlaceOrder(t, 1)

	view, err := f.svc.GenerateInvoiceFromOrder(context.Background(), f.tenant.ID, order.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !view.IGSTAmount.Equal(dec("18")) {
		t.Fatalf("expected igst 18, got %s", view.IGSTAmount)
	}
	if !view.CGSTAmount.IsZero() || !view.SGSTAmount.IsZero() {
		t.Fatalf("expected zero cgst/sgst, got %s/%s", view.CGSTAmount, view.SGSTAmount)
	}
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	f := newFixture(t, "Karnataka", "Karnataka")
	first := f.mustPlaceOrder(t, 1)
	f.mustPlaceOrder(t, 2)

	if _, err := f.svc.UpdateOrderStatus(context.Background(), f.tenant.ID, first.ID, "cancelled"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	pending, err := f.svc.List(context.Background(), f.tenant.ID, OrderListFilter{Status: "pending"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending order, got %d", len(pending))
	}
}

// --- helpers ---

func newFixture(t *testing.T, businessState, customerState string) *fixture {
	t.Helper()
	conn := newTestDB(t)

	tenant := &models.Tenant{
		ID:            uuid.New(),
		Code:          1,
		BusinessName:  "Acme Traders",
		GSTNumber:     "29ACME" + uuid.NewString()[:8],
		BusinessState: businessState,
		Email:         "billing@acme.example",
		IsActive:      true,
	}
	if err := conn.Create(tenant).Error; err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	cust := &models.Customer{
		ID:       uuid.New(),
		TenantID: &tenant.ID,
		Name:     "Meera Shah",
		Email:    uuid.NewString() + "@example.com",
		State:    customerState,
		IsActive: true,
	}
	if err := conn.Create(cust).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}

	product := &models.Product{
		ID:            uuid.New(),
		TenantID:      tenant.ID,
		SKU:           "SKU-" + uuid.NewString(),
		Name:          "Widget",
		Price:         dec("100"),
		GSTRate:       dec("18"),
		StockQuantity: 10,
		Unit:          "PCS",
		IsActive:      true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	return &fixture{
		conn:    conn,
		svc:     newTestService(t, conn),
		tenant:  tenant,
		cust:    cust,
		product: product,
	}
}

func (f *fixture) mustPlaceOrder(t *testing.T, qty int) *OrderView {
	t.Helper()
	view, err := f.svc.PlaceOrder(context.Background(), f.tenant.ID, PlaceOrderInput{
		CustomerID: f.cust.ID,
		Lines:      []OrderLineInput{{ProductID: f.product.ID, Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return view
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Tenant{},
		&models.Customer{},
		&models.Product{},
		&models.CustomerProductPrice{},
		&models.Order{},
		&models.OrderItem{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.StockMovement{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	pricingSvc, err := pricing.NewService(pricing.NewRepository(conn))
	if err != nil {
		t.Fatalf("pricing service: %v", err)
	}
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(db.NewWithConn(conn), NewRepository(conn), pricingSvc, Options{
		Now: func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}
	return svc
}

func mustCreateOverride(t *testing.T, conn *gorm.DB, customerID, productID uuid.UUID, price decimal.Decimal) {
	t.Helper()
	override := &models.CustomerProductPrice{
		ID:         uuid.New(),
		CustomerID: customerID,
		ProductID:  productID,
		Price:      price,
	}
	if err := conn.Create(override).Error; err != nil {
		t.Fatalf("create override: %v", err)
	}
}

func assertQuantity(t *testing.T, conn *gorm.DB, productID uuid.UUID, want int) {
	t.Helper()
	var product models.Product
	if err := conn.Where("id = ?", productID).First(&product).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.StockQuantity != want {
		t.Fatalf("expected quantity %d, got %d", want, product.StockQuantity)
	}
}
