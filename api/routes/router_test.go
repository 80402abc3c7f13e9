package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gstbill-io/gstbill-backend/internal/invoices"
	"github.com/gstbill-io/gstbill-backend/internal/orders"
	"github.com/gstbill-io/gstbill-backend/internal/pricing"
	"github.com/gstbill-io/gstbill-backend/internal/stock"
	"github.com/gstbill-io/gstbill-backend/pkg/db/models"
	pkgerrors "github.com/gstbill-io/gstbill-backend/pkg/errors"
	"github.com/gstbill-io/gstbill-backend/pkg/logger"
	"github.com/gstbill-io/gstbill-backend/pkg/types"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

type fakeInvoices struct {
	createCalls int
	lastTenant  uuid.UUID
	createErr   error
}

func (f *fakeInvoices) Create(_ context.Context, tenantID uuid.UUID, _ invoices.CreateInvoiceInput) (*invoices.InvoiceView, error) {
	f.createCalls++
	f.lastTenant = tenantID
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &invoices.InvoiceView{InvoiceNumber: "INV-001-1000"}, nil
}

func (f *fakeInvoices) Edit(context.Context, uuid.UUID, uuid.UUID, []invoices.LineInput) (*invoices.InvoiceView, error) {
	return &invoices.InvoiceView{}, nil
}

func (f *fakeInvoices) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeInvoices) UpdateStatus(context.Context, uuid.UUID, uuid.UUID, string) (*invoices.InvoiceView, error) {
	return &invoices.InvoiceView{}, nil
}

func (f *fakeInvoices) Get(context.Context, uuid.UUID, uuid.UUID) (*invoices.InvoiceView, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
}

func (f *fakeInvoices) List(context.Context, uuid.UUID, invoices.ListFilter) ([]*invoices.InvoiceView, error) {
	return []*invoices.InvoiceView{}, nil
}

type fakeOrders struct{}

func (f *fakeOrders) PlaceOrder(context.Context, uuid.UUID, orders.PlaceOrderInput) (*orders.OrderView, error) {
	return &orders.OrderView{OrderNumber: "ORD-20260601-DEADBEEF"}, nil
}

func (f *fakeOrders) UpdateOrderStatus(context.Context, uuid.UUID, uuid.UUID, string) (*orders.OrderView, error) {
	return &orders.OrderView{}, nil
}

func (f *fakeOrders) Get(context.Context, uuid.UUID, uuid.UUID) (*orders.OrderView, error) {
	return &orders.OrderView{}, nil
}

func (f *fakeOrders) List(context.Context, uuid.UUID, orders.OrderListFilter) ([]*orders.OrderView, error) {
	return []*orders.OrderView{}, nil
}

func (f *fakeOrders) GenerateInvoiceFromOrder(context.Context, uuid.UUID, uuid.UUID) (*invoices.InvoiceView, error) {
	return &invoices.InvoiceView{InvoiceNumber: "INV-001-1001"}, nil
}

type fakeStock struct{}

func (f *fakeStock) RecordMovement(context.Context, stock.MovementInput) (int, error) {
	return 5, nil
}

func (f *fakeStock) ReserveForInvoice(context.Context, *gorm.DB, []stock.ReservationLine, string) error {
	return nil
}

func (f *fakeStock) ReleaseForInvoice(context.Context, *gorm.DB, []models.InvoiceItem, string) error {
	return nil
}

func (f *fakeStock) ListMovements(context.Context, stock.MovementFilter) ([]models.StockMovement, error) {
	return []models.StockMovement{}, nil
}

func (f *fakeStock) ListLowStock(context.Context, uuid.UUID) ([]models.Product, error) {
	return []models.Product{}, nil
}

func (f *fakeStock) WithTx(*gorm.DB) stock.Service { return f }

type fakePricing struct{}

func (f *fakePricing) Resolve(context.Context, uuid.UUID, uuid.UUID, *decimal.Decimal) (pricing.Quote, error) {
	return pricing.Quote{}, nil
}

func (f *fakePricing) GetCustomerPrice(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) (pricing.Quote, error) {
	return pricing.Quote{Price: decimal.NewFromInt(99), Source: pricing.SourceCatalog, UsedDefault: true}, nil
}

func (f *fakePricing) SetCustomerPrice(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, decimal.Decimal) (*models.CustomerProductPrice, error) {
	return &models.CustomerProductPrice{}, nil
}

func (f *fakePricing) RemoveCustomerPrice(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error {
	return nil
}

func (f *fakePricing) WithTx(*gorm.DB) pricing.Service { return f }

func newTestRouter(t *testing.T, inv *fakeInvoices) http.Handler {
	t.Helper()
	router, err := New(Deps{
		Logg:     logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}),
		DB:       &fakePinger{},
		Invoices: inv,
		Orders:   &fakeOrders{},
		Stock:    &fakeStock{},
		Pricing:  &fakePricing{},
	})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	return router
}

func TestRouterRequiresTenantHeader(t *testing.T) {
	router := newTestRouter(t, &fakeInvoices{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without tenant header, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("X-Tenant-ID", "not-a-uuid")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed tenant header, got %d", w.Code)
	}
}

func TestRouterCreateInvoicePassesTenant(t *testing.T) {
	inv := &fakeInvoices{}
	router := newTestRouter(t, inv)

	tenantID := uuid.New()
	customerID := uuid.New()
	productID := uuid.New()
	body := `{"customer_id":"` + customerID.String() + `","lines":[{"product_id":"` + productID.String() + `","quantity":2}]}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(body))
	req.Header.Set("X-Tenant-ID", tenantID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if inv.createCalls != 1 {
		t.Fatalf("expected one create call, got %d", inv.createCalls)
	}
	if inv.lastTenant != tenantID {
		t.Fatalf("tenant id not propagated: got %s", inv.lastTenant)
	}
}

func TestRouterRejectsUnknownBodyFields(t *testing.T) {
	inv := &fakeInvoices{}
	router := newTestRouter(t, inv)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(`{"bogus":true}`))
	req.Header.Set("X-Tenant-ID", uuid.NewString())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", w.Code)
	}
	if inv.createCalls != 0 {
		t.Fatalf("service must not be called on invalid body")
	}
}

func TestRouterMapsDomainErrors(t *testing.T) {
	router := newTestRouter(t, &fakeInvoices{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+uuid.NewString(), nil)
	req.Header.Set("X-Tenant-ID", uuid.NewString())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected error code %s", body.Error.Code)
	}
}

func TestRouterHealthAndPing(t *testing.T) {
	router := newTestRouter(t, &fakeInvoices{})

	for _, path := range []string{"/ping", "/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 from %s, got %d", path, w.Code)
		}
	}
}
