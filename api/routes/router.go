package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gstbill-io/gstbill-backend/api/controllers"
	"github.com/gstbill-io/gstbill-backend/api/middleware"
	"github.com/gstbill-io/gstbill-backend/internal/invoices"
	"github.com/gstbill-io/gstbill-backend/internal/orders"
	"github.com/gstbill-io/gstbill-backend/internal/pricing"
	"github.com/gstbill-io/gstbill-backend/internal/stock"
	"github.com/gstbill-io/gstbill-backend/pkg/logger"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Logg     *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Registry *prometheus.Registry

	Invoices invoices.Service
	Orders   orders.Service
	Stock    stock.Service
	Pricing  pricing.Service
}

func (d Deps) validate() error {
	if d.Logg == nil {
		return fmt.Errorf("logger required")
	}
	if d.DB == nil {
		return fmt.Errorf("db pinger required")
	}
	if d.Invoices == nil {
		return fmt.Errorf("invoices service required")
	}
	if d.Orders == nil {
		return fmt.Errorf("orders service required")
	}
	if d.Stock == nil {
		return fmt.Errorf("stock service required")
	}
	if d.Pricing == nil {
		return fmt.Errorf("pricing service required")
	}
	return nil
}

// New assembles the router with middleware, health probes, metrics and
// the tenant-scoped v1 API.
func New(deps Deps) (*chi.Mux, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("router deps: %w", err)
	}

	logg := deps.Logg

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/ping", controllers.Ping())
	r.Get("/health/live", controllers.HealthLive())
	r.Get("/health/ready", controllers.HealthReady(logg, deps.DB, deps.Redis))

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			deps.Registry,
			promhttp.HandlerOpts{},
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Tenant(logg))

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", controllers.CreateInvoice(deps.Invoices, logg))
			r.Get("/", controllers.ListInvoices(deps.Invoices, logg))
			r.Get("/{invoiceID}", controllers.GetInvoice(deps.Invoices, logg))
			r.Put("/{invoiceID}/lines", controllers.EditInvoiceLines(deps.Invoices, logg))
			r.Patch("/{invoiceID}/status", controllers.UpdateInvoiceStatus(deps.Invoices, logg))
			r.Delete("/{invoiceID}", controllers.DeleteInvoice(deps.Invoices, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.PlaceOrder(deps.Orders, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(deps.Orders, logg))
			r.Patch("/{orderID}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
			r.Post("/{orderID}/invoice", controllers.GenerateInvoiceFromOrder(deps.Orders, logg))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Post("/movements", controllers.RecordStockMovement(deps.Stock, logg))
			r.Get("/movements", controllers.ListStockMovements(deps.Stock, logg))
		})

		r.Route("/customers/{customerID}/prices/{productID}", func(r chi.Router) {
			r.Get("/", controllers.GetCustomerPrice(deps.Pricing, logg))
			r.Put("/", controllers.SetCustomerPrice(deps.Pricing, logg))
			r.Delete("/", controllers.RemoveCustomerPrice(deps.Pricing, logg))
		})

		r.Get("/products/low-stock", controllers.ListLowStockProducts(deps.Stock, logg))
	})

	return r, nil
}
