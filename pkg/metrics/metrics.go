package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records billing engine activity.
type EngineMetrics struct {
	invoicesCreated  prometheus.Counter
	invoicesEdited   prometheus.Counter
	invoicesDeleted  prometheus.Counter
	orderConversions prometheus.Counter
	stockMovements   *prometheus.CounterVec
	numberingRetries prometheus.Counter
	invoiceBuild     prometheus.Histogram
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	invoicesCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoices_created_total",
		Help: "Invoices persisted successfully.",
	})
	invoicesEdited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoices_edited_total",
		Help: "Invoice line rewrites committed.",
	})
	invoicesDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoices_deleted_total",
		Help: "Invoices deleted with stock released.",
	})
	orderConversions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_conversions_total",
		Help: "Orders converted into invoices.",
	})
	stockMovements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Stock ledger entries by movement type.",
	}, []string{"type"})
	numberingRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "numbering_retries_total",
		Help: "Invoice number allocations retried after a unique violation.",
	})
	invoiceBuild := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "invoice_build_duration_seconds",
		Help:    "Duration of the invoice create transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(invoicesCreated, invoicesEdited, invoicesDeleted,
		orderConversions, stockMovements, numberingRetries, invoiceBuild)
	return &EngineMetrics{
		invoicesCreated:  invoicesCreated,
		invoicesEdited:   invoicesEdited,
		invoicesDeleted:  invoicesDeleted,
		orderConversions: orderConversions,
		stockMovements:   stockMovements,
		numberingRetries: numberingRetries,
		invoiceBuild:     invoiceBuild,
	}
}

// IncInvoiceCreated increments the created-invoice counter.
func (m *EngineMetrics) IncInvoiceCreated() {
	if m == nil || m.invoicesCreated == nil {
		return
	}
	m.invoicesCreated.Inc()
}

// IncInvoiceEdited increments the edited-invoice counter.
func (m *EngineMetrics) IncInvoiceEdited() {
	if m == nil || m.invoicesEdited == nil {
		return
	}
	m.invoicesEdited.Inc()
}

// IncInvoiceDeleted increments the deleted-invoice counter.
func (m *EngineMetrics) IncInvoiceDeleted() {
	if m == nil || m.invoicesDeleted == nil {
		return
	}
	m.invoicesDeleted.Inc()
}

// IncOrderConversion increments the order-to-invoice conversion counter.
func (m *EngineMetrics) IncOrderConversion() {
	if m == nil || m.orderConversions == nil {
		return
	}
	m.orderConversions.Inc()
}

// IncStockMovement increments the movement counter for the given type.
func (m *EngineMetrics) IncStockMovement(movementType string) {
	if m == nil || m.stockMovements == nil {
		return
	}
	m.stockMovements.WithLabelValues(normalizeLabel(movementType)).Inc()
}

// IncNumberingRetry increments the numbering retry counter.
func (m *EngineMetrics) IncNumberingRetry() {
	if m == nil || m.numberingRetries == nil {
		return
	}
	m.numberingRetries.Inc()
}

// ObserveInvoiceBuild records the duration of an invoice create transaction.
func (m *EngineMetrics) ObserveInvoiceBuild(duration time.Duration) {
	if m == nil || m.invoiceBuild == nil {
		return
	}
	m.invoiceBuild.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
