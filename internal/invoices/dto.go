package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineInput is one requested invoice line. UnitPrice overrides the
// resolved price when set.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice *decimal.Decimal
}

// CreateInvoiceInput carries everything needed to build an invoice.
type CreateInvoiceInput struct {
	CustomerID  uuid.UUID
	Lines       []LineInput
	Status      string
	Notes       string
	InvoiceDate *time.Time
	DueDate     *time.Time
}

// ListFilter narrows List results.
type ListFilter struct {
	Status     string
	CustomerID *uuid.UUID
	Limit      int
	Offset     int
}
