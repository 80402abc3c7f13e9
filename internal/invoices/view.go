package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gstbill-io/gstbill-backend/pkg/db/models"
)

// LineView is one rendered invoice line. Amounts are rounded to two
// decimals here and nowhere earlier.
type LineView struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	GSTRate     decimal.Decimal `json:"gst_rate"`
	GSTAmount   decimal.Decimal `json:"gst_amount"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceView is the rendered invoice returned by the service.
type InvoiceView struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	Status        string          `json:"status"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	CGSTAmount    decimal.Decimal `json:"cgst_amount"`
	SGSTAmount    decimal.Decimal `json:"sgst_amount"`
	IGSTAmount    decimal.Decimal `json:"igst_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Notes         string          `json:"notes,omitempty"`
	Items         []LineView      `json:"items"`
}

func buildView(invoice *models.Invoice, customerName string, productNames map[uuid.UUID]string) *InvoiceView {
	view := &InvoiceView{
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
		Items:         make([]LineView, 0, len(invoice.Items)),
	}
	for _, item := range invoice.Items {
		view.Items = append(view.Items, LineView{
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
