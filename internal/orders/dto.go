package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineInput is one requested order line. Prices are resolved, not
// supplied by the caller.
type OrderLineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput carries a customer's purchase request.
type PlaceOrderInput struct {
	CustomerID uuid.UUID
	Lines      []OrderLineInput
	Notes      string
}

// OrderLineView is one rendered order line.
type OrderLineView struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// OrderView is the rendered order returned by the service.
type OrderView struct {
	ID           uuid.UUID       `json:"id"`
	OrderNumber  string          `json:"order_number"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	Status       string          `json:"status"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Notes        string          `json:"notes,omitempty"`
	Items        []OrderLineView `json:"items"`
}

// OrderListFilter narrows List results.
type OrderListFilter struct {
	Status     string
	CustomerID *uuid.UUID
	Limit      int
	Offset     int
}
