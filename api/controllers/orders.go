package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gstbill-io/gstbill-backend/api/middleware"
	"github.com/gstbill-io/gstbill-backend/api/responses"
	"github.com/gstbill-io/gstbill-backend/api/validators"
	"github.com/gstbill-io/gstbill-backend/internal/orders"
	"github.com/gstbill-io/gstbill-backend/pkg/logger"
)

type orderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type placeOrderRequest struct {
	CustomerID uuid.UUID          `json:"customer_id" validate:"required"`
	Lines      []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
	Notes      string             `json:"notes"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PlaceOrder handles POST /orders.
func PlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req placeOrderRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		lines := make([]orders.OrderLineInput, 0, len(req.Lines))
		for _, line := range req.Lines {
			lines = append(lines, orders.OrderLineInput{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
		}

		view, err := svc.PlaceOrder(ctx, tenantID, orders.PlaceOrderInput{
			CustomerID: req.CustomerID,
			Lines:      lines,
			Notes:      req.Notes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logg.Info(ctx, "order.placed")
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// GetOrder handles GET /orders/{orderID}.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.Get(ctx, tenantID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// ListOrders handles GET /orders.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, offset, err := validators.Pagination(r, 50, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customerID, err := validators.OptionalUUIDQuery(r, "customer_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		views, err := svc.List(ctx, tenantID, orders.OrderListFilter{
			Status:     r.URL.Query().Get("status"),
			CustomerID: customerID,
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, views)
	}
}

// UpdateOrderStatus handles PATCH /orders/{orderID}/status.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.UpdateOrderStatus(ctx, tenantID, orderID, req.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// GenerateInvoiceFromOrder handles POST /orders/{orderID}/invoice.
func GenerateInvoiceFromOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.GenerateInvoiceFromOrder(ctx, tenantID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ctx = logg.WithInvoiceNumber(ctx, view.InvoiceNumber)
		logg.Info(ctx, "order.invoice_generated")
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}
