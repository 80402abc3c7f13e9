package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gstbill-io/gstbill-backend/api/middleware"
	"github.com/gstbill-io/gstbill-backend/api/responses"
	"github.com/gstbill-io/gstbill-backend/api/validators"
	"github.com/gstbill-io/gstbill-backend/internal/invoices"
	"github.com/gstbill-io/gstbill-backend/pkg/logger"
)

type invoiceLineRequest struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type createInvoiceRequest struct {
	CustomerID  uuid.UUID            `json:"customer_id" validate:"required"`
	Lines       []invoiceLineRequest `json:"lines" validate:"required,min=1,dive"`
	Status      string               `json:"status"`
	Notes       string               `json:"notes"`
	InvoiceDate *time.Time           `json:"invoice_date"`
	DueDate     *time.Time           `json:"due_date"`
}

type editInvoiceLinesRequest struct {
	Lines []invoiceLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type updateInvoiceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func toLineInputs(lines []invoiceLineRequest) []invoices.LineInput {
	out := make([]invoices.LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, invoices.LineInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return out
}

// CreateInvoice handles POST /invoices.
func CreateInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req createInvoiceRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.Create(ctx, tenantID, invoices.CreateInvoiceInput{
			CustomerID:  req.CustomerID,
			Lines:       toLineInputs(req.Lines),
			Status:      req.Status,
			Notes:       req.Notes,
			InvoiceDate: req.InvoiceDate,
			DueDate:     req.DueDate,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ctx = logg.WithInvoiceNumber(ctx, view.InvoiceNumber)
		logg.Info(ctx, "invoice.created")
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// GetInvoice handles GET /invoices/{invoiceID}.
func GetInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invoiceID, err := validators.UUIDParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.Get(ctx, tenantID, invoiceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// ListInvoices handles GET /invoices.
func ListInvoices(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
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

		views, err := svc.List(ctx, tenantID, invoices.ListFilter{
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

// EditInvoiceLines handles PUT /invoices/{invoiceID}/lines.
func EditInvoiceLines(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invoiceID, err := validators.UUIDParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req editInvoiceLinesRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.Edit(ctx, tenantID, invoiceID, toLineInputs(req.Lines))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ctx = logg.WithInvoiceNumber(ctx, view.InvoiceNumber)
		logg.Info(ctx, "invoice.edited")
		responses.WriteSuccess(w, view)
	}
}

// UpdateInvoiceStatus handles PATCH /invoices/{invoiceID}/status.
func UpdateInvoiceStatus(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invoiceID, err := validators.UUIDParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateInvoiceStatusRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.UpdateStatus(ctx, tenantID, invoiceID, req.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// DeleteInvoice handles DELETE /invoices/{invoiceID}.
func DeleteInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invoiceID, err := validators.UUIDParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, tenantID, invoiceID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logg.Info(ctx, "invoice.deleted")
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
