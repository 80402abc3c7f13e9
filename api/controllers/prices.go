package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/gstbill-io/gstbill-backend/api/middleware"
	"github.com/gstbill-io/gstbill-backend/api/responses"
	"github.com/gstbill-io/gstbill-backend/api/validators"
	"github.com/gstbill-io/gstbill-backend/internal/pricing"
	"github.com/gstbill-io/gstbill-backend/pkg/logger"
)

type setCustomerPriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

// GetCustomerPrice handles GET /customers/{customerID}/prices/{productID}.
func GetCustomerPrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customerID, err := validators.UUIDParam(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		quote, err := svc.GetCustomerPrice(ctx, tenantID, customerID, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"customer_id":  customerID,
			"product_id":   productID,
			"price":        quote.Price,
			"source":       quote.Source,
			"used_default": quote.UsedDefault,
		})
	}
}

// SetCustomerPrice handles PUT /customers/{customerID}/prices/{productID}.
func SetCustomerPrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customerID, err := validators.UUIDParam(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req setCustomerPriceRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		override, err := svc.SetCustomerPrice(ctx, tenantID, customerID, productID, req.Price)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logg.Info(ctx, "pricing.override_set")
		responses.WriteSuccess(w, override)
	}
}

// RemoveCustomerPrice handles DELETE /customers/{customerID}/prices/{productID}.
func RemoveCustomerPrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customerID, err := validators.UUIDParam(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.RemoveCustomerPrice(ctx, tenantID, customerID, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
