package controllers

import (
	"net/http"

	"github.com/gstbill-io/gstbill-backend/api/middleware"
	"github.com/gstbill-io/gstbill-backend/api/responses"
	"github.com/gstbill-io/gstbill-backend/internal/stock"
	"github.com/gstbill-io/gstbill-backend/pkg/logger"
)

// ListLowStockProducts handles GET /products/low-stock.
func ListLowStockProducts(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		products, err := svc.ListLowStock(ctx, tenantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, products)
	}
}
