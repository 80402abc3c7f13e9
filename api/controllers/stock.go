package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gstbill-io/gstbill-backend/api/middleware"
	"github.com/gstbill-io/gstbill-backend/api/responses"
	"github.com/gstbill-io/gstbill-backend/api/validators"
	"github.com/gstbill-io/gstbill-backend/internal/stock"
	"github.com/gstbill-io/gstbill-backend/pkg/enums"
	pkgerrors "github.com/gstbill-io/gstbill-backend/pkg/errors"
	"github.com/gstbill-io/gstbill-backend/pkg/logger"
)

type recordMovementRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Type      string    `json:"type" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	Reference string    `json:"reference"`
	Notes     string    `json:"notes"`
	Strict    bool      `json:"strict"`
}

// RecordStockMovement handles POST /stock/movements.
func RecordStockMovement(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req recordMovementRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movementType, err := enums.ParseMovementType(req.Type)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement type"))
			return
		}

		newQty, err := svc.RecordMovement(ctx, stock.MovementInput{
			TenantID:  tenantID,
			ProductID: req.ProductID,
			Type:      movementType,
			Quantity:  req.Quantity,
			Reference: req.Reference,
			Notes:     req.Notes,
			Strict:    req.Strict,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logg.Info(ctx, "stock.movement_recorded")
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"product_id":     req.ProductID,
			"stock_quantity": newQty,
		})
	}
}

// ListStockMovements handles GET /stock/movements.
func ListStockMovements(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, err := middleware.TenantIDFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, _, err := validators.Pagination(r, 100, 500)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := validators.OptionalUUIDQuery(r, "product_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filter := stock.MovementFilter{TenantID: tenantID, ProductID: productID, Limit: limit}
		if raw := r.URL.Query().Get("type"); raw != "" {
			movementType, err := enums.ParseMovementType(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement type"))
				return
			}
			filter.Type = &movementType
		}

		movements, err := svc.ListMovements(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, movements)
	}
}
