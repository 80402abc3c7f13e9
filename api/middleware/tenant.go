package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gstbill-io/gstbill-backend/api/responses"
	pkgerrors "github.com/gstbill-io/gstbill-backend/pkg/errors"
	"github.com/gstbill-io/gstbill-backend/pkg/logger"
)

const tenantIDHeader = "X-Tenant-ID"

type tenantCtxKey struct{}

// Tenant resolves the acting tenant from the X-Tenant-ID header set by
// the upstream gateway. Requests without a valid tenant never reach the
// domain handlers.
func Tenant(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(tenantIDHeader)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant identity required"))
				return
			}

			tenantID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "X-Tenant-ID header must be a valid uuid"))
				return
			}

			ctx := context.WithValue(r.Context(), tenantCtxKey{}, tenantID)
			ctx = logg.WithTenantID(ctx, tenantID.String())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantIDFromContext returns the tenant id resolved by the Tenant
// middleware.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, error) {
	tenantID, ok := ctx.Value(tenantCtxKey{}).(uuid.UUID)
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant identity required")
	}
	return tenantID, nil
}
