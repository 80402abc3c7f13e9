package validators

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pkgerrors "github.com/gstbill-io/gstbill-backend/pkg/errors"
)

// UUIDParam parses a uuid path parameter from the chi route context.
func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("path parameter %q must be a valid uuid", name))
	}
	return id, nil
}

// OptionalUUIDQuery parses an optional uuid query parameter.
func OptionalUUIDQuery(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("query parameter %q must be a valid uuid", name))
	}
	return &id, nil
}

// Pagination parses limit/offset query parameters with bounds applied.
func Pagination(r *http.Request, defaultLimit, maxLimit int) (limit, offset int, err error) {
	limit = defaultLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter \"limit\" must be a positive integer")
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter \"offset\" must be a non-negative integer")
		}
	}

	return limit, offset, nil
}
