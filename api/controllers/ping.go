package controllers

import (
	"net/http"

	"github.com/gstbill-io/gstbill-backend/api/responses"
)

// Ping answers a trivial request, useful for uptime probes.
func Ping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"message": "pong"})
	}
}
