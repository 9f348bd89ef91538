// Package middleware contains HTTP middleware for the server.
package middleware

import (
	"encoding/json"
	"net/http"

	"adhocdist/pkg/api"
)

// Codes reported by the authentication middleware.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
)

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: message, Code: code})
}
