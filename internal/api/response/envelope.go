// Package response writes the registry's wire-level JSON shapes. Errors
// use the aggregated {"errors":[{"detail": ...}]} list that registry
// clients parse; successful payloads are endpoint-specific objects.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorDetail is one entry in an error response.
type ErrorDetail struct {
	Detail string `json:"detail"`
}

// ErrorBody is the error response wrapper.
type ErrorBody struct {
	Errors []ErrorDetail `json:"errors"`
}

// JSON writes a JSON response with the given status code and payload.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// OK writes a 200 response with the given payload.
func OK(w http.ResponseWriter, payload any) {
	JSON(w, http.StatusOK, payload)
}

// Errs writes an error response carrying one detail entry per message.
func Errs(w http.ResponseWriter, status int, details ...string) {
	body := ErrorBody{Errors: make([]ErrorDetail, 0, len(details))}
	for _, d := range details {
		body.Errors = append(body.Errors, ErrorDetail{Detail: d})
	}
	JSON(w, status, body)
}

// Internal writes a generic 500 without leaking the underlying error.
func Internal(w http.ResponseWriter) {
	Errs(w, http.StatusInternalServerError, "internal server error")
}
