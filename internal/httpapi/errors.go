package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ocrd/internal/engine"
	"ocrd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// errorStatus maps an engine error to a status code and client message.
// Unclassified failures become 500 "OCR processing error: ...".
func errorStatus(err error) (int, string) {
	var he HTTPError
	switch {
	case engine.IsInvalidInput(err):
		return http.StatusBadRequest, err.Error()
	case engine.IsTooBusy(err):
		return http.StatusTooManyRequests, err.Error()
	case engine.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "OCR processing error: request timed out"
	case errors.As(err, &he):
		return he.StatusCode(), he.Error()
	}
	return http.StatusInternalServerError, "OCR processing error: " + err.Error()
}
