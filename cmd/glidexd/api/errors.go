package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onkernel/glidex/lib/errs"
)

// writeError maps a core error 1:1 onto a status code and ApiError body,
// per the propagation policy: errors surface unchanged from the Lifecycle
// Manager to this layer.
func writeError(w http.ResponseWriter, err error) {
	status, body := mapError(err)
	writeJSON(w, status, body)
}

func mapError(err error) (int, ApiError) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, ApiError{Error: "not_found", Message: err.Error()}
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, ApiError{Error: "conflict", Message: err.Error()}
	case errors.Is(err, errs.ErrInvalidState):
		return http.StatusBadRequest, ApiError{Error: "invalid_state", Message: err.Error()}
	case errors.Is(err, errs.ErrFirecracker):
		return http.StatusInternalServerError, ApiError{Error: "firecracker_error", Message: err.Error()}
	case errors.Is(err, errs.ErrPersistence):
		return http.StatusInternalServerError, ApiError{Error: "persistence_error", Message: err.Error()}
	default:
		return http.StatusInternalServerError, ApiError{Error: "persistence_error", Message: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
