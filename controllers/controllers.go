package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ripple_server/services"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Unclassified errors are transient store failures: 503 tells the client the
// whole operation is safe to retry.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidRequest):
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		respondJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily unavailable, please retry"})
	}
}
