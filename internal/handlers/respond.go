package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"moviehub-backend/internal/activity"
	"moviehub-backend/internal/catalog"
	"moviehub-backend/internal/listing"
	"moviehub-backend/pkg/logging"
)

// writeJSON is a small helper to send JSON responses consistently.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeServiceError maps subsystem errors onto HTTP statuses: invalid
// queries are the caller's fault, collaborator outages surface as 503
// rather than being masked with stale data.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.L(r.Context())

	switch {
	case errors.Is(err, listing.ErrInvalidQuery):
		logger.Warn("invalid request", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_query"})
	case errors.Is(err, catalog.ErrUnavailable), errors.Is(err, activity.ErrUnavailable):
		logger.Error("collaborator unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
	default:
		logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_server_error"})
	}
}
