package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"moviehub-backend/internal/invalidation"
	"moviehub-backend/pkg/logging"
)

// HooksHandler exposes the write-path hooks over HTTP so CRUD replicas
// without in-process access can report mutations. Publishing is
// fire-and-forget: 202 means the scope is on the bus, eviction follows
// within the staleness bound.
type HooksHandler struct {
	Hooks *invalidation.Hooks
}

func NewHooksHandler(hooks *invalidation.Hooks) *HooksHandler {
	return &HooksHandler{Hooks: hooks}
}

type acceptedResponse struct {
	Status string `json:"status"`
}

// MovieChanged handles POST /v1/internal/invalidate/movies.
func (h *HooksHandler) MovieChanged(w http.ResponseWriter, r *http.Request) {
	if err := h.Hooks.OnMovieChanged(r.Context()); err != nil {
		logging.L(r.Context()).Error("hook publish failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "publish_failed"})
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

// RatingChanged handles POST /v1/internal/invalidate/users/{userID}/ratings.
func (h *HooksHandler) RatingChanged(w http.ResponseWriter, r *http.Request) {
	h.userScoped(w, r, h.Hooks.OnRatingChanged)
}

// WatchEventRecorded handles POST /v1/internal/invalidate/users/{userID}/watch-events.
func (h *HooksHandler) WatchEventRecorded(w http.ResponseWriter, r *http.Request) {
	h.userScoped(w, r, h.Hooks.OnWatchEventRecorded)
}

func (h *HooksHandler) userScoped(w http.ResponseWriter, r *http.Request, hook func(ctx context.Context, userID int64) error) {
	ctx := r.Context()

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		logging.L(ctx).Warn("invalid user id", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_user_id"})
		return
	}

	if err := hook(ctx, userID); err != nil {
		logging.L(ctx).Error("hook publish failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "publish_failed"})
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted"})
}
