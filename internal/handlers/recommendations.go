package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"moviehub-backend/internal/reco"
	"moviehub-backend/pkg/logging"
)

// RecommendationsHandler serves per-user recommendations.
type RecommendationsHandler struct {
	Engine *reco.Engine
}

func NewRecommendationsHandler(engine *reco.Engine) *RecommendationsHandler {
	return &RecommendationsHandler{Engine: engine}
}

type recommendationsResponse struct {
	UserID          int64                       `json:"user_id"`
	Recommendations []reco.ScoredRecommendation `json:"recommendations"`
}

// GetRecommendations handles GET /v1/users/{userID}/recommendations.
func (h *RecommendationsHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		logger.Warn("invalid user id", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_user_id"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			logger.Warn("invalid limit", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_limit"})
			return
		}
	}

	recs, err := h.Engine.Recommend(ctx, userID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	logger.Info("recommendations_served",
		zap.Int64("user_id", userID),
		zap.Int("count", len(recs)),
		zap.Duration("total_latency_ms", time.Since(start)),
	)

	if recs == nil {
		recs = []reco.ScoredRecommendation{}
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{UserID: userID, Recommendations: recs})
}
