package reco

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"moviehub-backend/internal/activity"
	"moviehub-backend/internal/cache"
	"moviehub-backend/internal/catalog"
	"moviehub-backend/internal/metrics"
	"moviehub-backend/pkg/logging"
)

// Reason markers surfaced in ScoredRecommendation.Reasons. Degraded
// signal is data, not an error: callers render "because you watched X"
// and "popular now" differently.
const (
	ReasonColdStart        = "cold_start"
	ReasonNoRecentActivity = "no_recent_activity"
	ReasonHighlyRated      = "highly_rated"
	ReasonPopular          = "popular"
	reasonGenrePrefix      = "genre_affinity:"
)

// ScoredRecommendation is one ranked movie for one user.
type ScoredRecommendation struct {
	MovieID int64    `json:"movie_id"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// Weights are the tunable non-negative scoring constants applied to the
// min-max-normalized rating, popularity and recency-penalty terms.
type Weights struct {
	AvgRating      float64
	Popularity     float64
	RecencyPenalty float64
}

// DefaultWeights keep the normalized terms small against the genre
// affinity term, which dominates by design.
var DefaultWeights = Weights{
	AvgRating:      0.3,
	Popularity:     0.2,
	RecencyPenalty: 0.2,
}

// Config tunes the engine. Zero values fall back to the defaults below.
type Config struct {
	TTL            time.Duration   // per-user cache TTL (default 15m)
	Window         activity.Window // recent-history bound (default 90d / 200 events)
	CandidateLimit int             // candidate pool size by popularity (default 500)
	DefaultLimit   int             // result size when the caller passes <=0 (default 10)
	Weights        Weights
	ExcludePartial bool // also exclude partially watched movies from candidates
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 15 * time.Minute
	}
	if c.Window.Since <= 0 {
		c.Window.Since = 90 * 24 * time.Hour
	}
	if c.Window.MaxEvents <= 0 {
		c.Window.MaxEvents = 200
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = 500
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights
	}
	return c
}

// Engine computes and caches personalized movie recommendations. The
// full ranked list is cached under the user's key and truncated per
// request, so the cache key stays userID-only.
type Engine struct {
	backend  cache.Backend
	catalog  catalog.Store
	activity activity.Store
	cfg      Config
	group    singleflight.Group
}

// New creates a recommendation engine.
func New(backend cache.Backend, catalogStore catalog.Store, activityStore activity.Store, cfg Config) *Engine {
	return &Engine{
		backend:  backend,
		catalog:  catalogStore,
		activity: activityStore,
		cfg:      cfg.withDefaults(),
	}
}

// Recommend returns up to limit scored movies for userID, best first.
// Scoring never mutates the stores; the only side effect is cache
// population.
func (e *Engine) Recommend(ctx context.Context, userID int64, limit int) ([]ScoredRecommendation, error) {
	logger := logging.L(ctx)

	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	key := cache.BuildRecoKey(userID)

	raw, hit, err := e.backend.Get(ctx, key)
	if err != nil {
		// Cache is best-effort; log and treat as miss.
		logger.Warn("reco_cache_get_error", zap.Error(err))
	}
	if hit {
		var recs []ScoredRecommendation
		if err := json.Unmarshal(raw, &recs); err != nil {
			logger.Warn("reco_cache_unmarshal_error", zap.Error(err))
		} else {
			metrics.RecoCacheHitsTotal.Inc()
			return truncate(recs, limit), nil
		}
	}

	metrics.RecoCacheMissesTotal.Inc()

	// Collapse concurrent misses for the same user into one scoring run.
	v, err, shared := e.group.Do(key, func() (any, error) {
		return e.score(ctx, key, userID)
	})
	if shared {
		metrics.SharedLoadsTotal.Inc()
	}
	if err != nil {
		return nil, err
	}

	return truncate(v.([]ScoredRecommendation), limit), nil
}

// score runs one full scoring pass for userID and caches the ranked
// list. Collaborator errors propagate uncached: a degraded list is never
// fabricated silently.
func (e *Engine) score(ctx context.Context, key string, userID int64) ([]ScoredRecommendation, error) {
	events, err := e.activity.GetRecentActivity(ctx, userID, e.cfg.Window)
	if err != nil {
		return nil, err
	}

	ratings, err := e.catalog.GetRatings(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates, _, err := e.catalog.QueryMovies(ctx, catalog.MovieQuery{
		SortBy: catalog.SortByPopularity,
		Limit:  e.cfg.CandidateLimit,
	})
	if err != nil {
		return nil, err
	}

	var history []catalog.Movie
	if ids := historyMovieIDs(events, ratings); len(ids) > 0 {
		history, err = e.catalog.GetMovies(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	recs := rank(candidates, history, events, ratings, e.cfg)

	raw, err := json.Marshal(recs)
	if err != nil {
		logging.L(ctx).Warn("reco_cache_marshal_error", zap.Error(err))
		return recs, nil
	}
	if err := e.backend.Set(ctx, key, raw, e.cfg.TTL); err != nil {
		logging.L(ctx).Warn("reco_cache_set_error", zap.Error(err))
	}

	return recs, nil
}

// Invalidate evicts one user's cached recommendations. Key-level: the
// writer always knows which user a rating or watch event belongs to.
// Duplicate invalidation is a no-op.
func (e *Engine) Invalidate(ctx context.Context, userID int64) error {
	metrics.InvalidationsTotal.WithLabelValues("reco_user").Inc()
	return e.backend.Delete(ctx, cache.BuildRecoKey(userID))
}

func truncate(recs []ScoredRecommendation, limit int) []ScoredRecommendation {
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}
