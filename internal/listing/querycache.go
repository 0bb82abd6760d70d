package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"moviehub-backend/internal/cache"
	"moviehub-backend/internal/catalog"
	"moviehub-backend/internal/metrics"
	"moviehub-backend/pkg/logging"
)

// ErrInvalidQuery marks a malformed filter/sort combination. Rejected
// before any cache or catalog I/O.
var ErrInvalidQuery = errors.New("invalid listing query")

// DefaultTTL is the suggested listing cache TTL: listings tolerate
// slight staleness.
const DefaultTTL = 60 * time.Second

const defaultLimit = 20

// result is the cached payload for one listing key.
type result struct {
	Movies []catalog.Movie `json:"movies"`
	Total  int             `json:"total"`
}

// Cache is the read-through cache for filtered/sorted movie listings.
// Concurrent misses for the same key collapse into a single catalog
// query; invalidation wipes the whole listing namespace because a single
// movie mutation can affect arbitrarily many cached filter combinations.
type Cache struct {
	backend cache.Backend
	store   catalog.Store
	ttl     time.Duration
	group   singleflight.Group
}

// New creates a listing cache. ttl <= 0 falls back to DefaultTTL.
func New(backend cache.Backend, store catalog.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		backend: backend,
		store:   store,
		ttl:     ttl,
	}
}

// Get returns one page of movies matching q plus the total match count.
func (c *Cache) Get(ctx context.Context, q catalog.MovieQuery) ([]catalog.Movie, int, error) {
	logger := logging.L(ctx)

	if !q.SortBy.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown sortBy %q", ErrInvalidQuery, q.SortBy)
	}
	q = normalize(q)

	key := cache.BuildListingKey(q)

	raw, hit, err := c.backend.Get(ctx, key)
	if err != nil {
		// Cache is best-effort; log and treat as miss.
		logger.Warn("listing_cache_get_error", zap.Error(err))
	}
	if hit {
		var res result
		if err := json.Unmarshal(raw, &res); err != nil {
			logger.Warn("listing_cache_unmarshal_error", zap.Error(err))
		} else {
			metrics.ListingCacheHitsTotal.Inc()
			return res.Movies, res.Total, nil
		}
	}

	metrics.ListingCacheMissesTotal.Inc()

	// Collapse concurrent identical misses into one catalog query.
	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.load(ctx, key, q)
	})
	if shared {
		metrics.SharedLoadsTotal.Inc()
	}
	if err != nil {
		return nil, 0, err
	}

	res := v.(result)
	return res.Movies, res.Total, nil
}

// load runs the single catalog query for one collapsed key and stores
// the result. Catalog errors are never cached.
func (c *Cache) load(ctx context.Context, key string, q catalog.MovieQuery) (result, error) {
	movies, total, err := c.store.QueryMovies(ctx, q)
	if err != nil {
		return result{}, err
	}

	res := result{Movies: movies, Total: total}

	raw, err := json.Marshal(res)
	if err != nil {
		logging.L(ctx).Warn("listing_cache_marshal_error", zap.Error(err))
		return res, nil
	}
	if err := c.backend.Set(ctx, key, raw, c.ttl); err != nil {
		logging.L(ctx).Warn("listing_cache_set_error", zap.Error(err))
	}

	return res, nil
}

// InvalidateAll evicts the entire listing namespace. Called after any
// movie create/update; repeated delivery is a no-op.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	metrics.InvalidationsTotal.WithLabelValues("listing_all").Inc()
	return c.backend.DeletePrefix(ctx, cache.ListingKeyPrefix)
}

// normalize fills defaults so logically identical queries share a key
// and the catalog sees the same page bounds the key encodes.
func normalize(q catalog.MovieQuery) catalog.MovieQuery {
	q.Title = strings.ToLower(strings.TrimSpace(q.Title))
	if q.SortBy == "" {
		q.SortBy = catalog.SortByPopularity
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	return q
}
