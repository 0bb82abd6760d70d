package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"moviehub-backend/internal/catalog"
	"moviehub-backend/internal/listing"
	"moviehub-backend/pkg/logging"
)

// MoviesHandler serves the cached movie-listing endpoint.
type MoviesHandler struct {
	Listings *listing.Cache
}

func NewMoviesHandler(listings *listing.Cache) *MoviesHandler {
	return &MoviesHandler{Listings: listings}
}

type movieListResponse struct {
	Movies []catalog.Movie `json:"movies"`
	Total  int             `json:"total"`
}

// ListMovies handles GET /v1/movies.
// Query params: title, year, genre_id, sort_by, skip, limit.
func (h *MoviesHandler) ListMovies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	q, err := parseMovieQuery(r)
	if err != nil {
		logger.Warn("invalid listing params", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_query"})
		return
	}

	movies, total, err := h.Listings.Get(ctx, q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	logger.Info("movies_listed",
		zap.Int("count", len(movies)),
		zap.Int("total", total),
		zap.Duration("total_latency_ms", time.Since(start)),
	)

	if movies == nil {
		movies = []catalog.Movie{}
	}
	writeJSON(w, http.StatusOK, movieListResponse{Movies: movies, Total: total})
}

func parseMovieQuery(r *http.Request) (catalog.MovieQuery, error) {
	params := r.URL.Query()

	q := catalog.MovieQuery{
		Title:  params.Get("title"),
		SortBy: catalog.SortBy(params.Get("sort_by")),
	}

	if v := params.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return catalog.MovieQuery{}, err
		}
		q.Year = &year
	}
	if v := params.Get("genre_id"); v != "" {
		genreID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return catalog.MovieQuery{}, err
		}
		q.GenreID = &genreID
	}
	if v := params.Get("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil {
			return catalog.MovieQuery{}, err
		}
		q.Skip = skip
	}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return catalog.MovieQuery{}, err
		}
		q.Limit = limit
	}

	return q, nil
}
