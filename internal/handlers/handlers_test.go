package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"moviehub-backend/internal/activity"
	"moviehub-backend/internal/cache"
	"moviehub-backend/internal/catalog"
	"moviehub-backend/internal/invalidation"
	"moviehub-backend/internal/listing"
	"moviehub-backend/internal/reco"
)

type fakeCatalog struct {
	movies []catalog.Movie
	err    error
}

func (f *fakeCatalog) QueryMovies(ctx context.Context, q catalog.MovieQuery) ([]catalog.Movie, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.movies, len(f.movies), nil
}

func (f *fakeCatalog) GetMovie(ctx context.Context, id int64) (catalog.Movie, error) {
	return catalog.Movie{}, catalog.ErrNotFound
}

func (f *fakeCatalog) GetMovies(ctx context.Context, ids []int64) ([]catalog.Movie, error) {
	return nil, nil
}

func (f *fakeCatalog) GetRatings(ctx context.Context, userID int64) ([]catalog.Rating, error) {
	return nil, nil
}

type fakeActivity struct{}

func (f *fakeActivity) GetRecentActivity(ctx context.Context, userID int64, w activity.Window) ([]activity.WatchEvent, error) {
	return nil, nil
}

func newBackend(t *testing.T) *cache.MemoryBackend {
	t.Helper()
	backend := cache.NewMemoryBackend(time.Minute)
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestListMovies(t *testing.T) {
	store := &fakeCatalog{movies: []catalog.Movie{
		{ID: 1, Title: "Heat", ReleaseYear: 1995, AverageRating: 4.6, Popularity: 88},
	}}
	h := NewMoviesHandler(listing.New(newBackend(t), store, time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/v1/movies?title=heat&sort_by=rating", nil)
	rr := httptest.NewRecorder()
	h.ListMovies(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Movies []catalog.Movie `json:"movies"`
		Total  int             `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Movies) != 1 || resp.Movies[0].Title != "Heat" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestListMovies_InvalidSort(t *testing.T) {
	h := NewMoviesHandler(listing.New(newBackend(t), &fakeCatalog{}, time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/v1/movies?sort_by=shuffled", nil)
	rr := httptest.NewRecorder()
	h.ListMovies(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestListMovies_InvalidYearParam(t *testing.T) {
	h := NewMoviesHandler(listing.New(newBackend(t), &fakeCatalog{}, time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/v1/movies?year=nineteen99", nil)
	rr := httptest.NewRecorder()
	h.ListMovies(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestListMovies_CatalogDown(t *testing.T) {
	store := &fakeCatalog{err: fmt.Errorf("%w: connection refused", catalog.ErrUnavailable)}
	h := NewMoviesHandler(listing.New(newBackend(t), store, time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
	rr := httptest.NewRecorder()
	h.ListMovies(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestGetRecommendations_ColdStart(t *testing.T) {
	store := &fakeCatalog{movies: []catalog.Movie{
		{ID: 1, Title: "Popular One", Popularity: 90, AverageRating: 4.0},
		{ID: 2, Title: "Popular Two", Popularity: 80, AverageRating: 4.2},
	}}
	engine := reco.New(newBackend(t), store, &fakeActivity{}, reco.Config{})
	h := NewRecommendationsHandler(engine)

	r := chi.NewRouter()
	r.Get("/v1/users/{userID}/recommendations", h.GetRecommendations)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/42/recommendations?limit=5", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp struct {
		UserID          int64                       `json:"user_id"`
		Recommendations []reco.ScoredRecommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != 42 {
		t.Fatalf("unexpected user id: %d", resp.UserID)
	}
	if len(resp.Recommendations) != 2 {
		t.Fatalf("cold start must return the popularity ranking, got %+v", resp)
	}
	if resp.Recommendations[0].Reasons[0] != reco.ReasonColdStart {
		t.Fatalf("expected cold_start reason, got %v", resp.Recommendations[0].Reasons)
	}
}

func TestGetRecommendations_BadUserID(t *testing.T) {
	engine := reco.New(newBackend(t), &fakeCatalog{}, &fakeActivity{}, reco.Config{})
	h := NewRecommendationsHandler(engine)

	r := chi.NewRouter()
	r.Get("/v1/users/{userID}/recommendations", h.GetRecommendations)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/bob/recommendations", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestHooksEndpoints(t *testing.T) {
	bus := invalidation.NewInProcess()
	t.Cleanup(func() { bus.Close() })

	h := NewHooksHandler(invalidation.NewHooks(bus))

	r := chi.NewRouter()
	r.Post("/v1/internal/invalidate/movies", h.MovieChanged)
	r.Post("/v1/internal/invalidate/users/{userID}/ratings", h.RatingChanged)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/invalidate/movies", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/internal/invalidate/users/7/ratings", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/internal/invalidate/users/bob/ratings", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
