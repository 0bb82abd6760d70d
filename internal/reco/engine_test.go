package reco

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"moviehub-backend/internal/activity"
	"moviehub-backend/internal/cache"
	"moviehub-backend/internal/catalog"
)

var (
	genreAction = catalog.Genre{ID: 1, Name: "Action"}
	genreComedy = catalog.Genre{ID: 2, Name: "Comedy"}
)

type fakeCatalog struct {
	mu         sync.Mutex
	queryCalls int
	movies     []catalog.Movie // pre-sorted by popularity desc, id asc
	ratings    map[int64][]catalog.Rating
	err        error
}

func (f *fakeCatalog) QueryMovies(ctx context.Context, q catalog.MovieQuery) ([]catalog.Movie, int, error) {
	f.mu.Lock()
	f.queryCalls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, 0, f.err
	}
	movies := f.movies
	if q.Limit > 0 && len(movies) > q.Limit {
		movies = movies[:q.Limit]
	}
	return movies, len(f.movies), nil
}

func (f *fakeCatalog) GetMovie(ctx context.Context, id int64) (catalog.Movie, error) {
	for _, m := range f.movies {
		if m.ID == id {
			return m, nil
		}
	}
	return catalog.Movie{}, catalog.ErrNotFound
}

func (f *fakeCatalog) GetMovies(ctx context.Context, ids []int64) ([]catalog.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []catalog.Movie
	for _, id := range ids {
		for _, m := range f.movies {
			if m.ID == id {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetRatings(ctx context.Context, userID int64) ([]catalog.Rating, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ratings[userID], nil
}

type fakeActivity struct {
	mu     sync.Mutex
	calls  int
	events map[int64][]activity.WatchEvent
	err    error
}

func (f *fakeActivity) GetRecentActivity(ctx context.Context, userID int64, w activity.Window) ([]activity.WatchEvent, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return f.events[userID], nil
}

func (f *fakeActivity) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fixtureCatalog is the §-style scenario: movie A (Action) watched to
// completion, movie B (Action) rated 5.0, candidates C (Action) and
// D (Comedy) unwatched.
func fixtureCatalog() *fakeCatalog {
	return &fakeCatalog{
		movies: []catalog.Movie{
			{ID: 1, Title: "Movie A", ReleaseYear: 2018, DurationSeconds: 7200, Genres: []catalog.Genre{genreAction}, AverageRating: 4.2, Popularity: 100},
			{ID: 2, Title: "Movie B", ReleaseYear: 2019, DurationSeconds: 6900, Genres: []catalog.Genre{genreAction}, AverageRating: 3.9, Popularity: 90},
			{ID: 3, Title: "Movie C", ReleaseYear: 2020, DurationSeconds: 7100, Genres: []catalog.Genre{genreAction}, AverageRating: 4.0, Popularity: 80},
			{ID: 4, Title: "Movie D", ReleaseYear: 2021, DurationSeconds: 6000, Genres: []catalog.Genre{genreComedy}, AverageRating: 4.5, Popularity: 70},
		},
		ratings: map[int64][]catalog.Rating{
			7: {{UserID: 7, MovieID: 2, Value: 5.0, CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}},
		},
	}
}

func fixtureActivity() *fakeActivity {
	return &fakeActivity{
		events: map[int64][]activity.WatchEvent{
			7: {{UserID: 7, MovieID: 1, WatchedAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), WatchedSeconds: 7200, Completed: true}},
		},
	}
}

func newTestEngine(t *testing.T, cat catalog.Store, act activity.Store, cfg Config) *Engine {
	t.Helper()
	backend := cache.NewMemoryBackend(time.Minute)
	t.Cleanup(func() { backend.Close() })
	return New(backend, cat, act, cfg)
}

func TestRecommend_GenreAffinityDominates(t *testing.T) {
	e := newTestEngine(t, fixtureCatalog(), fixtureActivity(), Config{})

	recs, err := e.Recommend(context.Background(), 7, 10)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	posC, posD := -1, -1
	for i, r := range recs {
		switch r.MovieID {
		case 1:
			t.Fatalf("completed movie A must be excluded, got %v", recs)
		case 3:
			posC = i
		case 4:
			posD = i
		}
	}
	if posC == -1 || posD == -1 {
		t.Fatalf("expected both C and D in results, got %v", recs)
	}
	if posC > posD {
		t.Fatalf("genre affinity must rank C above D, got C=%d D=%d", posC, posD)
	}

	foundGenreReason := false
	for _, reason := range recs[posC].Reasons {
		if reason == "genre_affinity:action" {
			foundGenreReason = true
		}
	}
	if !foundGenreReason {
		t.Fatalf("expected genre_affinity:action reason on C, got %v", recs[posC].Reasons)
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	run := func() []byte {
		e := newTestEngine(t, fixtureCatalog(), fixtureActivity(), Config{})
		recs, err := e.Recommend(context.Background(), 7, 10)
		if err != nil {
			t.Fatalf("Recommend failed: %v", err)
		}
		raw, err := json.Marshal(recs)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		return raw
	}

	first, second := run(), run()
	if string(first) != string(second) {
		t.Fatalf("two runs over the same snapshot diverged:\n%s\n%s", first, second)
	}
}

func TestRecommend_ColdStart(t *testing.T) {
	cat := &fakeCatalog{
		movies: []catalog.Movie{
			{ID: 1, Title: "Tied High", ReleaseYear: 2020, Genres: []catalog.Genre{genreAction}, AverageRating: 4.8, Popularity: 50},
			{ID: 2, Title: "Tied Low", ReleaseYear: 2021, Genres: []catalog.Genre{genreComedy}, AverageRating: 4.1, Popularity: 50},
			{ID: 3, Title: "Tied Same", ReleaseYear: 2022, Genres: []catalog.Genre{genreComedy}, AverageRating: 4.1, Popularity: 50},
		},
	}
	e := newTestEngine(t, cat, &fakeActivity{}, Config{})

	recs, err := e.Recommend(context.Background(), 99, 10)
	if err != nil {
		t.Fatalf("cold start must not error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("cold start must not be empty, got %d", len(recs))
	}

	for _, r := range recs {
		if len(r.Reasons) != 1 || r.Reasons[0] != ReasonColdStart {
			t.Fatalf("expected cold_start reason, got %v", r.Reasons)
		}
	}

	// equal popularity: tie-break by average rating desc, then id asc
	want := []int64{1, 2, 3}
	for i, id := range want {
		if recs[i].MovieID != id {
			t.Fatalf("unexpected cold-start order: got %v, want %v", recs, want)
		}
	}
}

func TestRecommend_PartialWatchStaysEligible(t *testing.T) {
	cat := fixtureCatalog()
	act := &fakeActivity{
		events: map[int64][]activity.WatchEvent{
			7: {{UserID: 7, MovieID: 3, WatchedSeconds: 1800, Completed: false}},
		},
	}

	e := newTestEngine(t, cat, act, Config{})
	recs, err := e.Recommend(context.Background(), 7, 10)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	found := false
	for _, r := range recs {
		if r.MovieID == 3 {
			found = true
		}
	}
	if !found {
		t.Fatalf("partially watched movie must stay eligible, got %v", recs)
	}

	// opt-out excludes it
	e2 := newTestEngine(t, cat, act, Config{ExcludePartial: true})
	recs2, err := e2.Recommend(context.Background(), 7, 10)
	if err != nil {
		t.Fatalf("Recommend with opt-out failed: %v", err)
	}
	for _, r := range recs2 {
		if r.MovieID == 3 {
			t.Fatalf("opted-out partial watch must be excluded, got %v", recs2)
		}
	}
}

func TestRecommend_NoRecentActivityFlag(t *testing.T) {
	cat := fixtureCatalog()
	e := newTestEngine(t, cat, &fakeActivity{}, Config{})

	// user 7 has a rating but zero watch events in the window
	recs, err := e.Recommend(context.Background(), 7, 10)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) == 0 {
		t.Fatalf("rating-only history must still produce results")
	}
	for _, r := range recs {
		if len(r.Reasons) == 0 || r.Reasons[0] != ReasonNoRecentActivity {
			t.Fatalf("expected no_recent_activity flag first, got %v", r.Reasons)
		}
	}
}

func TestRecommend_CachedPerUser(t *testing.T) {
	cat := fixtureCatalog()
	act := fixtureActivity()
	e := newTestEngine(t, cat, act, Config{})
	ctx := context.Background()

	if _, err := e.Recommend(ctx, 7, 5); err != nil {
		t.Fatalf("first Recommend failed: %v", err)
	}
	if _, err := e.Recommend(ctx, 7, 5); err != nil {
		t.Fatalf("second Recommend failed: %v", err)
	}
	if got := act.callCount(); got != 1 {
		t.Fatalf("expected cached second read, got %d activity reads", got)
	}

	// key-level invalidation: user 7 recomputes, user 99 is untouched
	if err := e.Invalidate(ctx, 7); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := e.Recommend(ctx, 7, 5); err != nil {
		t.Fatalf("Recommend after invalidation failed: %v", err)
	}
	if got := act.callCount(); got != 2 {
		t.Fatalf("expected recompute after invalidation, got %d activity reads", got)
	}

	// duplicate invalidation is a no-op
	if err := e.Invalidate(ctx, 7); err != nil {
		t.Fatalf("duplicate Invalidate failed: %v", err)
	}
}

func TestRecommend_Truncates(t *testing.T) {
	e := newTestEngine(t, fixtureCatalog(), fixtureActivity(), Config{})

	recs, err := e.Recommend(context.Background(), 7, 2)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) > 2 {
		t.Fatalf("expected at most 2 results, got %d", len(recs))
	}
}

func TestRecommend_ActivityUnavailable(t *testing.T) {
	act := &fakeActivity{err: fmt.Errorf("%w: no reachable servers", activity.ErrUnavailable)}
	e := newTestEngine(t, fixtureCatalog(), act, Config{})

	_, err := e.Recommend(context.Background(), 7, 10)
	if !errors.Is(err, activity.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRecommend_CatalogUnavailable(t *testing.T) {
	cat := fixtureCatalog()
	cat.err = fmt.Errorf("%w: connection refused", catalog.ErrUnavailable)
	e := newTestEngine(t, cat, fixtureActivity(), Config{})

	_, err := e.Recommend(context.Background(), 7, 10)
	if !errors.Is(err, catalog.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
