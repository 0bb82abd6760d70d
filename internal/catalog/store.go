package catalog

import (
	"context"
	"errors"
)

// ErrUnavailable wraps catalog I/O failures (connection loss, timeouts).
// Callers must propagate it, never cache around it.
var ErrUnavailable = errors.New("catalog store unavailable")

// ErrNotFound is returned when a movie id does not exist.
var ErrNotFound = errors.New("movie not found")

// Store is the read surface of the relational catalog consumed by the
// cache and recommendation layers. Implemented by SQLStore (prod) and
// by in-memory fakes in tests.
type Store interface {
	// QueryMovies returns one page of movies matching q plus the total
	// match count before pagination.
	QueryMovies(ctx context.Context, q MovieQuery) ([]Movie, int, error)

	// GetMovie returns a single movie by id.
	GetMovie(ctx context.Context, id int64) (Movie, error)

	// GetMovies returns the movies for the given ids in one round trip.
	// Missing ids are skipped, not an error.
	GetMovies(ctx context.Context, ids []int64) ([]Movie, error)

	// GetRatings returns all ratings recorded by one user.
	GetRatings(ctx context.Context, userID int64) ([]Rating, error)
}
