package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLStore implements Store on top of the relational catalog schema
// (movies, genres, movie_genres, ratings). The *sql.DB is externally
// pooled; every call issues one logical read and holds no transaction.
type SQLStore struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewSQLStore creates a catalog store over db. queryTimeout bounds every
// query; <=0 falls back to 5s.
func NewSQLStore(db *sql.DB, queryTimeout time.Duration) *SQLStore {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &SQLStore{db: db, queryTimeout: queryTimeout}
}

func (s *SQLStore) QueryMovies(ctx context.Context, q MovieQuery) ([]Movie, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	where := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if q.Title != "" {
		where = append(where, "LOWER(m.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Title)+"%")
	}
	if q.Year != nil {
		where = append(where, "m.release_year = ?")
		args = append(args, *q.Year)
	}
	if q.GenreID != nil {
		where = append(where, "EXISTS (SELECT 1 FROM movie_genres mg WHERE mg.movie_id = m.id AND mg.genre_id = ?)")
		args = append(args, *q.GenreID)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM movies m" + whereSQL
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count movies: %v", ErrUnavailable, err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	listSQL := "SELECT m.id, m.title, m.release_year, m.duration_seconds, m.average_rating, m.popularity FROM movies m" +
		whereSQL + " ORDER BY " + orderClause(q.SortBy) + " LIMIT ? OFFSET ?"
	listArgs := append(append([]any{}, args...), limit, q.Skip)

	rows, err := s.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: query movies: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	movies, err := scanMovies(rows)
	if err != nil {
		return nil, 0, err
	}

	if err := s.attachGenres(ctx, movies); err != nil {
		return nil, 0, err
	}

	return movies, total, nil
}

func (s *SQLStore) GetMovie(ctx context.Context, id int64) (Movie, error) {
	movies, err := s.GetMovies(ctx, []int64{id})
	if err != nil {
		return Movie{}, err
	}
	if len(movies) == 0 {
		return Movie{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return movies[0], nil
}

func (s *SQLStore) GetMovies(ctx context.Context, ids []int64) ([]Movie, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	placeholders, args := inArgs(ids)
	query := "SELECT m.id, m.title, m.release_year, m.duration_seconds, m.average_rating, m.popularity FROM movies m WHERE m.id IN (" +
		placeholders + ") ORDER BY m.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: get movies: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	movies, err := scanMovies(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachGenres(ctx, movies); err != nil {
		return nil, err
	}

	return movies, nil
}

func (s *SQLStore) GetRatings(ctx context.Context, userID int64) ([]Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, movie_id, value, created_at FROM ratings WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get ratings: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var ratings []Rating
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.UserID, &r.MovieID, &r.Value, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan rating: %v", ErrUnavailable, err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate ratings: %v", ErrUnavailable, err)
	}

	return ratings, nil
}

// attachGenres loads the genre lists for all movies in one query.
func (s *SQLStore) attachGenres(ctx context.Context, movies []Movie) error {
	if len(movies) == 0 {
		return nil
	}

	ids := make([]int64, len(movies))
	byID := make(map[int64]*Movie, len(movies))
	for i := range movies {
		ids[i] = movies[i].ID
		byID[movies[i].ID] = &movies[i]
	}

	placeholders, args := inArgs(ids)
	query := "SELECT mg.movie_id, g.id, g.name FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id WHERE mg.movie_id IN (" +
		placeholders + ") ORDER BY mg.movie_id, g.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: load genres: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var movieID int64
		var g Genre
		if err := rows.Scan(&movieID, &g.ID, &g.Name); err != nil {
			return fmt.Errorf("%w: scan genre: %v", ErrUnavailable, err)
		}
		if m, ok := byID[movieID]; ok {
			m.Genres = append(m.Genres, g)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate genres: %v", ErrUnavailable, err)
	}

	return nil
}

func scanMovies(rows *sql.Rows) ([]Movie, error) {
	var movies []Movie
	for rows.Next() {
		var m Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.ReleaseYear, &m.DurationSeconds, &m.AverageRating, &m.Popularity); err != nil {
			return nil, fmt.Errorf("%w: scan movie: %v", ErrUnavailable, err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate movies: %v", ErrUnavailable, err)
	}
	return movies, nil
}

func orderClause(sortBy SortBy) string {
	switch sortBy {
	case SortByTitle:
		return "m.title ASC, m.id ASC"
	case SortByYear:
		return "m.release_year DESC, m.id ASC"
	case SortByRating:
		return "m.average_rating DESC, m.id ASC"
	default: // popularity is also the default order
		return "m.popularity DESC, m.id ASC"
	}
}

func inArgs(ids []int64) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return placeholders, args
}
