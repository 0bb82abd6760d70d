package catalog

import "time"

// Genre is a movie genre as stored in the relational catalog.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Movie is the catalog projection this subsystem reads. AverageRating and
// Popularity are maintained by the write paths outside this core.
type Movie struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	ReleaseYear     int     `json:"release_year"`
	DurationSeconds int     `json:"duration_seconds"`
	Genres          []Genre `json:"genres"`
	AverageRating   float64 `json:"average_rating"`
	Popularity      int     `json:"popularity"`
}

// Rating is one user's rating of one movie. The catalog enforces one row
// per (user, movie) pair; a re-rating overwrites the previous value.
type Rating struct {
	UserID    int64     `json:"user_id"`
	MovieID   int64     `json:"movie_id"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// SortBy enumerates the supported listing sort orders.
type SortBy string

const (
	SortByTitle      SortBy = "title"
	SortByYear       SortBy = "year"
	SortByRating     SortBy = "rating"
	SortByPopularity SortBy = "popularity"
)

// Valid reports whether s is a known sort order. The empty value is valid
// and means "use the default order".
func (s SortBy) Valid() bool {
	switch s {
	case "", SortByTitle, SortByYear, SortByRating, SortByPopularity:
		return true
	}
	return false
}

// MovieQuery describes one filtered/sorted/paginated listing request.
// Pointer fields are nil when the filter is absent; Title is absent when
// empty. Absent filters must not influence cache keys.
type MovieQuery struct {
	Title   string
	Year    *int
	GenreID *int64
	SortBy  SortBy
	Skip    int
	Limit   int
}
