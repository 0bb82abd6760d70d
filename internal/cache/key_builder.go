package cache

import (
	"strconv"
	"strings"

	"moviehub-backend/internal/catalog"
)

// Key namespaces. The v1 segment versions the key format: bump it when
// the canonicalization or the scoring formula changes so new entries
// never collide with stale ones.
const (
	ListingKeyPrefix = "listing:v1:"
	RecoKeyPrefix    = "reco:v1:"
)

// BuildListingKey derives the cache key for one listing query.
//
// Canonicalization rules: the title substring is lowercased and
// length-prefixed (so no title content can collide with the segment
// delimiter), absent optional filters are omitted entirely rather than
// encoded as empty, numbers are decimal, and segments appear in a fixed
// order. Two logically identical queries always map to the same key no
// matter how their parameters were submitted.
func BuildListingKey(q catalog.MovieQuery) string {
	parts := make([]string, 0, 6)

	if title := strings.ToLower(strings.TrimSpace(q.Title)); title != "" {
		parts = append(parts, "t:"+strconv.Itoa(len(title))+":"+title)
	}
	if q.Year != nil {
		parts = append(parts, "y:"+strconv.Itoa(*q.Year))
	}
	if q.GenreID != nil {
		parts = append(parts, "g:"+strconv.FormatInt(*q.GenreID, 10))
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = catalog.SortByPopularity
	}
	parts = append(parts, "s:"+string(sortBy))

	skip := q.Skip
	if skip < 0 {
		skip = 0
	}
	parts = append(parts, "o:"+strconv.Itoa(skip))

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	parts = append(parts, "l:"+strconv.Itoa(limit))

	return ListingKeyPrefix + strings.Join(parts, "|")
}

// BuildRecoKey derives the per-user recommendation cache key.
func BuildRecoKey(userID int64) string {
	return RecoKeyPrefix + strconv.FormatInt(userID, 10)
}
