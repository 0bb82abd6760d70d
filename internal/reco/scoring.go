package reco

import (
	"sort"
	"strings"

	"moviehub-backend/internal/activity"
	"moviehub-backend/internal/catalog"
)

// recencySkewYears: the recency penalty only applies when the user's
// mean watched release year is within this many years of the newest
// candidate.
const recencySkewYears = 10

const maxGenreReasons = 3

// strongSignal is the normalized threshold above which a rating or
// popularity signal earns its own reason entry.
const strongSignal = 0.8

// historyMovieIDs collects the distinct movie ids referenced by the
// user's events and ratings, in deterministic order.
func historyMovieIDs(events []activity.WatchEvent, ratings []catalog.Rating) []int64 {
	seen := make(map[int64]struct{}, len(events)+len(ratings))
	for _, ev := range events {
		seen[ev.MovieID] = struct{}{}
	}
	for _, r := range ratings {
		seen[r.MovieID] = struct{}{}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// rank scores every eligible candidate for the user and returns the full
// ordered list. Pure: fixed inputs always produce a byte-identical list,
// tie-break order included.
func rank(candidates, history []catalog.Movie, events []activity.WatchEvent, ratings []catalog.Rating, cfg Config) []ScoredRecommendation {
	if len(events) == 0 && len(ratings) == 0 {
		return rankColdStart(candidates)
	}

	historyByID := make(map[int64]catalog.Movie, len(history))
	for _, m := range history {
		historyByID[m.ID] = m
	}

	affinity := buildAffinity(events, ratings, historyByID)

	completed := make(map[int64]struct{})
	watched := make(map[int64]struct{})
	for _, ev := range events {
		watched[ev.MovieID] = struct{}{}
		if ev.Completed {
			completed[ev.MovieID] = struct{}{}
		}
	}

	// Completed movies are out; partial watches stay eligible so the
	// user can be nudged to finish them, unless opted out.
	eligible := make([]catalog.Movie, 0, len(candidates))
	for _, m := range candidates {
		if _, done := completed[m.ID]; done {
			continue
		}
		if cfg.ExcludePartial {
			if _, w := watched[m.ID]; w {
				continue
			}
		}
		eligible = append(eligible, m)
	}
	if len(eligible) == 0 {
		return []ScoredRecommendation{}
	}

	normRating := minMaxRating(eligible)
	normPop := minMaxPopularity(eligible)
	penalty := recencyPenalty(events, historyByID, eligible)

	degraded := len(events) == 0

	recs := make([]ScoredRecommendation, 0, len(eligible))
	byID := make(map[int64]catalog.Movie, len(eligible))
	for _, m := range eligible {
		byID[m.ID] = m

		aff := 0.0
		contribs := make([]genreContribution, 0, len(m.Genres))
		for _, g := range m.Genres {
			a := affinity[g.ID]
			aff += a
			if a > 0 {
				contribs = append(contribs, genreContribution{genre: g, weight: a})
			}
		}

		ratingTerm := normRating(m)
		popTerm := normPop(m)
		score := aff + cfg.Weights.AvgRating*ratingTerm + cfg.Weights.Popularity*popTerm - cfg.Weights.RecencyPenalty*penalty(m)

		reasons := make([]string, 0, maxGenreReasons+2)
		if degraded {
			reasons = append(reasons, ReasonNoRecentActivity)
		}
		reasons = append(reasons, genreReasons(contribs)...)
		if ratingTerm >= strongSignal {
			reasons = append(reasons, ReasonHighlyRated)
		}
		if popTerm >= strongSignal {
			reasons = append(reasons, ReasonPopular)
		}

		recs = append(recs, ScoredRecommendation{
			MovieID: m.ID,
			Score:   score,
			Reasons: reasons,
		})
	}

	sortRecs(recs, byID)
	return recs
}

// rankColdStart ranks by popularity alone, flagged so callers can render
// "popular now" instead of a personal explanation.
func rankColdStart(candidates []catalog.Movie) []ScoredRecommendation {
	normPop := minMaxPopularity(candidates)

	recs := make([]ScoredRecommendation, 0, len(candidates))
	byID := make(map[int64]catalog.Movie, len(candidates))
	for _, m := range candidates {
		byID[m.ID] = m
		recs = append(recs, ScoredRecommendation{
			MovieID: m.ID,
			Score:   normPop(m),
			Reasons: []string{ReasonColdStart},
		})
	}

	sortRecs(recs, byID)
	return recs
}

// buildAffinity accumulates the user's per-genre interest: watch signals
// weigh by completion ratio (capped at 1.0), rating signals by deviation
// from the neutral 2.5 so below-average ratings subtract affinity.
func buildAffinity(events []activity.WatchEvent, ratings []catalog.Rating, historyByID map[int64]catalog.Movie) map[int64]float64 {
	affinity := make(map[int64]float64)

	for _, ev := range events {
		m, ok := historyByID[ev.MovieID]
		if !ok {
			continue
		}

		var w float64
		switch {
		case m.DurationSeconds > 0:
			w = float64(ev.WatchedSeconds) / float64(m.DurationSeconds)
			if w > 1 {
				w = 1
			}
		case ev.Completed:
			w = 1
		}
		if w <= 0 {
			continue
		}

		for _, g := range m.Genres {
			affinity[g.ID] += w
		}
	}

	for _, r := range ratings {
		m, ok := historyByID[r.MovieID]
		if !ok {
			continue
		}

		w := (r.Value - 2.5) / 2.5
		for _, g := range m.Genres {
			affinity[g.ID] += w
		}
	}

	return affinity
}

// recencyPenalty returns the per-movie penalty function. Old releases
// are penalized only when the user's own watch history skews toward
// recent releases; otherwise the penalty is zero for everyone.
func recencyPenalty(events []activity.WatchEvent, historyByID map[int64]catalog.Movie, eligible []catalog.Movie) func(catalog.Movie) float64 {
	none := func(catalog.Movie) float64 { return 0 }

	yearSum, watchedCount := 0, 0
	seen := make(map[int64]struct{})
	for _, ev := range events {
		if _, dup := seen[ev.MovieID]; dup {
			continue
		}
		seen[ev.MovieID] = struct{}{}
		if m, ok := historyByID[ev.MovieID]; ok && m.ReleaseYear > 0 {
			yearSum += m.ReleaseYear
			watchedCount++
		}
	}
	if watchedCount == 0 {
		return none
	}
	meanYear := float64(yearSum) / float64(watchedCount)

	minYear, maxYear := eligible[0].ReleaseYear, eligible[0].ReleaseYear
	for _, m := range eligible[1:] {
		if m.ReleaseYear < minYear {
			minYear = m.ReleaseYear
		}
		if m.ReleaseYear > maxYear {
			maxYear = m.ReleaseYear
		}
	}
	if meanYear < float64(maxYear-recencySkewYears) || maxYear == minYear {
		return none
	}

	span := float64(maxYear - minYear)
	return func(m catalog.Movie) float64 {
		return float64(maxYear-m.ReleaseYear) / span
	}
}

type genreContribution struct {
	genre  catalog.Genre
	weight float64
}

// genreReasons renders the strongest positive genre contributions,
// strongest first, ties by genre id.
func genreReasons(contribs []genreContribution) []string {
	sort.Slice(contribs, func(i, j int) bool {
		if contribs[i].weight != contribs[j].weight {
			return contribs[i].weight > contribs[j].weight
		}
		return contribs[i].genre.ID < contribs[j].genre.ID
	})
	if len(contribs) > maxGenreReasons {
		contribs = contribs[:maxGenreReasons]
	}

	reasons := make([]string, 0, len(contribs))
	for _, c := range contribs {
		reasons = append(reasons, reasonGenrePrefix+strings.ToLower(c.genre.Name))
	}
	return reasons
}

// sortRecs orders by score descending, then average rating descending,
// then movie id ascending. No ties escape to arbitrary order.
func sortRecs(recs []ScoredRecommendation, byID map[int64]catalog.Movie) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		ri, rj := byID[recs[i].MovieID].AverageRating, byID[recs[j].MovieID].AverageRating
		if ri != rj {
			return ri > rj
		}
		return recs[i].MovieID < recs[j].MovieID
	})
}

func minMaxRating(movies []catalog.Movie) func(catalog.Movie) float64 {
	lo, hi := movies[0].AverageRating, movies[0].AverageRating
	for _, m := range movies[1:] {
		if m.AverageRating < lo {
			lo = m.AverageRating
		}
		if m.AverageRating > hi {
			hi = m.AverageRating
		}
	}
	if hi == lo {
		return func(catalog.Movie) float64 { return 0 }
	}
	return func(m catalog.Movie) float64 {
		return (m.AverageRating - lo) / (hi - lo)
	}
}

func minMaxPopularity(movies []catalog.Movie) func(catalog.Movie) float64 {
	if len(movies) == 0 {
		return func(catalog.Movie) float64 { return 0 }
	}
	lo, hi := movies[0].Popularity, movies[0].Popularity
	for _, m := range movies[1:] {
		if m.Popularity < lo {
			lo = m.Popularity
		}
		if m.Popularity > hi {
			hi = m.Popularity
		}
	}
	if hi == lo {
		return func(catalog.Movie) float64 { return 0 }
	}
	return func(m catalog.Movie) float64 {
		return float64(m.Popularity-lo) / float64(hi-lo)
	}
}
