// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package recommend

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Score component weights. The composition is a documented deterministic
// heuristic, not a learned model; keep the constants in sync with the
// component functions below.
const (
	ratingWeight     = 25.0
	popularityWeight = 25.0
	recencyWeight    = 20.0

	// genrePointsPerWeight converts a genre weight (1 or 2) into points.
	genrePointsPerWeight = 10.0

	// moodPointsPerMatch is awarded per matched mood keyword.
	moodPointsPerMatch = 5.0

	// recencyHorizonYears is the linear falloff horizon for recency.
	recencyHorizonYears = 10.0

	// popularityCeiling normalizes the long-tailed popularity value;
	// log10(popularity+1) is scaled against log10(popularityCeiling).
	popularityCeiling = 1000.0
)

// Genre weight levels: declared preferences outweigh favorite-derived
// genres 2:1.
const (
	GenreWeightPreference = 2
	GenreWeightFavorite   = 1
)

// GenreWeight pairs a genre id with its weight level.
type GenreWeight struct {
	ID     int
	Weight int
}

// moodKeywords translates a mood tag into overview keywords. Matching is a
// case-insensitive substring check against the item overview.
var moodKeywords = map[string][]string{
	"exciting":   {"action", "thrilling", "intense", "adventure"},
	"relaxing":   {"heartwarming", "gentle", "charming", "feel-good"},
	"thoughtful": {"thought-provoking", "powerful", "gripping", "haunting"},
	"funny":      {"comedy", "hilarious", "witty", "laugh"},
	"emotional":  {"moving", "touching", "tear", "love"},
	"scary":      {"horror", "terrifying", "sinister", "nightmare"},
	"mysterious": {"mystery", "secret", "conspiracy", "detective"},
	"inspiring":  {"true story", "triumph", "courage", "dream"},
}

// Score assigns a 0-100 relevance score to an item. It is pure and
// deterministic: identical inputs always yield identical output.
//
// Composition:
//   - rating:      (vote_average/10) * 25
//   - popularity:  log10(popularity+1)/log10(1000) * 25, clamped to 25
//   - recency:     linear falloff over 10 years, worth up to 20
//   - genres:      sum of matched genre weights * 10
//   - moods:       +5 per matched mood keyword in the overview
//
// The sum is rounded and capped at 100.
func Score(item *CatalogItem, weights []GenreWeight, moods []string, now time.Time) int {
	total := ratingComponent(item) +
		popularityComponent(item) +
		recencyComponent(item, now) +
		genreComponent(item, weights) +
		moodComponent(item, moods)

	score := int(math.Round(total))
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

func ratingComponent(item *CatalogItem) float64 {
	return (item.VoteAverage / 10.0) * ratingWeight
}

func popularityComponent(item *CatalogItem) float64 {
	if item.Popularity <= 0 {
		return 0
	}
	c := math.Log10(item.Popularity+1) / math.Log10(popularityCeiling) * popularityWeight
	if c > popularityWeight {
		return popularityWeight
	}
	return c
}

func recencyComponent(item *CatalogItem, now time.Time) float64 {
	released, err := time.Parse("2006-01-02", item.ReleaseDate)
	if err != nil {
		return 0
	}

	years := now.Sub(released).Hours() / (24 * 365.25)
	if years < 0 || years > recencyHorizonYears {
		return 0
	}
	return (recencyHorizonYears - years) / recencyHorizonYears * recencyWeight
}

func genreComponent(item *CatalogItem, weights []GenreWeight) float64 {
	if len(weights) == 0 || len(item.GenreIDs) == 0 {
		return 0
	}

	byID := make(map[int]int, len(weights))
	for _, w := range weights {
		byID[w.ID] = w.Weight
	}

	points := 0.0
	for _, id := range item.GenreIDs {
		points += float64(byID[id]) * genrePointsPerWeight
	}
	return points
}

func moodComponent(item *CatalogItem, moods []string) float64 {
	if len(moods) == 0 || item.Overview == "" {
		return 0
	}

	overview := strings.ToLower(item.Overview)
	points := 0.0
	for _, mood := range moods {
		for _, keyword := range moodKeywords[strings.ToLower(mood)] {
			if strings.Contains(overview, keyword) {
				points += moodPointsPerMatch
			}
		}
	}
	return points
}

// scoreAll scores every item and returns them sorted stably by descending
// score. Stability means ties keep their pre-sort order, so output is a pure
// function of the input ordering, not goroutine completion order.
func scoreAll(items []CatalogItem, weights []GenreWeight, moods []string, src Source, now time.Time) []ScoredItem {
	scored := make([]ScoredItem, 0, len(items))
	for i := range items {
		scored = append(scored, ScoredItem{
			CatalogItem: items[i],
			Score:       Score(&items[i], weights, moods, now),
			Reason:      src.Reason(),
			Source:      src,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}
