// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package recommend

import (
	"testing"
	"time"
)

var scoreNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestScoreDeterministic(t *testing.T) {
	item := CatalogItem{
		ID:          1,
		VoteAverage: 7.4,
		Popularity:  321.5,
		ReleaseDate: "2023-06-15",
		Overview:    "A thrilling adventure across the galaxy.",
		GenreIDs:    []int{28, 12},
	}
	weights := []GenreWeight{{ID: 28, Weight: GenreWeightPreference}}
	moods := []string{"exciting"}

	first := Score(&item, weights, moods, scoreNow)
	for i := 0; i < 10; i++ {
		if got := Score(&item, weights, moods, scoreNow); got != first {
			t.Fatalf("score not deterministic: got %d, want %d", got, first)
		}
	}
}

func TestScoreComponents(t *testing.T) {
	tests := []struct {
		name    string
		item    CatalogItem
		weights []GenreWeight
		moods   []string
		want    int
	}{
		{
			name: "rating only",
			item: CatalogItem{VoteAverage: 10},
			want: 25,
		},
		{
			name: "popularity at ceiling",
			item: CatalogItem{Popularity: 999},
			want: 25,
		},
		{
			name: "popularity clamped above ceiling",
			item: CatalogItem{Popularity: 1e9},
			want: 25,
		},
		{
			name: "recency five years out",
			item: CatalogItem{ReleaseDate: "2021-01-01"},
			want: 10,
		},
		{
			name: "recency beyond horizon",
			item: CatalogItem{ReleaseDate: "2010-01-01"},
			want: 0,
		},
		{
			name: "future release date",
			item: CatalogItem{ReleaseDate: "2027-01-01"},
			want: 0,
		},
		{
			name: "unparseable release date",
			item: CatalogItem{ReleaseDate: "not-a-date"},
			want: 0,
		},
		{
			name:    "preference genre match",
			item:    CatalogItem{GenreIDs: []int{28}},
			weights: []GenreWeight{{ID: 28, Weight: GenreWeightPreference}},
			want:    20,
		},
		{
			name:    "favorite genre match",
			item:    CatalogItem{GenreIDs: []int{28}},
			weights: []GenreWeight{{ID: 28, Weight: GenreWeightFavorite}},
			want:    10,
		},
		{
			name:  "mood keyword matches",
			item:  CatalogItem{Overview: "A hilarious comedy about nothing."},
			moods: []string{"funny"},
			want:  10,
		},
		{
			name:  "unknown mood ignored",
			item:  CatalogItem{Overview: "A hilarious comedy about nothing."},
			moods: []string{"sleepy"},
			want:  0,
		},
		{
			name: "everything maxed caps at 100",
			item: CatalogItem{
				VoteAverage: 10,
				Popularity:  1e6,
				ReleaseDate: "2025-12-01",
				Overview:    "A hilarious comedy, thrilling action adventure.",
				GenreIDs:    []int{28, 35},
			},
			weights: []GenreWeight{
				{ID: 28, Weight: GenreWeightPreference},
				{ID: 35, Weight: GenreWeightPreference},
			},
			moods: []string{"funny", "exciting"},
			want:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(&tt.item, tt.weights, tt.moods, scoreNow); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreAllStableOnTies(t *testing.T) {
	// Identical items score identically; stable sort must keep input order.
	items := []CatalogItem{
		{ID: 10, VoteAverage: 7},
		{ID: 20, VoteAverage: 7},
		{ID: 30, VoteAverage: 9},
		{ID: 40, VoteAverage: 7},
	}

	scored := scoreAll(items, nil, nil, SourceGeneric, scoreNow)

	wantOrder := []int{30, 10, 20, 40}
	for i, want := range wantOrder {
		if scored[i].ID != want {
			t.Fatalf("position %d: got id %d, want %d", i, scored[i].ID, want)
		}
	}
}

func TestScoreAllTagsSource(t *testing.T) {
	scored := scoreAll([]CatalogItem{{ID: 1}}, nil, nil, SourceSupplementary, scoreNow)

	if scored[0].Source != SourceSupplementary {
		t.Errorf("Source = %q, want %q", scored[0].Source, SourceSupplementary)
	}
	if scored[0].Reason != SourceSupplementary.Reason() {
		t.Errorf("Reason = %q, want %q", scored[0].Reason, SourceSupplementary.Reason())
	}
}
