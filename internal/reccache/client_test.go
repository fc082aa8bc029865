// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package reccache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/movierec/movierec/internal/config"
	"github.com/movierec/movierec/internal/profile"
	"github.com/movierec/movierec/internal/recommend"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&config.RecCacheConfig{
		Enabled: true,
		URL:     srv.URL,
		Timeout: 5 * time.Second,
	}, zerolog.Nop())
}

func TestRecommendationsRequestShape(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recommendations" {
			t.Errorf("path = %q, want /recommendations", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recommendations": []}`))
	})

	_, err := client.Recommendations(context.Background(), recommend.CacheQuery{
		ContentType:  recommend.ContentTypeMovie,
		Limit:        27,
		ExcludeIDs:   []int{5, 3, 9},
		FavoriteIDs:  []int{100},
		WatchlistIDs: []int{200, 201},
		Profile: &profile.Profile{
			Completed:    true,
			ContentType:  profile.ContentTypeMovie,
			GenreRatings: map[int]int{35: 7, 28: 8},
			Moods:        []string{"exciting", "funny"},
			Era:          "recent",
			Language:     "en",
			Runtime:      "medium",
		},
	})
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}

	wantParams := map[string]string{
		"contentType":   "movie",
		"limit":         "27",
		"excludeIds":    "3,5,9",
		"favoriteIds":   "100",
		"watchlistIds":  "200,201",
		"preferredType": "movie",
		"genreRatings":  "28:8,35:7",
		"moods":         "exciting,funny",
		"era":           "recent",
		"language":      "en",
		"runtime":       "medium",
	}
	for key, want := range wantParams {
		if got := gotQuery[key]; len(got) != 1 || got[0] != want {
			t.Errorf("param %s = %v, want %q", key, got, want)
		}
	}
}

func TestRecommendationsParsesPipeDelimitedGenres(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"recommendations": [
				{
					"id": 42,
					"mediaType": "show",
					"title": "Severance",
					"overview": "Work-life balance, surgically enforced.",
					"posterPath": "/sev.jpg",
					"voteAverage": 8.4,
					"popularity": 310.2,
					"releaseDate": "2022-02-18",
					"genreIds": "18|9648|junk|878"
				}
			]
		}`))
	})

	items, err := client.Recommendations(context.Background(), recommend.CacheQuery{Limit: 9})
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	item := items[0]
	if item.Type != recommend.ContentTypeShow {
		t.Errorf("Type = %q, want show", item.Type)
	}
	// Malformed segments are skipped, not fatal.
	want := []int{18, 9648, 878}
	if len(item.GenreIDs) != len(want) {
		t.Fatalf("GenreIDs = %v, want %v", item.GenreIDs, want)
	}
	for i := range want {
		if item.GenreIDs[i] != want[i] {
			t.Fatalf("GenreIDs = %v, want %v", item.GenreIDs, want)
		}
	}
}

func TestRecommendationsServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	if _, err := client.Recommendations(context.Background(), recommend.CacheQuery{}); err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}

func TestParseGenreIDs(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"", nil},
		{"28", []int{28}},
		{"28|12|16", []int{28, 12, 16}},
		{" 28 | 12 ", []int{28, 12}},
		{"abc|28", []int{28}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseGenreIDs(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("parseGenreIDs(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("parseGenreIDs(%q) = %v, want %v", tt.in, got, tt.want)
				}
			}
		})
	}
}
