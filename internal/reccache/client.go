// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

// Package reccache implements the client for the server-side recommendation
// cache collaborator, the highest-priority aggregation tier. The collaborator
// pre-computes recommendations offline; this client only reads them.
package reccache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/movierec/movierec/internal/config"
	"github.com/movierec/movierec/internal/profile"
	"github.com/movierec/movierec/internal/recommend"
)

// maxErrorBodySize bounds error response reads.
const maxErrorBodySize = 64 * 1024 // 64KB

// Client talks to the recommendation cache HTTP API. It implements
// recommend.CacheProvider.
type Client struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates a recommendation cache client from configuration.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewClient(cfg *config.RecCacheConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "reccache").Logger(),
	}
}

// wireItem is the cache collaborator's result shape. Genre ids arrive as a
// pipe-delimited string.
type wireItem struct {
	ID          int     `json:"id"`
	MediaType   string  `json:"mediaType"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"posterPath"`
	Backdrop    string  `json:"backdropPath"`
	VoteAverage float64 `json:"voteAverage"`
	Popularity  float64 `json:"popularity"`
	ReleaseDate string  `json:"releaseDate"`
	GenreIDs    string  `json:"genreIds"`
}

type recommendationsResponse struct {
	Recommendations []wireItem `json:"recommendations"`
}

// Recommendations returns pre-computed recommendations honoring the
// exclusion list. May return fewer items than requested.
func (c *Client) Recommendations(ctx context.Context, q recommend.CacheQuery) ([]recommend.CatalogItem, error) {
	params := url.Values{}
	if q.ContentType != "" {
		params.Set("contentType", string(q.ContentType))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(q.ExcludeIDs) > 0 {
		params.Set("excludeIds", joinIDs(q.ExcludeIDs))
	}
	if len(q.FavoriteIDs) > 0 {
		params.Set("favoriteIds", joinIDs(q.FavoriteIDs))
	}
	if len(q.WatchlistIDs) > 0 {
		params.Set("watchlistIds", joinIDs(q.WatchlistIDs))
	}
	flattenProfile(params, q.Profile)

	reqURL := c.baseURL + "/recommendations?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recommendations request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("recommendations request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var wire recommendationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode recommendations response: %w", err)
	}

	items := make([]recommend.CatalogItem, 0, len(wire.Recommendations))
	for i := range wire.Recommendations {
		items = append(items, wire.Recommendations[i].toCatalogItem())
	}
	return items, nil
}

// toCatalogItem flattens a wire item, parsing the pipe-delimited genre ids.
func (w *wireItem) toCatalogItem() recommend.CatalogItem {
	ct := recommend.ContentTypeMovie
	if w.MediaType == "show" || w.MediaType == "tv" {
		ct = recommend.ContentTypeShow
	}

	return recommend.CatalogItem{
		ID:           w.ID,
		Type:         ct,
		Title:        w.Title,
		Overview:     w.Overview,
		PosterPath:   w.PosterPath,
		BackdropPath: w.Backdrop,
		VoteAverage:  w.VoteAverage,
		Popularity:   w.Popularity,
		ReleaseDate:  w.ReleaseDate,
		GenreIDs:     parseGenreIDs(w.GenreIDs),
	}
}

// parseGenreIDs splits a pipe-delimited id list, skipping malformed
// segments.
func parseGenreIDs(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// flattenProfile encodes the preference profile as flat query parameters
// the collaborator understands. Genre ratings are sorted by id so request
// URLs are deterministic.
func flattenProfile(params url.Values, p *profile.Profile) {
	if p == nil {
		return
	}

	if p.ContentType != "" {
		params.Set("preferredType", string(p.ContentType))
	}
	if len(p.GenreRatings) > 0 {
		ids := make([]int, 0, len(p.GenreRatings))
		for id := range p.GenreRatings {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		pairs := make([]string, len(ids))
		for i, id := range ids {
			pairs[i] = strconv.Itoa(id) + ":" + strconv.Itoa(p.GenreRatings[id])
		}
		params.Set("genreRatings", strings.Join(pairs, ","))
	}
	if len(p.Moods) > 0 {
		params.Set("moods", strings.Join(p.Moods, ","))
	}
	if p.Era != "" {
		params.Set("era", p.Era)
	}
	if p.Language != "" {
		params.Set("language", p.Language)
	}
	if p.Runtime != "" {
		params.Set("runtime", p.Runtime)
	}
}

// joinIDs renders a sorted, comma-separated id list so request URLs are
// stable regardless of set iteration order.
func joinIDs(ids []int) string {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
