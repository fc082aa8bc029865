// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/movierec/movierec/internal/recommend"
)

// minVoteCount filters out barely-rated discovery results whose vote
// average is statistically meaningless.
const minVoteCount = 100

// pagedResponse is the common TMDb list wrapper.
type pagedResponse struct {
	Page         int        `json:"page"`
	Results      []wireItem `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

// wireItem covers both movie and TV result shapes. Movies carry title and
// release_date; shows carry name and first_air_date.
type wireItem struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
	Popularity   float64 `json:"popularity"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	GenreIDs     []int   `json:"genre_ids"`

	// Genres is populated on detail responses instead of genre_ids.
	Genres []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// toCatalogItem flattens a wire item into the engine's canonical shape.
func (w *wireItem) toCatalogItem(ct recommend.ContentType) recommend.CatalogItem {
	item := recommend.CatalogItem{
		ID:           w.ID,
		Type:         ct,
		Title:        w.Title,
		Overview:     w.Overview,
		PosterPath:   w.PosterPath,
		BackdropPath: w.BackdropPath,
		VoteAverage:  w.VoteAverage,
		Popularity:   w.Popularity,
		ReleaseDate:  w.ReleaseDate,
		GenreIDs:     w.GenreIDs,
	}
	if item.Title == "" {
		item.Title = w.Name
	}
	if item.ReleaseDate == "" {
		item.ReleaseDate = w.FirstAirDate
	}
	if len(item.GenreIDs) == 0 && len(w.Genres) > 0 {
		ids := make([]int, len(w.Genres))
		for i, g := range w.Genres {
			ids[i] = g.ID
		}
		item.GenreIDs = ids
	}
	return item
}

func toCatalogItems(results []wireItem, ct recommend.ContentType) []recommend.CatalogItem {
	items := make([]recommend.CatalogItem, len(results))
	for i := range results {
		items[i] = results[i].toCatalogItem(ct)
	}
	return items
}

// mediaPath maps a content type to the TMDb URL segment. The engine always
// derives a concrete type before querying; either defaults to movie.
func mediaPath(ct recommend.ContentType) string {
	if ct == recommend.ContentTypeShow {
		return "tv"
	}
	return "movie"
}

// Discover returns one page of items matching the query, sorted by
// descending popularity.
func (c *Client) Discover(ctx context.Context, q recommend.DiscoverQuery) ([]recommend.CatalogItem, error) {
	media := mediaPath(q.ContentType)
	ct := recommend.ContentTypeMovie
	if media == "tv" {
		ct = recommend.ContentTypeShow
	}

	params := url.Values{}
	params.Set("sort_by", "popularity.desc")
	params.Set("include_adult", "false")
	params.Set("vote_count.gte", strconv.Itoa(minVoteCount))
	params.Set("page", strconv.Itoa(q.Page))

	if len(q.GenreIDs) > 0 {
		// Pipe-separated genre ids are OR-matched by TMDb.
		ids := make([]string, len(q.GenreIDs))
		for i, id := range q.GenreIDs {
			ids[i] = strconv.Itoa(id)
		}
		params.Set("with_genres", strings.Join(ids, "|"))
	}

	if q.Language != "" {
		params.Set("with_original_language", q.Language)
	}

	// Movies and shows use different release date parameter names.
	dateGte, dateLte := "primary_release_date.gte", "primary_release_date.lte"
	if media == "tv" {
		dateGte, dateLte = "first_air_date.gte", "first_air_date.lte"
	}
	if q.ReleaseAfter != "" {
		params.Set(dateGte, q.ReleaseAfter)
	}
	if q.ReleaseBefore != "" {
		params.Set(dateLte, q.ReleaseBefore)
	}

	if q.RuntimeMin > 0 {
		params.Set("with_runtime.gte", strconv.Itoa(q.RuntimeMin))
	}
	if q.RuntimeMax > 0 {
		params.Set("with_runtime.lte", strconv.Itoa(q.RuntimeMax))
	}

	var resp pagedResponse
	if err := c.makeRequest(ctx, "/discover/"+media, params, &resp); err != nil {
		return nil, err
	}
	return toCatalogItems(resp.Results, ct), nil
}

// TopRated returns one page of top-rated items of the given type.
func (c *Client) TopRated(ctx context.Context, ct recommend.ContentType, page int) ([]recommend.CatalogItem, error) {
	media := mediaPath(ct)
	resolved := recommend.ContentTypeMovie
	if media == "tv" {
		resolved = recommend.ContentTypeShow
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	var resp pagedResponse
	if err := c.makeRequest(ctx, "/"+media+"/top_rated", params, &resp); err != nil {
		return nil, err
	}
	return toCatalogItems(resp.Results, resolved), nil
}

// Trending returns one page of this week's trending items.
func (c *Client) Trending(ctx context.Context, ct recommend.ContentType, page int) ([]recommend.CatalogItem, error) {
	media := mediaPath(ct)
	resolved := recommend.ContentTypeMovie
	if media == "tv" {
		resolved = recommend.ContentTypeShow
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	var resp pagedResponse
	if err := c.makeRequest(ctx, "/trending/"+media+"/week", params, &resp); err != nil {
		return nil, err
	}
	return toCatalogItems(resp.Results, resolved), nil
}

// Details fetches full metadata for a single item. Detail responses embed
// full genre objects rather than genre_ids.
func (c *Client) Details(ctx context.Context, ct recommend.ContentType, id int) (*recommend.CatalogItem, error) {
	media := mediaPath(ct)
	resolved := recommend.ContentTypeMovie
	if media == "tv" {
		resolved = recommend.ContentTypeShow
	}

	var w wireItem
	if err := c.makeRequest(ctx, fmt.Sprintf("/%s/%d", media, id), nil, &w); err != nil {
		return nil, err
	}
	item := w.toCatalogItem(resolved)
	return &item, nil
}

// Search performs a title search. An either/empty content type searches
// movies; callers wanting both types issue two searches.
func (c *Client) Search(ctx context.Context, ct recommend.ContentType, query string, page int) ([]recommend.CatalogItem, error) {
	media := mediaPath(ct)
	resolved := recommend.ContentTypeMovie
	if media == "tv" {
		resolved = recommend.ContentTypeShow
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	params.Set("page", strconv.Itoa(page))

	var resp pagedResponse
	if err := c.makeRequest(ctx, "/search/"+media, params, &resp); err != nil {
		return nil, err
	}
	return toCatalogItems(resp.Results, resolved), nil
}
