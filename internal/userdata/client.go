// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

// Package userdata implements the client for the external user data store:
// favorites, watchlist, and raw preference records. It implements
// recommend.UserDataProvider.
package userdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/movierec/movierec/internal/config"
	"github.com/movierec/movierec/internal/recommend"
)

// maxErrorBodySize bounds error response reads.
const maxErrorBodySize = 64 * 1024 // 64KB

// maxPreferencesSize bounds preference record reads; records are small
// questionnaire blobs.
const maxPreferencesSize = 1 << 20 // 1MB

// Client talks to the user data store HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates a user data store client from configuration.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewClient(cfg *config.UserDataConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "userdata").Logger(),
	}
}

// wireRef is the favorites/watchlist entry shape.
type wireRef struct {
	ID        int    `json:"id"`
	MediaType string `json:"mediaType"`
}

func (w *wireRef) toMediaRef() recommend.MediaRef {
	ct := recommend.ContentTypeMovie
	if w.MediaType == "show" || w.MediaType == "tv" {
		ct = recommend.ContentTypeShow
	}
	return recommend.MediaRef{ID: w.ID, Type: ct}
}

// Favorites returns the user's favorites list.
func (c *Client) Favorites(ctx context.Context, userID string) ([]recommend.MediaRef, error) {
	return c.fetchRefs(ctx, userID, "favorites")
}

// Watchlist returns the user's watchlist.
func (c *Client) Watchlist(ctx context.Context, userID string) ([]recommend.MediaRef, error) {
	return c.fetchRefs(ctx, userID, "watchlist")
}

// fetchRefs fetches one media-ref list resource for a user.
func (c *Client) fetchRefs(ctx context.Context, userID, resource string) ([]recommend.MediaRef, error) {
	body, err := c.get(ctx, fmt.Sprintf("/users/%s/%s", url.PathEscape(userID), resource))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var wire []wireRef
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", resource, err)
	}

	refs := make([]recommend.MediaRef, len(wire))
	for i := range wire {
		refs[i] = wire[i].toMediaRef()
	}
	return refs, nil
}

// Preferences returns the raw preference record for the user. A missing
// record is (nil, nil); normalization happens downstream.
func (c *Client) Preferences(ctx context.Context, userID string) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("/users/%s/preferences", url.PathEscape(userID)))
}

// get performs a GET returning the raw body; HTTP 404 is (nil, nil).
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("%s request failed with status %d: %s", path, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPreferencesSize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return body, nil
}
