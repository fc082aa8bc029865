// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

// Package tmdb implements the TMDb catalog collaborator: discovery,
// top-rated, trending, detail, and search lookups with outbound rate
// limiting, HTTP 429 backoff, and circuit breaker protection.
package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/movierec/movierec/internal/config"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics.
const maxErrorBodySize = 64 * 1024 // 64KB

// Client handles communication with the TMDb HTTP API.
//
// Outbound requests pass through a token bucket limiter sized to TMDb's
// published rate limits, and HTTP 429 responses retry with exponential
// backoff honoring Retry-After.
//
// Thread safety: safe for concurrent use; the discovery tier fans out
// parallel page requests through one Client.
type Client struct {
	baseURL        string
	token          string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
	logger         zerolog.Logger
}

// NewClient creates a TMDb API client from configuration.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewClient(cfg *config.TMDBConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:        cfg.BaseURL,
		token:          cfg.AccessToken,
		client:         &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		maxRetries:     5,
		retryBaseDelay: time.Second,
		logger:         logger.With().Str("component", "tmdb").Logger(),
	}
}

// makeRequest performs a GET against the TMDb API and decodes the JSON
// response into result. It waits on the rate limiter first, so callers only
// see latency, never 429 storms of our own making.
func (c *Client) makeRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		return fmt.Errorf("%s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// doRequestWithRateLimit performs an HTTP request with automatic HTTP 429
// handling: exponential backoff (1s, 2s, 4s, ...) honoring Retry-After.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		c.logger.Debug().Dur("delay", delay).Int("attempt", attempt).Msg("rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// readBodyForError reads a bounded prefix of the response body for error
// reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
