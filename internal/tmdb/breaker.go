// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package tmdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/movierec/movierec/internal/metrics"
	"github.com/movierec/movierec/internal/recommend"
)

// CircuitBreakerClient wraps Client with circuit breaker protection so a
// degraded TMDb cannot stall every aggregation run. An open circuit fails
// tier fetches fast; the orchestrator treats that as zero results from the
// tier and moves on.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient wraps a TMDb client in a circuit breaker.
// The breaker opens after a 60% failure rate over at least 10 requests and
// probes recovery after 2 minutes.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCircuitBreakerClient(client *Client, logger zerolog.Logger) *CircuitBreakerClient {
	cbName := "tmdb-api"
	cbLogger := logger.With().Str("component", "tmdb-breaker").Logger()

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= breakerFailureRatio
			if shouldTrip {
				cbLogger.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			cbLogger.Info().
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: cbName}
}

// Breaker tuning.
const (
	breakerInterval     = time.Minute
	breakerTimeout      = 2 * time.Minute
	breakerMinRequests  = 10
	breakerFailureRatio = 0.6
)

// execute wraps an API call with circuit breaker protection and records
// request metrics by result.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// castResult type-casts a circuit breaker result.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// Discover returns one discovery page with circuit breaker protection.
func (cbc *CircuitBreakerClient) Discover(ctx context.Context, q recommend.DiscoverQuery) ([]recommend.CatalogItem, error) {
	return castResult[[]recommend.CatalogItem](cbc.execute(func() (interface{}, error) {
		return cbc.client.Discover(ctx, q)
	}))
}

// TopRated returns one top-rated page with circuit breaker protection.
func (cbc *CircuitBreakerClient) TopRated(ctx context.Context, ct recommend.ContentType, page int) ([]recommend.CatalogItem, error) {
	return castResult[[]recommend.CatalogItem](cbc.execute(func() (interface{}, error) {
		return cbc.client.TopRated(ctx, ct, page)
	}))
}

// Trending returns one trending page with circuit breaker protection.
func (cbc *CircuitBreakerClient) Trending(ctx context.Context, ct recommend.ContentType, page int) ([]recommend.CatalogItem, error) {
	return castResult[[]recommend.CatalogItem](cbc.execute(func() (interface{}, error) {
		return cbc.client.Trending(ctx, ct, page)
	}))
}

// Details fetches item metadata with circuit breaker protection.
func (cbc *CircuitBreakerClient) Details(ctx context.Context, ct recommend.ContentType, id int) (*recommend.CatalogItem, error) {
	return castResult[*recommend.CatalogItem](cbc.execute(func() (interface{}, error) {
		return cbc.client.Details(ctx, ct, id)
	}))
}

// Search performs a title search with circuit breaker protection.
func (cbc *CircuitBreakerClient) Search(ctx context.Context, ct recommend.ContentType, query string, page int) ([]recommend.CatalogItem, error) {
	return castResult[[]recommend.CatalogItem](cbc.execute(func() (interface{}, error) {
		return cbc.client.Search(ctx, ct, query, page)
	}))
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
