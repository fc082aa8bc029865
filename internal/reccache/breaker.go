// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package reccache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/movierec/movierec/internal/metrics"
	"github.com/movierec/movierec/internal/recommend"
)

// Breaker tuning. The cache tier is optional, so the breaker trips faster
// than the TMDb one: failing fast here just hands the run to discovery.
const (
	breakerInterval     = time.Minute
	breakerTimeout      = time.Minute
	breakerMinRequests  = 5
	breakerFailureRatio = 0.5
)

// CircuitBreakerClient wraps Client with circuit breaker protection. It
// implements recommend.CacheProvider.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[[]recommend.CatalogItem]
	name   string
}

// NewCircuitBreakerClient wraps a recommendation cache client in a circuit
// breaker.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCircuitBreakerClient(client *Client, logger zerolog.Logger) *CircuitBreakerClient {
	cbName := "reccache-api"
	cbLogger := logger.With().Str("component", "reccache-breaker").Logger()

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]recommend.CatalogItem](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= breakerFailureRatio
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			cbLogger.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: cbName}
}

// Recommendations queries the cache tier with circuit breaker protection.
func (cbc *CircuitBreakerClient) Recommendations(ctx context.Context, q recommend.CacheQuery) ([]recommend.CatalogItem, error) {
	items, err := cbc.cb.Execute(func() ([]recommend.CatalogItem, error) {
		return cbc.client.Recommendations(ctx, q)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return items, nil
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
