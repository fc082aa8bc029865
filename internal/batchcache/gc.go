// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package batchcache

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// gcDiscardRatio is the minimum reclaimable fraction for a value log file
// to be rewritten.
const gcDiscardRatio = 0.5

// GCService periodically runs Badger value log garbage collection. It
// implements suture.Service and runs under the application supervision
// tree.
type GCService struct {
	store    *Store
	interval time.Duration
	logger   zerolog.Logger
}

// NewGCService creates the garbage collection service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGCService(store *Store, interval time.Duration, logger zerolog.Logger) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("component", "batchcache-gc").Logger(),
	}
}

// Serve runs the GC loop until the context is canceled.
func (g *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g.collect()
		}
	}
}

// collect runs GC passes until Badger reports nothing left to rewrite.
func (g *GCService) collect() {
	for {
		err := g.store.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return
		}
		if err != nil {
			g.logger.Warn().Err(err).Msg("value log GC failed")
			return
		}
		g.logger.Debug().Msg("value log file collected")
	}
}

// String names the service in supervisor logs.
func (g *GCService) String() string {
	return "batchcache-gc"
}
