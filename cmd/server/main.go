// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

// Package main is the entry point for the Movierec server.
//
// Movierec aggregates personalized movie and TV recommendations from a
// server-side recommendation cache, TMDb catalog discovery, and an external
// user data store, scores and caches them locally, and serves them through
// a small HTTP API.
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered loading (defaults, config.yaml,
//     environment variables).
//  2. Logging: zerolog, JSON or console format.
//  3. Local batch cache: BadgerDB with TTL expiry and a supervised value
//     log garbage collector.
//  4. Collaborator clients: TMDb catalog (rate limited, circuit broken),
//     optional recommendation cache, user data store.
//  5. Aggregation engine: tiered fetch orchestrator plus per-user session
//     supervisors.
//  6. HTTP server: Chi router under a suture supervision tree.
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests within the shutdown
// timeout, and closes the batch cache.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/movierec/movierec/internal/api"
	"github.com/movierec/movierec/internal/batchcache"
	"github.com/movierec/movierec/internal/config"
	"github.com/movierec/movierec/internal/logging"
	"github.com/movierec/movierec/internal/reccache"
	"github.com/movierec/movierec/internal/recommend"
	"github.com/movierec/movierec/internal/supervisor"
	"github.com/movierec/movierec/internal/tmdb"
	"github.com/movierec/movierec/internal/userdata"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("starting movierec")

	store, err := batchcache.Open(batchcache.Options{
		Path: cfg.Cache.Path,
		TTL:  cfg.Cache.TTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("open batch cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing batch cache")
		}
	}()

	// Collaborator clients.
	catalog := tmdb.NewCircuitBreakerClient(tmdb.NewClient(&cfg.TMDB, logger), logger)
	users := userdata.NewClient(&cfg.UserData, logger)

	var cache recommend.CacheProvider
	if cfg.RecCache.Enabled {
		cache = reccache.NewCircuitBreakerClient(reccache.NewClient(&cfg.RecCache, logger), logger)
		logger.Info().Str("url", cfg.RecCache.URL).Msg("recommendation cache tier enabled")
	} else {
		logger.Info().Msg("recommendation cache tier disabled, starting at discovery tier")
	}

	orch, err := recommend.NewOrchestrator(cache, catalog, recommend.OrchestratorConfig{
		BatchSize:          cfg.Engine.BatchSize,
		MinResults:         cfg.Engine.MinResults,
		DiscoverPages:      cfg.Engine.DiscoverPages,
		SupplementaryPages: cfg.Engine.SupplementaryPages,
		OverRequestFactor:  cfg.Engine.OverRequestFactor,
		Seed:               cfg.Engine.Seed,
	}, logger)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	sessionCfg := recommend.SessionConfig{
		FetchTimeout: cfg.Engine.FetchTimeout,
		MaxRetries:   cfg.Engine.MaxRetries,
		RetryDelay:   cfg.Engine.RetryDelay,
		WindowSize:   cfg.Engine.WindowSize,
		HistoryCap:   cfg.Engine.HistoryCap,
	}

	// The batch store doubles as the local profile fallback cache.
	registry := api.NewSessionRegistry(orch, users, store, store, sessionCfg, logger)
	handler := api.NewHandler(registry, catalog, logger)
	router := api.NewRouter(handler, api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.API.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.API.RateLimitReqs,
		RateLimitWindow:    cfg.API.RateLimitWindow,
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(logging.Slogger(), supervisor.DefaultTreeConfig())
	tree.Add(supervisor.NewHTTPService(server, 10*time.Second, logger))
	tree.Add(batchcache.NewGCService(store, cfg.Cache.GCInterval, logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = <-tree.ServeBackground(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop within timeout")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
