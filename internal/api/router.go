// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers and middleware into the HTTP routing table.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router from a handler set and middleware factory.
func NewRouter(handler *Handler, middleware *Middleware) *Router {
	return &Router{handler: handler, middleware: middleware}
}

// Setup builds the routing table.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())
	r.Use(RequestLogging())

	// Recommendation endpoints, one session per (user, type filter).
	r.Route("/api/v1/users/{userID}/recommendations", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(RequestMetrics())

		r.Get("/", router.handler.Recommendations)
		r.Post("/rotate", router.handler.Rotate)
		r.Post("/refresh", router.handler.Refresh)
		r.Delete("/items/{itemID}", router.handler.RemoveItem)
	})

	// Catalog title search passthrough.
	r.Route("/api/v1/search", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(RequestMetrics())

		r.Get("/", router.handler.Search)
	})

	// Observability.
	r.Get("/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
