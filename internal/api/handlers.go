// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/movierec/movierec/internal/recommend"
)

// Searcher is the catalog title search collaborator.
type Searcher interface {
	Search(ctx context.Context, ct recommend.ContentType, query string, page int) ([]recommend.CatalogItem, error)
}

// Handler implements the recommendation HTTP endpoints.
type Handler struct {
	sessions *SessionRegistry
	search   Searcher
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewHandler creates the endpoint handler set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(sessions *SessionRegistry, search Searcher, logger zerolog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		search:   search,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// recommendationView is the session state payload returned by the
// recommendation endpoints.
type recommendationView struct {
	// Items is the current rotation window, not the full batch.
	Items []recommend.ScoredItem `json:"items"`

	Source recommend.Source `json:"source"`
	Reason string           `json:"reason"`

	// BatchSize is the size of the underlying batch the window pages over.
	BatchSize int `json:"batch_size"`

	Empty   bool   `json:"empty"`
	Loading bool   `json:"loading"`
	State   string `json:"state"`
}

func sessionView(s *recommend.Session) recommendationView {
	view := recommendationView{
		Items:   s.Current(),
		Source:  s.Source(),
		Reason:  s.Reason(),
		Empty:   s.Empty(),
		Loading: s.Loading(),
		State:   s.State().String(),
	}
	if view.Items == nil {
		view.Items = []recommend.ScoredItem{}
	}
	if b := s.Batch(); b != nil {
		view.BatchSize = len(b.Items)
	}
	return view
}

// Recommendations handles GET /api/v1/users/{userID}/recommendations.
// It runs an aggregation if needed and returns the current window. The
// refresh=true query parameter bypasses the cache tiers.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		rw.BadRequest("user id is required")
		return
	}

	filter, err := parseFilter(r.URL.Query().Get("type"))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	force := r.URL.Query().Get("refresh") == "true"

	session := h.sessions.Session(userID, filter)
	if _, err := session.Fetch(r.Context(), force); err != nil {
		h.respondFetchError(rw, err)
		return
	}

	rw.Success(sessionView(session))
}

// Refresh handles POST /api/v1/users/{userID}/recommendations/refresh.
// It forces a fresh aggregation, bypassing local and server-side caches.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		rw.BadRequest("user id is required")
		return
	}

	filter, err := parseFilter(r.URL.Query().Get("type"))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	session := h.sessions.Session(userID, filter)
	if _, err := session.Refresh(r.Context()); err != nil {
		h.respondFetchError(rw, err)
		return
	}

	rw.Success(sessionView(session))
}

// Rotate handles POST /api/v1/users/{userID}/recommendations/rotate.
// It advances the rotation window over the already-fetched batch.
func (h *Handler) Rotate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		rw.BadRequest("user id is required")
		return
	}

	filter, err := parseFilter(r.URL.Query().Get("type"))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	session, ok := h.sessions.Lookup(userID, filter)
	if !ok || session.Batch() == nil {
		rw.NotFound("no active recommendation batch")
		return
	}

	session.Rotate()
	rw.Success(sessionView(session))
}

// RemoveItem handles DELETE /api/v1/users/{userID}/recommendations/items/{itemID}.
// The removed item is excluded from future batches and the window backfills
// from the remaining batch.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		rw.BadRequest("user id is required")
		return
	}

	itemID, err := strconv.Atoi(chi.URLParam(r, "itemID"))
	if err != nil {
		rw.BadRequest("item id must be an integer")
		return
	}

	filter, err := parseFilter(r.URL.Query().Get("type"))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	session, ok := h.sessions.Lookup(userID, filter)
	if !ok || session.Batch() == nil {
		rw.NotFound("no active recommendation batch")
		return
	}

	if !session.RemoveItem(itemID) {
		rw.NotFound("item not in current batch")
		return
	}

	rw.Success(sessionView(session))
}

// searchParams are the validated query parameters for Search.
type searchParams struct {
	Query string `validate:"required,min=1,max=200"`
	Type  string `validate:"omitempty,oneof=movie show"`
	Page  int    `validate:"min=1,max=500"`
}

// searchResult is the Search response payload.
type searchResult struct {
	Query   string                  `json:"query"`
	Results []recommend.CatalogItem `json:"results"`
}

// Search handles GET /api/v1/search: a catalog title search passthrough.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	params := searchParams{
		Query: r.URL.Query().Get("query"),
		Type:  r.URL.Query().Get("type"),
		Page:  1,
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("page must be an integer")
			return
		}
		params.Page = page
	}

	if err := h.validate.Struct(&params); err != nil {
		rw.ValidationError("invalid search parameters", err.Error())
		return
	}

	items, err := h.search.Search(r.Context(), recommend.ContentType(params.Type), params.Query, params.Page)
	if err != nil {
		rw.ExternalServiceError("catalog", err)
		return
	}
	if items == nil {
		items = []recommend.CatalogItem{}
	}

	rw.Success(searchResult{Query: params.Query, Results: items})
}

// healthResponse is the Health response payload.
type healthResponse struct {
	Status string `json:"status"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(healthResponse{Status: "ok"})
}

// respondFetchError maps session fetch errors to HTTP statuses: an
// in-progress fetch is a conflict, a timeout is a gateway timeout, and an
// exhausted retry budget is an internal error.
func (h *Handler) respondFetchError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommend.ErrFetchInProgress):
		rw.Conflict("a fetch is already in progress for this user")
	case errors.Is(err, recommend.ErrTimeout):
		rw.GatewayTimeout("recommendation aggregation timed out")
	default:
		rw.InternalError("recommendation aggregation failed")
	}
}
