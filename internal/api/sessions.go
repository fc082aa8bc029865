// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package api

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/movierec/movierec/internal/recommend"
)

// SessionRegistry creates and reuses one recommend.Session per
// (userID, content-type filter) pair. Sessions hold rotation and exclusion
// state, so the same session must serve all requests for its pair.
type SessionRegistry struct {
	agg      recommend.Aggregator
	users    recommend.UserDataProvider
	store    recommend.BatchStore
	profiles recommend.ProfileCache
	cfg      recommend.SessionConfig
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*recommend.Session
}

// NewSessionRegistry creates a registry. The profile cache may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSessionRegistry(agg recommend.Aggregator, users recommend.UserDataProvider, store recommend.BatchStore, profiles recommend.ProfileCache, cfg recommend.SessionConfig, logger zerolog.Logger) *SessionRegistry {
	return &SessionRegistry{
		agg:      agg,
		users:    users,
		store:    store,
		profiles: profiles,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*recommend.Session),
	}
}

// Session returns the session for the pair, creating it on first use.
func (reg *SessionRegistry) Session(userID string, filter recommend.ContentType) *recommend.Session {
	key := userID + "|" + string(filter)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if s, ok := reg.sessions[key]; ok {
		return s
	}

	s := recommend.NewSession(userID, filter, reg.agg, reg.users, reg.store, reg.profiles, reg.cfg, reg.logger)
	reg.sessions[key] = s
	return s
}

// Lookup returns the session for the pair without creating one.
func (reg *SessionRegistry) Lookup(userID string, filter recommend.ContentType) (*recommend.Session, bool) {
	key := userID + "|" + string(filter)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	s, ok := reg.sessions[key]
	return s, ok
}

// parseFilter maps the type query parameter to a content-type filter. Both
// "either" and an absent parameter mean no restriction, and collapse to the
// same session key.
func parseFilter(s string) (recommend.ContentType, error) {
	switch s {
	case "", string(recommend.ContentTypeEither):
		return "", nil
	case string(recommend.ContentTypeMovie):
		return recommend.ContentTypeMovie, nil
	case string(recommend.ContentTypeShow):
		return recommend.ContentTypeShow, nil
	default:
		return "", fmt.Errorf("invalid content type %q", s)
	}
}
