// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/movierec/movierec/internal/metrics"
	"github.com/movierec/movierec/internal/profile"
)

// Engine error taxonomy. Only ErrTimeout and ErrAggregationFailed reach the
// UI as errors; exhaustion is the distinct empty state, never an error.
var (
	// ErrFetchInProgress is returned when an aggregation is already in
	// flight for this session.
	ErrFetchInProgress = errors.New("aggregation already in progress")

	// ErrTimeout is returned when a run exceeds the wall-clock budget.
	ErrTimeout = errors.New("aggregation timed out")

	// ErrAggregationFailed is returned after the retry budget is spent.
	ErrAggregationFailed = errors.New("aggregation failed")
)

// State is the session's fetch state machine.
type State int32

// Session states. Transitions: Idle -> Fetching -> {Succeeded, Failed,
// TimedOut}; every terminal state can re-enter Fetching.
const (
	StateIdle State = iota
	StateFetching
	StateSucceeded
	StateFailed
	StateTimedOut
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Aggregator runs one aggregation pass. Implemented by Orchestrator;
// faked in tests.
type Aggregator interface {
	Run(ctx context.Context, req Request) (*Batch, error)
}

// SessionConfig holds supervisor tunables.
type SessionConfig struct {
	// FetchTimeout bounds one full aggregation run, retries included.
	FetchTimeout time.Duration

	// MaxRetries is the retry budget for unexpected errors. Timeouts are
	// never retried: the wall clock is already spent.
	MaxRetries int

	// RetryDelay is the fixed delay between retries.
	RetryDelay time.Duration

	// WindowSize is the display window size.
	WindowSize int

	// HistoryCap bounds the rolling shown-item history.
	HistoryCap int
}

// DefaultSessionConfig returns production defaults: 30s budget, 2 retries
// at 1.5s, windows of 3.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		FetchTimeout: 30 * time.Second,
		MaxRetries:   2,
		RetryDelay:   1500 * time.Millisecond,
		WindowSize:   3,
		HistoryCap:   DefaultHistoryCap,
	}
}

// Session supervises aggregation for one (user, content-type filter) pair:
// it gates concurrent runs, bounds latency, retries transient failures, and
// owns the exclusion tracker and rotation window. It is the interface the
// UI caller consumes.
type Session struct {
	userID string
	filter ContentType

	agg      Aggregator
	users    UserDataProvider
	store    BatchStore
	profiles ProfileCache
	cfg      SessionConfig
	logger   zerolog.Logger

	// fetching is the mutex flag preventing overlapping runs.
	fetching atomic.Bool

	// generation identifies the current run; a timed-out run's late
	// results carry a stale generation and are discarded, never applied.
	generation atomic.Uint64

	mu      sync.Mutex
	state   State
	batch   *Batch
	lastErr error
	empty   bool
	reason  string
	tracker *ExclusionTracker
	window  *Window
}

// NewSession creates a session for one user and content-type filter.
// The profile cache may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSession(userID string, filter ContentType, agg Aggregator, users UserDataProvider, store BatchStore, profiles ProfileCache, cfg SessionConfig, logger zerolog.Logger) *Session {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 3
	}

	tracker := NewExclusionTracker(cfg.HistoryCap)
	return &Session{
		userID:   userID,
		filter:   filter,
		agg:      agg,
		users:    users,
		store:    store,
		profiles: profiles,
		cfg:      cfg,
		logger: logger.With().
			Str("component", "session").
			Str("user_id", userID).
			Str("filter", string(filter)).
			Logger(),
		state:   StateIdle,
		tracker: tracker,
		window:  NewWindow(nil, cfg.WindowSize),
	}
}

// Fetch runs one supervised aggregation. force bypasses the local batch
// cache and the server-side cache tier. Returns true when a non-empty batch
// was applied; false with a nil error is the empty/guidance state.
func (s *Session) Fetch(ctx context.Context, force bool) (bool, error) {
	if !s.fetching.CompareAndSwap(false, true) {
		return false, ErrFetchInProgress
	}
	defer s.fetching.Store(false)

	gen := s.generation.Add(1)
	runID := uuid.New().String()[:8]
	logger := s.logger.With().Str("run_id", runID).Logger()

	s.setState(StateFetching, nil)

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	favorites, watchlist, prof := s.loadUserData(runCtx, logger)
	verdict := profile.Classify(prof, len(favorites), len(watchlist))

	if !verdict.Sufficient && !verdict.BehavioralFallback {
		logger.Debug().Str("tier", string(verdict.Tier)).Msg("preference data insufficient, skipping aggregation")
		s.applyEmpty(verdict.Message)
		return false, nil
	}

	s.tracker.SetLists(RefIDs(favorites), RefIDs(watchlist))

	if !force {
		if cached, err := s.store.Get(s.userID, s.filter); err == nil && !cached.Empty() {
			logger.Debug().Msg("serving batch from local cache")
			s.applyBatch(cached, false)
			return true, nil
		}
	} else {
		if err := s.store.Delete(s.userID, s.filter); err != nil {
			logger.Warn().Err(err).Msg("failed to invalidate cached batch")
		}
	}

	req := Request{
		UserID:         s.userID,
		Filter:         s.filter,
		Profile:        prof,
		Favorites:      favorites,
		Watchlist:      watchlist,
		Exclusions:     s.tracker,
		ForceRefresh:   force,
		BehavioralOnly: !verdict.Sufficient && verdict.BehavioralFallback,
	}

	return s.runSupervised(runCtx, req, gen, logger)
}

// runSupervised executes the aggregation with the retry/timeout policy.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (s *Session) runSupervised(ctx context.Context, req Request, gen uint64, logger zerolog.Logger) (bool, error) {
	var lastErr error

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Info().Int("attempt", attempt).Msg("retrying aggregation")
			select {
			case <-time.After(s.cfg.RetryDelay):
			case <-ctx.Done():
				return s.failTimeout(logger)
			}
		}

		batch, err := s.runOnce(ctx, req, gen)
		if err == nil {
			return s.applyResult(batch, logger), nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) || errors.Is(err, context.Canceled) {
			return s.failTimeout(logger)
		}

		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt).Msg("aggregation attempt failed")
	}

	metrics.Orchestrations.WithLabelValues("error").Inc()
	wrapped := fmt.Errorf("%w: %v", ErrAggregationFailed, lastErr)
	s.setState(StateFailed, wrapped)
	return false, wrapped
}

// runOnce runs the aggregator in a goroutine so a stalled run can be
// abandoned. An abandoned run's late result is discarded rather than
// applied to shared state.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (s *Session) runOnce(ctx context.Context, req Request, gen uint64) (*Batch, error) {
	type result struct {
		batch *Batch
		err   error
	}

	ch := make(chan result, 1)
	go func() {
		b, err := s.agg.Run(ctx, req)
		ch <- result{batch: b, err: err}
	}()

	select {
	case <-ctx.Done():
		// Invalidate the generation so the goroutine's eventual result
		// is dropped.
		s.generation.Add(1)
		return nil, ErrTimeout
	case res := <-ch:
		if s.generation.Load() != gen {
			return nil, ErrTimeout
		}
		return res.batch, res.err
	}
}

// applyResult commits a completed run to session state.
func (s *Session) applyResult(batch *Batch, logger zerolog.Logger) bool {
	if batch.Empty() {
		s.applyEmpty(batch.Reason)
		return false
	}

	if err := s.store.Put(s.userID, s.filter, batch); err != nil {
		logger.Warn().Err(err).Msg("failed to cache batch")
	}

	s.applyBatch(batch, true)
	logger.Info().
		Int("items", len(batch.Items)).
		Str("source", string(batch.Source)).
		Msg("recommendation batch ready")
	return true
}

// failTimeout transitions to the timed-out terminal state. The fetching
// flag is cleared by Fetch's defer, so a future call can proceed.
func (s *Session) failTimeout(logger zerolog.Logger) (bool, error) {
	metrics.Orchestrations.WithLabelValues("timeout").Inc()
	logger.Warn().Msg("aggregation abandoned after timeout")
	s.setState(StateTimedOut, ErrTimeout)
	return false, ErrTimeout
}

// loadUserData fetches favorites, watchlist, and the normalized profile.
// Each fetch is best-effort; the preference record falls back to the local
// profile cache when the user data store is unreachable.
func (s *Session) loadUserData(ctx context.Context, logger zerolog.Logger) ([]MediaRef, []MediaRef, *profile.Profile) {
	favorites, err := s.users.Favorites(ctx, s.userID)
	if err != nil {
		logger.Warn().Err(err).Msg("favorites fetch failed")
		favorites = nil
	}

	watchlist, err := s.users.Watchlist(ctx, s.userID)
	if err != nil {
		logger.Warn().Err(err).Msg("watchlist fetch failed")
		watchlist = nil
	}

	raw, err := s.users.Preferences(ctx, s.userID)
	switch {
	case err != nil && s.profiles != nil:
		logger.Warn().Err(err).Msg("preferences fetch failed, using local fallback")
		raw, _ = s.profiles.Profile(s.userID)
	case err == nil && len(raw) > 0 && s.profiles != nil:
		if putErr := s.profiles.PutProfile(s.userID, raw); putErr != nil {
			logger.Debug().Err(putErr).Msg("profile fallback write failed")
		}
	}

	prof, err := profile.Normalize(raw)
	if err != nil {
		logger.Warn().Err(err).Msg("malformed preference record, treating as absent")
		return favorites, watchlist, nil
	}

	return favorites, watchlist, prof
}

// applyBatch installs a batch as current state and records its ids in the
// rolling history. recordShown is false when re-serving an already-recorded
// cached batch.
func (s *Session) applyBatch(batch *Batch, recordShown bool) {
	if recordShown {
		s.tracker.RecordShown(batch.IDs())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateSucceeded
	s.batch = batch
	s.lastErr = nil
	s.empty = false
	s.reason = batch.Reason
	s.window.Reset(batch)
}

// applyEmpty installs the explicit no-recommendations state.
func (s *Session) applyEmpty(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateSucceeded
	s.batch = nil
	s.lastErr = nil
	s.empty = true
	s.reason = reason
	s.window.Reset(nil)
}

// setState records a state transition.
func (s *Session) setState(state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.lastErr = err
}

// Rotate advances the display window without fetching.
func (s *Session) Rotate() []ScoredItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Rotate()
}

// Refresh forces a full re-aggregation, bypassing rotation and the
// cache-hit path.
func (s *Session) Refresh(ctx context.Context) (bool, error) {
	return s.Fetch(ctx, true)
}

// RemoveItem strips an id from the current batch and window within the same
// call, and records it in history so it can never resurface. Used when an
// item is favorited or watch-listed during display. No re-fetch happens.
func (s *Session) RemoveItem(id int) bool {
	s.tracker.MarkActioned(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.window.Remove(id)

	if s.batch != nil {
		items := s.batch.Items[:0:0]
		for _, it := range s.batch.Items {
			if it.ID != id {
				items = append(items, it)
			}
		}
		if len(items) != len(s.batch.Items) {
			updated := *s.batch
			updated.Items = items
			s.batch = &updated
			removed = true

			// Keep the cached copy consistent so a cache hit after
			// restart cannot resurface the item.
			if err := s.store.Put(s.userID, s.filter, s.batch); err != nil {
				s.logger.Debug().Err(err).Msg("failed to update cached batch after removal")
			}
		}
	}

	return removed
}

// Current returns the items in the current display window.
func (s *Session) Current() []ScoredItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Current()
}

// Batch returns the current batch, or nil.
func (s *Session) Batch() *Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch
}

// Source returns the current batch's source tag.
func (s *Session) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return SourceNone
	}
	return s.batch.Source
}

// Reason returns the user-facing reason or guidance message.
func (s *Session) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Loading reports whether an aggregation is in flight.
func (s *Session) Loading() bool {
	return s.fetching.Load()
}

// Err returns the last terminal error, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Empty reports the explicit no-recommendations state.
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.empty
}

// State returns the current fetch state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tracker exposes the session's exclusion tracker.
func (s *Session) Tracker() *ExclusionTracker {
	return s.tracker
}
