// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeAggregator implements Aggregator with scriptable results.
type fakeAggregator struct {
	mu        sync.Mutex
	calls     int
	requests  []Request
	batch     *Batch
	err       error
	failFirst int
	block     chan struct{}
}

func (f *fakeAggregator) Run(ctx context.Context, req Request) (*Batch, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.requests = append(f.requests, req)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if n <= f.failFirst {
		return nil, f.err
	}
	return f.batch, nil
}

func (f *fakeAggregator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAggregator) lastRequest() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// memStore implements BatchStore in memory.
type memStore struct {
	mu      sync.Mutex
	batches map[string]*Batch
	puts    int
	deletes int
}

func newMemStore() *memStore {
	return &memStore{batches: make(map[string]*Batch)}
}

func (s *memStore) key(userID string, filter ContentType) string {
	return userID + "|" + string(filter)
}

func (s *memStore) Get(userID string, filter ContentType) (*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[s.key(userID, filter)], nil
}

func (s *memStore) Put(userID string, filter ContentType, b *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.batches[s.key(userID, filter)] = b
	return nil
}

func (s *memStore) Delete(userID string, filter ContentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.batches, s.key(userID, filter))
	return nil
}

// stubUsers implements UserDataProvider.
type stubUsers struct {
	favorites []MediaRef
	watchlist []MediaRef
	prefs     []byte
	prefsErr  error
}

func (s *stubUsers) Favorites(_ context.Context, _ string) ([]MediaRef, error) {
	return s.favorites, nil
}

func (s *stubUsers) Watchlist(_ context.Context, _ string) ([]MediaRef, error) {
	return s.watchlist, nil
}

func (s *stubUsers) Preferences(_ context.Context, _ string) ([]byte, error) {
	return s.prefs, s.prefsErr
}

// memProfiles implements ProfileCache in memory.
type memProfiles struct {
	mu   sync.Mutex
	raw  map[string][]byte
	gets int
	puts int
}

func newMemProfiles() *memProfiles {
	return &memProfiles{raw: make(map[string][]byte)}
}

func (p *memProfiles) Profile(userID string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gets++
	return p.raw[userID], nil
}

func (p *memProfiles) PutProfile(userID string, raw []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.puts++
	p.raw[userID] = raw
	return nil
}

var completePrefs = []byte(`{"completed":true,"contentType":"movie","genreRatings":{"28":8,"35":7,"18":9},"moods":["exciting"],"era":"recent","language":"en","runtime":"medium"}`)

func sessionBatch(ids ...int) *Batch {
	items := make([]ScoredItem, len(ids))
	for i, id := range ids {
		items[i] = ScoredItem{
			CatalogItem: testItem(id, 7),
			Score:       70,
			Source:      SourcePreferenceMatch,
			Reason:      SourcePreferenceMatch.Reason(),
		}
	}
	return &Batch{
		Items:     items,
		Source:    SourcePreferenceMatch,
		Reason:    SourcePreferenceMatch.Reason(),
		CreatedAt: time.Now(),
	}
}

func sessionConfig() SessionConfig {
	return SessionConfig{
		FetchTimeout: 5 * time.Second,
		MaxRetries:   2,
		RetryDelay:   time.Millisecond,
		WindowSize:   3,
		HistoryCap:   150,
	}
}

func newTestSession(agg Aggregator, users UserDataProvider, store BatchStore, profiles ProfileCache) *Session {
	return NewSession("user-1", ContentTypeMovie, agg, users, store, profiles, sessionConfig(), zerolog.Nop())
}

func refs(ids ...int) []MediaRef {
	out := make([]MediaRef, len(ids))
	for i, id := range ids {
		out[i] = MediaRef{ID: id, Type: ContentTypeMovie}
	}
	return out
}

func TestFetchInsufficientPreferencesSkipsAggregation(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3)}
	s := newTestSession(agg, &stubUsers{}, newMemStore(), nil)

	ok, err := s.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if ok {
		t.Error("Fetch() = true, want false")
	}
	if agg.callCount() != 0 {
		t.Errorf("aggregator called %d times, want 0", agg.callCount())
	}
	if !s.Empty() {
		t.Error("Empty() = false, want true")
	}
	if s.Reason() == "" {
		t.Error("Reason() empty, want onboarding guidance")
	}
	if s.Source() != SourceNone {
		t.Errorf("Source() = %q, want %q", s.Source(), SourceNone)
	}
}

func TestFetchBehavioralFallback(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3)}
	users := &stubUsers{favorites: refs(10, 11, 12), watchlist: refs(13, 14)}
	s := newTestSession(agg, users, newMemStore(), nil)

	ok, err := s.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !ok {
		t.Fatal("Fetch() = false, want true")
	}

	req := agg.lastRequest()
	if !req.BehavioralOnly {
		t.Error("BehavioralOnly = false, want true")
	}
	if req.Profile != nil {
		t.Error("Profile should be nil in a behavioral run")
	}
}

func TestFetchSuccess(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3, 4, 5, 6, 7, 8, 9)}
	users := &stubUsers{prefs: completePrefs}
	store := newMemStore()
	s := newTestSession(agg, users, store, nil)

	ok, err := s.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !ok {
		t.Fatal("Fetch() = false, want true")
	}

	if s.State() != StateSucceeded {
		t.Errorf("State() = %v, want %v", s.State(), StateSucceeded)
	}
	if got := s.Batch(); got == nil || len(got.Items) != 9 {
		t.Fatalf("Batch() = %v, want 9 items", got)
	}
	assertIDs(t, s.Current(), 1, 2, 3)

	// The batch is cached and its ids enter the exclusion history.
	if cached, _ := store.Get("user-1", ContentTypeMovie); cached.Empty() {
		t.Error("batch not cached")
	}
	if got := s.Tracker().HistoryLen(); got != 9 {
		t.Errorf("HistoryLen() = %d, want 9", got)
	}
}

func TestFetchEmptyBatchIsNotAnError(t *testing.T) {
	agg := &fakeAggregator{batch: &Batch{Items: []ScoredItem{}, Source: SourceNone, Reason: SourceNone.Reason()}}
	users := &stubUsers{prefs: completePrefs}
	store := newMemStore()
	s := newTestSession(agg, users, store, nil)

	ok, err := s.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if ok {
		t.Error("Fetch() = true, want false")
	}
	if !s.Empty() {
		t.Error("Empty() = false, want true")
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil", s.Err())
	}
	// Empty batches are never cached.
	if store.puts != 0 {
		t.Errorf("store puts = %d, want 0", store.puts)
	}
}

func TestFetchServesCachedBatch(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3)}
	users := &stubUsers{prefs: completePrefs}
	store := newMemStore()
	_ = store.Put("user-1", ContentTypeMovie, sessionBatch(7, 8, 9))
	store.puts = 0
	s := newTestSession(agg, users, store, nil)

	ok, err := s.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !ok {
		t.Fatal("Fetch() = false, want true")
	}

	if agg.callCount() != 0 {
		t.Errorf("aggregator called %d times, want 0", agg.callCount())
	}
	assertIDs(t, s.Current(), 7, 8, 9)
}

func TestFetchForceBypassesCache(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3)}
	users := &stubUsers{prefs: completePrefs}
	store := newMemStore()
	_ = store.Put("user-1", ContentTypeMovie, sessionBatch(7, 8, 9))
	s := newTestSession(agg, users, store, nil)

	ok, err := s.Fetch(context.Background(), true)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !ok {
		t.Fatal("Fetch() = false, want true")
	}

	if store.deletes != 1 {
		t.Errorf("store deletes = %d, want 1", store.deletes)
	}
	if agg.callCount() != 1 {
		t.Errorf("aggregator called %d times, want 1", agg.callCount())
	}
	assertIDs(t, s.Current(), 1, 2, 3)
}

func TestFetchRejectsConcurrentRuns(t *testing.T) {
	block := make(chan struct{})
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3), block: block}
	users := &stubUsers{prefs: completePrefs}
	s := newTestSession(agg, users, newMemStore(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Fetch(context.Background(), false)
		done <- err
	}()

	// Wait for the first fetch to take the flag.
	deadline := time.Now().Add(2 * time.Second)
	for !s.Loading() {
		if time.Now().After(deadline) {
			t.Fatal("first fetch never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.Fetch(context.Background(), false); !errors.Is(err, ErrFetchInProgress) {
		t.Errorf("second Fetch() error = %v, want ErrFetchInProgress", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
}

func TestFetchTimesOut(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3), block: make(chan struct{})}
	users := &stubUsers{prefs: completePrefs}
	cfg := sessionConfig()
	cfg.FetchTimeout = 20 * time.Millisecond
	s := NewSession("user-1", ContentTypeMovie, agg, users, newMemStore(), nil, cfg, zerolog.Nop())

	_, err := s.Fetch(context.Background(), false)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Fetch() error = %v, want ErrTimeout", err)
	}
	if s.State() != StateTimedOut {
		t.Errorf("State() = %v, want %v", s.State(), StateTimedOut)
	}
	if s.Batch() != nil {
		t.Error("stale batch applied after timeout")
	}
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	agg := &fakeAggregator{
		batch:     sessionBatch(1, 2, 3),
		err:       errUpstream,
		failFirst: 2,
	}
	users := &stubUsers{prefs: completePrefs}
	s := newTestSession(agg, users, newMemStore(), nil)

	ok, err := s.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !ok {
		t.Fatal("Fetch() = false, want true")
	}
	if agg.callCount() != 3 {
		t.Errorf("aggregator called %d times, want 3", agg.callCount())
	}
}

func TestFetchRetryBudgetExhausted(t *testing.T) {
	agg := &fakeAggregator{err: errUpstream, failFirst: 100}
	users := &stubUsers{prefs: completePrefs}
	s := newTestSession(agg, users, newMemStore(), nil)

	_, err := s.Fetch(context.Background(), false)

	if !errors.Is(err, ErrAggregationFailed) {
		t.Fatalf("Fetch() error = %v, want ErrAggregationFailed", err)
	}
	if s.State() != StateFailed {
		t.Errorf("State() = %v, want %v", s.State(), StateFailed)
	}
	if agg.callCount() != sessionConfig().MaxRetries+1 {
		t.Errorf("aggregator called %d times, want %d", agg.callCount(), sessionConfig().MaxRetries+1)
	}
}

func TestRemoveItemSameTick(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3, 4, 5, 6, 7, 8, 9)}
	users := &stubUsers{prefs: completePrefs}
	store := newMemStore()
	s := newTestSession(agg, users, store, nil)

	if _, err := s.Fetch(context.Background(), false); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if !s.RemoveItem(2) {
		t.Fatal("RemoveItem(2) = false, want true")
	}

	// Gone from the window, the batch, the cache, and excluded forever.
	assertIDs(t, s.Current(), 1, 3, 4)
	if got := len(s.Batch().Items); got != 8 {
		t.Errorf("batch items = %d, want 8", got)
	}
	if cached, _ := store.Get("user-1", ContentTypeMovie); len(cached.Items) != 8 {
		t.Errorf("cached items = %d, want 8", len(cached.Items))
	}
	if !s.Tracker().Excluded(2) {
		t.Error("removed id not excluded")
	}
}

func TestRotateAdvancesWindow(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3, 4, 5, 6, 7, 8, 9)}
	users := &stubUsers{prefs: completePrefs}
	s := newTestSession(agg, users, newMemStore(), nil)

	if _, err := s.Fetch(context.Background(), false); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	assertIDs(t, s.Rotate(), 4, 5, 6)
	assertIDs(t, s.Rotate(), 7, 8, 9)
	assertIDs(t, s.Rotate(), 1, 2, 3)

	// Rotation never re-fetches.
	if agg.callCount() != 1 {
		t.Errorf("aggregator called %d times, want 1", agg.callCount())
	}
}

func TestFetchProfileFallback(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3)}
	users := &stubUsers{prefsErr: errUpstream}
	profiles := newMemProfiles()
	_ = profiles.PutProfile("user-1", completePrefs)
	profiles.puts = 0
	s := newTestSession(agg, users, newMemStore(), profiles)

	ok, err := s.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !ok {
		t.Fatal("Fetch() = false, want true")
	}

	if profiles.gets == 0 {
		t.Error("profile fallback never consulted")
	}
	req := agg.lastRequest()
	if req.Profile == nil {
		t.Fatal("fallback profile not used")
	}
	if req.BehavioralOnly {
		t.Error("BehavioralOnly = true, want false")
	}
}

func TestFetchProfileWriteThrough(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3)}
	users := &stubUsers{prefs: completePrefs}
	profiles := newMemProfiles()
	s := newTestSession(agg, users, newMemStore(), profiles)

	if _, err := s.Fetch(context.Background(), false); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if profiles.puts != 1 {
		t.Errorf("profile puts = %d, want 1", profiles.puts)
	}
}

func TestFetchMalformedPreferencesTreatedAsAbsent(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3)}
	users := &stubUsers{prefs: []byte(`{not json`)}
	s := newTestSession(agg, users, newMemStore(), nil)

	ok, err := s.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if ok {
		t.Error("Fetch() = true, want false")
	}
	if !s.Empty() {
		t.Error("Empty() = false, want true")
	}
	if agg.callCount() != 0 {
		t.Errorf("aggregator called %d times, want 0", agg.callCount())
	}
}

func TestRefreshForcesReaggregation(t *testing.T) {
	agg := &fakeAggregator{batch: sessionBatch(1, 2, 3)}
	users := &stubUsers{prefs: completePrefs}
	store := newMemStore()
	_ = store.Put("user-1", ContentTypeMovie, sessionBatch(7, 8, 9))
	s := newTestSession(agg, users, store, nil)

	ok, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !ok {
		t.Fatal("Refresh() = false, want true")
	}

	if agg.callCount() != 1 {
		t.Errorf("aggregator called %d times, want 1", agg.callCount())
	}
	assertIDs(t, s.Current(), 1, 2, 3)
}
