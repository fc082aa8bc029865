// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package recommend

import (
	"sync"
)

// DefaultHistoryCap bounds the rolling shown-item history.
const DefaultHistoryCap = 150

// ExclusionTracker maintains the rolling set of item ids that must not
// reappear in recommendations: favorites, watchlist, and a bounded FIFO
// history of previously shown ids.
//
// It is safe for concurrent use: an in-flight aggregation reads it while UI
// actions (favoriting a displayed item) mutate it.
type ExclusionTracker struct {
	mu sync.Mutex

	favorites map[int]struct{}
	watchlist map[int]struct{}

	// history is FIFO by insertion; historySet mirrors it for O(1) lookup.
	history    []int
	historySet map[int]struct{}
	cap        int
}

// NewExclusionTracker creates a tracker with the given history cap.
// A non-positive cap uses DefaultHistoryCap.
func NewExclusionTracker(historyCap int) *ExclusionTracker {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &ExclusionTracker{
		favorites:  make(map[int]struct{}),
		watchlist:  make(map[int]struct{}),
		historySet: make(map[int]struct{}),
		cap:        historyCap,
	}
}

// SetLists replaces the favorites and watchlist id sets. Called at the start
// of each aggregation with freshly fetched lists.
func (t *ExclusionTracker) SetLists(favorites, watchlist []int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.favorites = make(map[int]struct{}, len(favorites))
	for _, id := range favorites {
		t.favorites[id] = struct{}{}
	}
	t.watchlist = make(map[int]struct{}, len(watchlist))
	for _, id := range watchlist {
		t.watchlist[id] = struct{}{}
	}
}

// Union returns a new exclusion set combining favorites, watchlist, rolling
// history, and any extra id sets (e.g. items already picked in this run).
func (t *ExclusionTracker) Union(extra ...[]int) map[int]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[int]struct{}, len(t.favorites)+len(t.watchlist)+len(t.history))
	for id := range t.favorites {
		out[id] = struct{}{}
	}
	for id := range t.watchlist {
		out[id] = struct{}{}
	}
	for _, id := range t.history {
		out[id] = struct{}{}
	}
	for _, set := range extra {
		for _, id := range set {
			out[id] = struct{}{}
		}
	}
	return out
}

// Excluded reports whether an id must not appear in output.
func (t *ExclusionTracker) Excluded(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.favorites[id]; ok {
		return true
	}
	if _, ok := t.watchlist[id]; ok {
		return true
	}
	_, ok := t.historySet[id]
	return ok
}

// RecordShown appends ids to the rolling history, then truncates to the cap,
// discarding the oldest entries first.
func (t *ExclusionTracker) RecordShown(ids []int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendLocked(ids)
}

// MarkActioned records an id that was favorited or watch-listed during
// display. It enters the history immediately so it can never resurface,
// even if the user never refreshes.
func (t *ExclusionTracker) MarkActioned(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendLocked([]int{id})
}

// appendLocked appends ids and enforces the FIFO cap. Must be called with
// mu held.
func (t *ExclusionTracker) appendLocked(ids []int) {
	for _, id := range ids {
		if _, ok := t.historySet[id]; ok {
			continue
		}
		t.history = append(t.history, id)
		t.historySet[id] = struct{}{}
	}

	if over := len(t.history) - t.cap; over > 0 {
		for _, id := range t.history[:over] {
			delete(t.historySet, id)
		}
		t.history = append([]int(nil), t.history[over:]...)
	}
}

// HistoryLen returns the current rolling history length.
func (t *ExclusionTracker) HistoryLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history)
}

// History returns a copy of the rolling history, oldest first.
func (t *ExclusionTracker) History() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.history...)
}
