// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package recommend

import (
	"sync"
)

// Window slices a fetched batch into display-sized pages without
// re-fetching. Rotation advances by the window size modulo the batch size;
// when fewer than a full window remains before wraparound, the window is
// padded from the start of the batch with no duplicates within one window.
type Window struct {
	mu     sync.Mutex
	items  []ScoredItem
	size   int
	offset int
}

// NewWindow creates a window of the given display size over a batch.
func NewWindow(b *Batch, size int) *Window {
	w := &Window{size: size}
	w.Reset(b)
	return w
}

// Reset replaces the underlying batch and rewinds to the first window.
func (w *Window) Reset(b *Batch) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if b == nil {
		w.items = nil
	} else {
		w.items = append([]ScoredItem(nil), b.Items...)
	}
	w.offset = 0
}

// Current returns the items in the current window.
func (w *Window) Current() []ScoredItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentLocked()
}

// currentLocked computes the window slice. Must be called with mu held.
func (w *Window) currentLocked() []ScoredItem {
	n := len(w.items)
	if n == 0 {
		return nil
	}

	size := w.size
	if size > n {
		size = n
	}

	out := make([]ScoredItem, 0, size)
	seen := make(map[int]struct{}, size)

	for i := 0; len(out) < size && i < n; i++ {
		item := w.items[(w.offset+i)%n]
		if _, dup := seen[item.ID]; dup {
			continue
		}
		out = append(out, item)
		seen[item.ID] = struct{}{}
	}

	return out
}

// Rotate advances the window by its size, wrapping around the batch. It
// never triggers a fetch. Returns the new current window.
func (w *Window) Rotate() []ScoredItem {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.items) == 0 {
		return nil
	}
	w.offset = (w.offset + w.size) % len(w.items)
	return w.currentLocked()
}

// Remove strips an item from the window's batch copy in place, keeping the
// current offset position stable. Used when a displayed item is favorited
// or watch-listed mid-display.
func (w *Window) Remove(id int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.items {
		if w.items[i].ID == id {
			w.items = append(w.items[:i], w.items[i+1:]...)
			if len(w.items) > 0 {
				if i < w.offset {
					w.offset--
				}
				w.offset %= len(w.items)
			} else {
				w.offset = 0
			}
			return true
		}
	}
	return false
}

// Len returns the number of items backing the window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}
