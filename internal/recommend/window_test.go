// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package recommend

import (
	"testing"
)

func windowBatch(ids ...int) *Batch {
	items := make([]ScoredItem, len(ids))
	for i, id := range ids {
		items[i] = ScoredItem{CatalogItem: CatalogItem{ID: id}}
	}
	return &Batch{Items: items, Source: SourceGeneric}
}

func windowIDs(items []ScoredItem) []int {
	ids := make([]int, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return ids
}

func assertIDs(t *testing.T, got []ScoredItem, want ...int) {
	t.Helper()
	ids := windowIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("window = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("window = %v, want %v", ids, want)
		}
	}
}

func TestWindowFullCycle(t *testing.T) {
	w := NewWindow(windowBatch(1, 2, 3, 4, 5, 6, 7, 8, 9), 3)

	assertIDs(t, w.Current(), 1, 2, 3)
	assertIDs(t, w.Rotate(), 4, 5, 6)
	assertIDs(t, w.Rotate(), 7, 8, 9)

	// Batch size divisible by window size: a full cycle returns to start.
	assertIDs(t, w.Rotate(), 1, 2, 3)
}

func TestWindowWraparoundPads(t *testing.T) {
	w := NewWindow(windowBatch(1, 2, 3, 4, 5, 6, 7), 3)

	assertIDs(t, w.Current(), 1, 2, 3)
	assertIDs(t, w.Rotate(), 4, 5, 6)

	// Only one item remains before wraparound; pad from the start.
	assertIDs(t, w.Rotate(), 7, 1, 2)
	assertIDs(t, w.Rotate(), 3, 4, 5)
}

func TestWindowSmallBatchNoDuplicates(t *testing.T) {
	w := NewWindow(windowBatch(1, 2), 3)

	// Fewer items than the window size: never repeat an id in one window.
	assertIDs(t, w.Current(), 1, 2)
	assertIDs(t, w.Rotate(), 2, 1)
}

func TestWindowEmpty(t *testing.T) {
	w := NewWindow(nil, 3)

	if got := w.Current(); got != nil {
		t.Errorf("Current() = %v, want nil", got)
	}
	if got := w.Rotate(); got != nil {
		t.Errorf("Rotate() = %v, want nil", got)
	}
}

func TestWindowReset(t *testing.T) {
	w := NewWindow(windowBatch(1, 2, 3, 4, 5, 6), 3)
	w.Rotate()

	w.Reset(windowBatch(7, 8, 9))

	assertIDs(t, w.Current(), 7, 8, 9)
}

func TestWindowRemove(t *testing.T) {
	w := NewWindow(windowBatch(1, 2, 3, 4, 5, 6), 3)

	if !w.Remove(2) {
		t.Fatal("Remove(2) = false, want true")
	}
	if w.Remove(2) {
		t.Fatal("second Remove(2) = true, want false")
	}

	assertIDs(t, w.Current(), 1, 3, 4)
	if got := w.Len(); got != 5 {
		t.Errorf("Len() = %d, want 5", got)
	}
}

func TestWindowRemoveBeforeOffset(t *testing.T) {
	w := NewWindow(windowBatch(1, 2, 3, 4, 5, 6), 3)
	w.Rotate() // offset at item 4

	// Removing an item before the offset keeps the current page stable.
	w.Remove(1)
	assertIDs(t, w.Current(), 4, 5, 6)
}

func TestWindowRemoveLastItem(t *testing.T) {
	w := NewWindow(windowBatch(1), 3)

	w.Remove(1)

	if got := w.Current(); got != nil {
		t.Errorf("Current() = %v, want nil", got)
	}
	if got := w.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}
