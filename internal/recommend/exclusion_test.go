// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package recommend

import (
	"testing"
)

func TestExclusionTrackerHistoryCap(t *testing.T) {
	tracker := NewExclusionTracker(5)

	tracker.RecordShown([]int{1, 2, 3, 4, 5, 6, 7})

	if got := tracker.HistoryLen(); got != 5 {
		t.Fatalf("HistoryLen() = %d, want 5", got)
	}

	// Oldest entries evicted first.
	for _, id := range []int{1, 2} {
		if tracker.Excluded(id) {
			t.Errorf("id %d should have been evicted", id)
		}
	}
	for _, id := range []int{3, 4, 5, 6, 7} {
		if !tracker.Excluded(id) {
			t.Errorf("id %d should still be excluded", id)
		}
	}
}

func TestExclusionTrackerDedupes(t *testing.T) {
	tracker := NewExclusionTracker(10)

	tracker.RecordShown([]int{1, 2, 1, 2, 1})

	if got := tracker.HistoryLen(); got != 2 {
		t.Errorf("HistoryLen() = %d, want 2", got)
	}
}

func TestExclusionTrackerUnion(t *testing.T) {
	tracker := NewExclusionTracker(10)
	tracker.SetLists([]int{1, 2}, []int{3})
	tracker.RecordShown([]int{4, 5})

	union := tracker.Union([]int{6})

	for _, id := range []int{1, 2, 3, 4, 5, 6} {
		if _, ok := union[id]; !ok {
			t.Errorf("union missing id %d", id)
		}
	}
	if len(union) != 6 {
		t.Errorf("union size = %d, want 6", len(union))
	}
}

func TestExclusionTrackerSetListsReplaces(t *testing.T) {
	tracker := NewExclusionTracker(10)
	tracker.SetLists([]int{1}, nil)
	tracker.SetLists([]int{2}, nil)

	if tracker.Excluded(1) {
		t.Error("id 1 should have been replaced")
	}
	if !tracker.Excluded(2) {
		t.Error("id 2 should be excluded")
	}
}

func TestExclusionTrackerMarkActioned(t *testing.T) {
	tracker := NewExclusionTracker(10)

	tracker.MarkActioned(42)

	if !tracker.Excluded(42) {
		t.Error("actioned id should be excluded immediately")
	}
	if got := tracker.History(); len(got) != 1 || got[0] != 42 {
		t.Errorf("History() = %v, want [42]", got)
	}
}

func TestExclusionTrackerDefaultCap(t *testing.T) {
	tracker := NewExclusionTracker(0)

	ids := make([]int, DefaultHistoryCap+25)
	for i := range ids {
		ids[i] = i + 1
	}
	tracker.RecordShown(ids)

	if got := tracker.HistoryLen(); got != DefaultHistoryCap {
		t.Errorf("HistoryLen() = %d, want %d", got, DefaultHistoryCap)
	}
}
