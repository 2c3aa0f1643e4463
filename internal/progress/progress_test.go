// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package progress tracks in-flight download resources during model loading.
package progress

import "testing"

func TestAggregatorLifecycle(t *testing.T) {
	a := NewAggregator()

	if !a.Initiate("a", "file-a", 100) {
		t.Error("first initiate should report true")
	}
	if a.Len() != 1 {
		t.Fatalf("Len = %d, want 1", a.Len())
	}

	if !a.Update("a", 50, 100) {
		t.Error("update of known id should report true")
	}
	items := a.Items()
	if items[0].Loaded != 50 || items[0].Total != 100 {
		t.Errorf("item = %+v, want loaded 50 total 100", items[0])
	}

	if !a.Done("a") {
		t.Error("done of known id should report true")
	}
	if a.Len() != 0 {
		t.Errorf("Len = %d, want 0", a.Len())
	}
}

func TestAggregatorDuplicateInitiate(t *testing.T) {
	// Duplicate initiates (e.g. on retry) must not duplicate the entry.
	a := NewAggregator()

	a.Initiate("a", "file-a", 100)
	if a.Initiate("a", "file-a-retry", 200) {
		t.Error("duplicate initiate should report false")
	}

	if a.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after duplicate initiate", a.Len())
	}
	item := a.Items()[0]
	if item.Label != "file-a-retry" || item.Total != 200 {
		t.Errorf("duplicate initiate should update in place, got %+v", item)
	}
}

func TestAggregatorUnknownIDs(t *testing.T) {
	a := NewAggregator()
	a.Initiate("a", "file-a", 100)

	if a.Update("ghost", 1, 2) {
		t.Error("update of unknown id should be a no-op")
	}
	if a.Done("ghost") {
		t.Error("done of unknown id should be a no-op")
	}
	if a.Len() != 1 {
		t.Errorf("Len = %d, want 1", a.Len())
	}
}

func TestAggregatorDuplicateDone(t *testing.T) {
	a := NewAggregator()
	a.Initiate("a", "file-a", 100)

	if !a.Done("a") {
		t.Error("first done should report true")
	}
	if a.Done("a") {
		t.Error("late duplicate done should be a no-op")
	}
}

func TestAggregatorSetSemantics(t *testing.T) {
	// For any interleaving, the set equals {initiated} \ {done}.
	a := NewAggregator()

	a.Initiate("a", "file-a", 10)
	a.Initiate("b", "file-b", 20)
	a.Initiate("c", "file-c", 30)
	a.Done("b")
	a.Initiate("d", "file-d", 40)
	a.Update("c", 15, 30)
	a.Done("a")

	items := a.Items()
	if len(items) != 2 {
		t.Fatalf("Len = %d, want 2", len(items))
	}
	// Insertion order is preserved.
	if items[0].ResourceID != "c" || items[1].ResourceID != "d" {
		t.Errorf("order = [%s %s], want [c d]", items[0].ResourceID, items[1].ResourceID)
	}
}

func TestAggregatorOrderAfterRemoval(t *testing.T) {
	a := NewAggregator()
	a.Initiate("a", "", 1)
	a.Initiate("b", "", 1)
	a.Initiate("c", "", 1)

	a.Done("a") // removal reindexes the remainder

	if !a.Update("c", 1, 1) {
		t.Error("update of c should still resolve after removal")
	}
	if !a.Done("b") || !a.Done("c") {
		t.Error("b and c should still be removable")
	}
	if a.Len() != 0 {
		t.Errorf("Len = %d, want 0", a.Len())
	}
}

func TestItemPercent(t *testing.T) {
	if got := (Item{Loaded: 50, Total: 100}).Percent(); got != 50 {
		t.Errorf("Percent = %v, want 50", got)
	}
	if got := (Item{Loaded: 5, Total: 0}).Percent(); got != 0 {
		t.Errorf("Percent with zero total = %v, want 0", got)
	}
	if got := (Item{Loaded: 150, Total: 100}).Percent(); got != 100 {
		t.Errorf("Percent should clamp to 100, got %v", got)
	}
}

func TestAggregatorReset(t *testing.T) {
	a := NewAggregator()
	a.Initiate("a", "", 1)
	a.Reset()

	if a.Len() != 0 {
		t.Errorf("Len = %d, want 0 after reset", a.Len())
	}
	if !a.Initiate("a", "", 1) {
		t.Error("reset should forget prior ids")
	}
}
