// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package progress tracks in-flight download resources during model loading.
//
// The aggregator maintains an ordered set of resources keyed by resource
// id: initiated resources join the set, progressed resources update in
// place, completed resources leave it. Duplicate and late events are
// tolerated so that, for any interleaving, the set equals exactly
// {ids initiated} \ {ids done}.
package progress

// =============================================================================
// PROGRESS ITEM
// =============================================================================

// Item is one in-flight download resource.
type Item struct {
	ResourceID string
	Label      string
	Loaded     int64
	Total      int64
}

// Percent returns the completion percentage, or 0 for an unknown total.
func (i Item) Percent() float64 {
	if i.Total <= 0 {
		return 0
	}
	p := float64(i.Loaded) / float64(i.Total) * 100
	if p > 100 {
		p = 100
	}
	return p
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator holds the ordered collection of in-flight resources.
// It is not safe for concurrent use; the session controller drives it
// from its single event-handling flow.
type Aggregator struct {
	items []Item
	index map[string]int
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{index: make(map[string]int)}
}

// Initiate inserts a new resource, preserving insertion order. A duplicate
// initiate for a known id updates the existing entry in place rather than
// duplicating it, and reports false.
func (a *Aggregator) Initiate(resourceID, label string, total int64) bool {
	if i, ok := a.index[resourceID]; ok {
		a.items[i].Label = label
		a.items[i].Total = total
		return false
	}
	a.index[resourceID] = len(a.items)
	a.items = append(a.items, Item{ResourceID: resourceID, Label: label, Total: total})
	return true
}

// Update records transfer progress for a known resource. An unknown id is
// a no-op reporting false.
func (a *Aggregator) Update(resourceID string, loaded, total int64) bool {
	i, ok := a.index[resourceID]
	if !ok {
		return false
	}
	a.items[i].Loaded = loaded
	a.items[i].Total = total
	return true
}

// Done removes a completed resource. An unknown or already-removed id is
// a no-op reporting false, which tolerates duplicate and late completions.
func (a *Aggregator) Done(resourceID string) bool {
	i, ok := a.index[resourceID]
	if !ok {
		return false
	}
	a.items = append(a.items[:i], a.items[i+1:]...)
	delete(a.index, resourceID)
	for j := i; j < len(a.items); j++ {
		a.index[a.items[j].ResourceID] = j
	}
	return true
}

// Items returns a copy of the in-flight resources in insertion order.
func (a *Aggregator) Items() []Item {
	out := make([]Item, len(a.items))
	copy(out, a.items)
	return out
}

// Len returns the number of in-flight resources.
func (a *Aggregator) Len() int {
	return len(a.items)
}

// Reset drops all tracked resources.
func (a *Aggregator) Reset() {
	a.items = nil
	a.index = make(map[string]int)
}
