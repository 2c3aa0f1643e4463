// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/llmchat-tui/internal/model"
)

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator assembles a stream of generation deltas into a single
// assistant message. At most one message is in flight at a time; the
// message stays in flight from Start until exactly one of Complete or
// Discard, after which further deltas are rejected.
type StreamAccumulator struct {
	inflight *model.Message
	stats    model.Statistics
}

// InFlight reports whether a streamed message is currently open.
func (a *StreamAccumulator) InFlight() bool {
	return a.inflight != nil
}

// Start opens a new in-flight assistant message and returns it. Returns
// false without side effects if a message is already in flight.
func (a *StreamAccumulator) Start() (*model.Message, bool) {
	if a.inflight != nil {
		return nil, false
	}
	a.inflight = model.NewInFlightMessage()
	a.stats = model.Statistics{}
	return a.inflight, true
}

// Update appends a delta to the in-flight message and records the latest
// generation statistics. Returns false if no message is in flight.
func (a *StreamAccumulator) Update(delta string, tps float64, tokens int) bool {
	if a.inflight == nil {
		return false
	}
	a.inflight.AppendDelta(delta)
	a.stats = model.Statistics{TokensPerSecond: tps, TokenCount: tokens}
	return true
}

// Complete finalizes the in-flight message and returns its full content.
// Returns false if no message is in flight, which makes a duplicate
// completion a detectable no-op.
func (a *StreamAccumulator) Complete() (string, bool) {
	if a.inflight == nil {
		return "", false
	}
	content := a.inflight.Finalize()
	a.inflight = nil
	return content, true
}

// Discard abandons the in-flight message without finalizing it and
// returns the abandoned message so the caller can drop it from any
// transcript that references it. Returns nil if nothing was in flight.
func (a *StreamAccumulator) Discard() *model.Message {
	msg := a.inflight
	a.inflight = nil
	a.stats = model.Statistics{}
	return msg
}

// Stats returns the most recent generation statistics.
func (a *StreamAccumulator) Stats() model.Statistics {
	return a.stats
}
