// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the chat session controller: the component
// that drives the model lifecycle, consumes worker events, maintains the
// in-memory transcript, and persists conversation turns exactly once.
//
// # Key Types
//
//   - Controller: the event loop tying worker, store, and observers together
//   - StreamAccumulator: assembles streamed deltas into one assistant message
//   - Snapshot: immutable view of controller state handed to observers
//
// # Concurrency Model
//
// All state mutation happens on the single goroutine running
// Controller.Run. Worker events, UI intents, and storage completions are
// funneled into that goroutine's select loop, so lifecycle state and the
// transcript are never touched concurrently and need no locking.
//
// Storage calls never block event handling: they run on a FIFO queue
// drained by a dedicated goroutine, and their results are fed back into
// the select loop. FIFO execution preserves turn order no matter how long
// individual writes take.
//
// Observers registered via Subscribe receive snapshots only after an
// event has been fully applied, never mid-update. A slow observer is
// conflated down to the latest snapshot rather than backing up the loop.
package session
