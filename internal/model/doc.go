// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// This package defines the core domain types used throughout the
// application for representing chat sessions and their transcripts.
//
// # Key Types
//
//   - ChatSession: A durable chat with an id, optional title, and creation time
//   - Message: Single message with role, content, and timestamp
//   - Role: Message role enumeration (user, assistant)
//   - Statistics: Throughput metrics reported by the generation worker
//
// A message being streamed into is marked with an explicit InFlight flag
// rather than by its position in the transcript, so correctness never
// depends on positional convention. At most one message is in flight at
// any time, and an in-flight message is never persisted.
package model
