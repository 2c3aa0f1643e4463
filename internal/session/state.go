// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/llmchat-tui/internal/model"
	"github.com/jeranaias/llmchat-tui/internal/progress"
	"github.com/jeranaias/llmchat-tui/internal/store"
)

// =============================================================================
// LIFECYCLE STATE
// =============================================================================

// State is the model lifecycle state. The chat being viewed is an
// independent axis: switching or creating chats never changes State,
// except that leaving a generation mid-stream settles back to StateReady.
type State int

const (
	// StateIdle means no model has been requested yet.
	StateIdle State = iota

	// StateLoading means the model is downloading or initializing.
	StateLoading

	// StateReady means the model is loaded and can generate.
	StateReady

	// StateGenerating means an assistant response is streaming.
	StateGenerating

	// StateError is terminal until an explicit reset. User actions other
	// than reset are ignored in this state.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateGenerating:
		return "generating"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// CanSend reports whether a send intent is accepted in this state.
func (s State) CanSend() bool {
	return s == StateReady
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// ChatLine is one transcript entry as rendered to observers. Content of
// an in-flight line grows across snapshots until the line settles.
type ChatLine struct {
	Role     model.Role
	Content  string
	InFlight bool
}

// Snapshot is an immutable view of the controller's state. Every slice
// it carries is a copy; observers may retain snapshots indefinitely.
type Snapshot struct {
	// State is the model lifecycle state.
	State State

	// Err is the error message when State is StateError.
	Err string

	// LoadingStatus is the latest human-readable loading status line.
	LoadingStatus string

	// Downloads lists the in-progress download resources, in first-seen
	// order. Empty outside of loading.
	Downloads []progress.Item

	// ChatID identifies the current chat, "" before the first turn of a
	// fresh session has forced creation.
	ChatID string

	// Transcript is the current chat's messages in turn order, including
	// a trailing in-flight assistant line during generation.
	Transcript []ChatLine

	// Stats carries the worker-reported throughput of the current or most
	// recent generation.
	Stats model.Statistics

	// Chats lists all stored chats, current first. Refreshed whenever a
	// storage operation changes the chat set or the pointer.
	Chats []store.ChatMeta
}

// LastLine returns the final transcript line, or a zero ChatLine when
// the transcript is empty.
func (s Snapshot) LastLine() ChatLine {
	if len(s.Transcript) == 0 {
		return ChatLine{}
	}
	return s.Transcript[len(s.Transcript)-1]
}

// Generating reports whether an assistant line is currently streaming.
func (s Snapshot) Generating() bool {
	return s.State == StateGenerating
}
