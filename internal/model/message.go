// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether the role is one the transcript accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a chat transcript.
//
// Identity and CreatedAt are minted by the store when the message is
// persisted; an in-flight assistant message carries neither until it is
// finalized and written.
type Message struct {
	// Identity (assigned by the store on persistence)
	ID        string    `json:"id,omitempty"`
	ChatID    string    `json:"chat_id,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Content
	Content string `json:"content"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	InFlight      bool            `json:"-"`
	streamContent strings.Builder `json:"-"`
}

// NewUserMessage creates a user message with the given content.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewInFlightMessage creates an empty assistant message open for streaming.
func NewInFlightMessage() *Message {
	return &Message{Role: RoleAssistant, InFlight: true}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendDelta appends a streamed delta to an in-flight message.
// Deltas are concatenated verbatim, with no normalization.
// Appending to a finalized message is a no-op.
func (m *Message) AppendDelta(delta string) {
	if m.InFlight {
		m.streamContent.WriteString(delta)
	}
}

// Finalize closes an in-flight message and returns its final content.
// After Finalize the message is immutable. Finalizing a message that is
// not in flight returns its existing content.
func (m *Message) Finalize() string {
	if m.InFlight {
		m.Content = m.streamContent.String()
		m.streamContent.Reset()
		m.InFlight = false
	}
	return m.Content
}

// DisplayContent returns the content to display (streaming or final).
func (m *Message) DisplayContent() string {
	if m.InFlight {
		return m.streamContent.String()
	}
	return m.Content
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := strings.ReplaceAll(m.DisplayContent(), "\n", " ")
	content = strings.ReplaceAll(content, "\r", "")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
