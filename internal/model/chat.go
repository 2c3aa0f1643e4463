// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import "time"

// =============================================================================
// CHAT SESSION TYPE
// =============================================================================

// ChatSession identifies one durable chat. It is created on first use or
// by an explicit "new chat" action and never mutated afterwards except for
// its title.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayTitle returns the chat title or a default for untitled chats.
func (c *ChatSession) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New chat"
}

// TitleFromMessage derives a chat title from the first user message.
// The result is truncated to 50 runes.
func TitleFromMessage(content string) string {
	msg := Message{Role: RoleUser, Content: content}
	return msg.Preview(50)
}

// =============================================================================
// STATISTICS TYPE
// =============================================================================

// Statistics holds throughput metrics for the most recent generation.
// The worker is authoritative for these numbers; nothing here recomputes
// them from wall-clock time.
type Statistics struct {
	// TokensPerSecond is the generation rate as last reported by the worker.
	TokensPerSecond float64

	// TokenCount is the number of tokens generated so far.
	TokenCount int
}

// Seconds returns the elapsed generation time implied by the reported
// rate, or zero when no rate has been reported.
func (s Statistics) Seconds() float64 {
	if s.TokensPerSecond <= 0 {
		return 0
	}
	return float64(s.TokenCount) / s.TokensPerSecond
}
