// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Content != "Hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hello")
	}
	if msg.InFlight {
		t.Error("User messages should not be in flight")
	}
}

func TestNewInFlightMessage(t *testing.T) {
	msg := NewInFlightMessage()

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want %q", msg.Role, RoleAssistant)
	}
	if !msg.InFlight {
		t.Error("Expected message to be in flight")
	}
	if !msg.IsEmpty() {
		t.Error("Expected empty message")
	}
}

func TestMessageAppendDelta(t *testing.T) {
	msg := NewInFlightMessage()

	deltas := []string{"He", "llo", ", ", "world"}
	var want strings.Builder
	for _, d := range deltas {
		msg.AppendDelta(d)
		want.WriteString(d)
		// Concatenation holds at every point, not just at the end.
		if got := msg.DisplayContent(); got != want.String() {
			t.Errorf("DisplayContent = %q, want %q", got, want.String())
		}
	}
}

func TestMessageFinalize(t *testing.T) {
	msg := NewInFlightMessage()
	msg.AppendDelta("Hello")
	msg.AppendDelta(" there")

	content := msg.Finalize()
	if content != "Hello there" {
		t.Errorf("Finalize = %q, want %q", content, "Hello there")
	}
	if msg.InFlight {
		t.Error("Message should not be in flight after Finalize")
	}

	// Finalized messages are immutable.
	msg.AppendDelta("X")
	if msg.Content != "Hello there" {
		t.Errorf("Content mutated after Finalize: %q", msg.Content)
	}

	// Finalize is idempotent.
	if again := msg.Finalize(); again != "Hello there" {
		t.Errorf("Second Finalize = %q, want %q", again, "Hello there")
	}
}

func TestMessagePreview(t *testing.T) {
	msg := NewUserMessage("line one\nline two with some extra length to truncate")

	preview := msg.Preview(20)
	if strings.Contains(preview, "\n") {
		t.Error("Preview should not contain newlines")
	}
	if len([]rune(preview)) > 20 {
		t.Errorf("Preview too long: %d runes", len([]rune(preview)))
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("Expected ellipsis, got %q", preview)
	}
}

func TestMessagePreviewUnicode(t *testing.T) {
	msg := NewUserMessage(strings.Repeat("日本語テキスト", 20))

	preview := msg.Preview(10)
	if len([]rune(preview)) > 10 {
		t.Errorf("Preview too long: %d runes", len([]rune(preview)))
	}
}

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRoleValid(t *testing.T) {
	if !RoleUser.Valid() || !RoleAssistant.Valid() {
		t.Error("user and assistant roles should be valid")
	}
	if Role("system").Valid() {
		t.Error("system role should not be valid here")
	}
}

func TestRoleDisplayName(t *testing.T) {
	if got := RoleUser.DisplayName(); got != "You" {
		t.Errorf("DisplayName = %q, want %q", got, "You")
	}
	if got := RoleAssistant.DisplayName(); got != "Assistant" {
		t.Errorf("DisplayName = %q, want %q", got, "Assistant")
	}
}

// =============================================================================
// STATISTICS TESTS
// =============================================================================

func TestStatisticsSeconds(t *testing.T) {
	s := Statistics{TokensPerSecond: 5, TokenCount: 10}
	if got := s.Seconds(); got != 2 {
		t.Errorf("Seconds = %v, want 2", got)
	}

	zero := Statistics{}
	if got := zero.Seconds(); got != 0 {
		t.Errorf("Seconds = %v, want 0", got)
	}
}

// =============================================================================
// CHAT SESSION TESTS
// =============================================================================

func TestChatSessionDisplayTitle(t *testing.T) {
	c := &ChatSession{ID: "chat_1"}
	if got := c.DisplayTitle(); got != "New chat" {
		t.Errorf("DisplayTitle = %q, want %q", got, "New chat")
	}

	c.Title = "Debugging"
	if got := c.DisplayTitle(); got != "Debugging" {
		t.Errorf("DisplayTitle = %q, want %q", got, "Debugging")
	}
}

func TestTitleFromMessage(t *testing.T) {
	title := TitleFromMessage("What is the capital of France?\nAnd of Spain?")
	if strings.Contains(title, "\n") {
		t.Error("Title should not contain newlines")
	}
	if len([]rune(title)) > 50 {
		t.Errorf("Title too long: %d runes", len([]rune(title)))
	}
}
