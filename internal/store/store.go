// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides durable transcript persistence.
package store

import (
	"context"
	"time"

	"github.com/jeranaias/llmchat-tui/internal/model"
)

// =============================================================================
// TRANSCRIPT STORE INTERFACE
// =============================================================================

// TranscriptStore is the durable storage abstraction for chats, their
// messages, and the current-chat pointer. The store is the sole writer of
// record identity and timestamps: callers hand it role and content, it
// hands back the minted record.
//
// All operations may block on I/O and take a context.
type TranscriptStore interface {
	// CreateChat allocates a new chat with an id and creation timestamp.
	CreateChat(ctx context.Context, title string) (*model.ChatSession, error)

	// CurrentChat returns the current-chat pointer, or "" when absent.
	CurrentChat(ctx context.Context) (string, error)

	// SetCurrentChat updates the current-chat pointer.
	SetCurrentChat(ctx context.Context, chatID string) error

	// SetTitle updates a chat's title. Titles are the only mutable field
	// of a chat.
	SetTitle(ctx context.Context, chatID, title string) error

	// AppendMessage appends one immutable message to a chat and returns
	// the persisted record. It must be called at most once per logical
	// turn; the session controller's in-flight discipline enforces that.
	AppendMessage(ctx context.Context, chatID string, role model.Role, content string) (*model.Message, error)

	// ListMessages returns a chat's messages in chronological order.
	ListMessages(ctx context.Context, chatID string) ([]*model.Message, error)

	// ListChats returns all chats, the current chat pinned first and the
	// remainder most recent first.
	ListChats(ctx context.Context) ([]ChatMeta, error)

	// DeleteChat removes a chat and its messages. Deleting the current
	// chat clears the pointer.
	DeleteChat(ctx context.Context, chatID string) error

	// Close releases the underlying storage.
	Close() error
}

// ChatMeta is the lightweight listing row for one chat.
type ChatMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
	Current      bool      `json:"current,omitempty"`
}

// DisplayTitle returns the chat title or a default for untitled chats.
func (m ChatMeta) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return "New chat"
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrChatNotFound is returned when a chat doesn't exist.
// Use errors.Is(err, ErrChatNotFound) to check for this error.
var ErrChatNotFound = &StoreError{Message: "chat not found"}

// StoreError represents a persistence-related error.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
