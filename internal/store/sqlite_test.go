// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides durable transcript persistence.
package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/llmchat-tui/internal/model"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestCreateChat(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, chat.ID)
	assert.False(t, chat.CreatedAt.IsZero())
}

func TestCurrentChatPointer(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Absent by default.
	current, err := s.CurrentChat(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)

	chat, err := s.CreateChat(ctx, "")
	require.NoError(t, err)
	require.NoError(t, s.SetCurrentChat(ctx, chat.ID))

	current, err = s.CurrentChat(ctx)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, current)

	// The pointer must refer to an existing chat.
	err = s.SetCurrentChat(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestDeleteChatClearsPointer(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "")
	require.NoError(t, err)
	require.NoError(t, s.SetCurrentChat(ctx, chat.ID))
	_, err = s.AppendMessage(ctx, chat.ID, model.RoleUser, "hi")
	require.NoError(t, err)

	require.NoError(t, s.DeleteChat(ctx, chat.ID))

	current, err := s.CurrentChat(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)

	// Cascade removed the messages.
	msgs, err := s.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.ErrorIs(t, s.DeleteChat(ctx, chat.ID), ErrChatNotFound)
}

func TestSetTitle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "")
	require.NoError(t, err)
	require.NoError(t, s.SetTitle(ctx, chat.ID, "Debugging session"))

	metas, err := s.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "Debugging session", metas[0].Title)

	assert.ErrorIs(t, s.SetTitle(ctx, "nonexistent", "x"), ErrChatNotFound)
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestAppendAndListMessages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "")
	require.NoError(t, err)

	u, err := s.AppendMessage(ctx, chat.ID, model.RoleUser, "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, chat.ID, u.ChatID)

	a, err := s.AppendMessage(ctx, chat.ID, model.RoleAssistant, "Hello")
	require.NoError(t, err)
	assert.NotEqual(t, u.ID, a.ID)

	msgs, err := s.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello", msgs[1].Content)
}

func TestTurnOrderingStable(t *testing.T) {
	// Many appends inside the same timestamp granularity must still come
	// back in insertion order.
	s := openTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "")
	require.NoError(t, err)

	contents := []string{"one", "two", "three", "four", "five", "six"}
	for _, c := range contents {
		_, err := s.AppendMessage(ctx, chat.ID, model.RoleUser, c)
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, len(contents))
	for i, c := range contents {
		assert.Equal(t, c, msgs[i].Content)
	}
}

func TestMessagesIsolatedPerChat(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.CreateChat(ctx, "")
	require.NoError(t, err)
	second, err := s.CreateChat(ctx, "")
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, first.ID, model.RoleUser, "in first")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, second.ID, model.RoleUser, "in second")
	require.NoError(t, err)

	msgs, err := s.ListMessages(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "in first", msgs[0].Content)
}

// =============================================================================
// LISTING TESTS
// =============================================================================

func TestListChatsPinsCurrentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	oldest, err := s.CreateChat(ctx, "oldest")
	require.NoError(t, err)
	middle, err := s.CreateChat(ctx, "middle")
	require.NoError(t, err)
	newest, err := s.CreateChat(ctx, "newest")
	require.NoError(t, err)

	// Activity bumps recency.
	_, err = s.AppendMessage(ctx, middle.ID, model.RoleUser, "bump")
	require.NoError(t, err)

	require.NoError(t, s.SetCurrentChat(ctx, oldest.ID))

	metas, err := s.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 3)

	assert.Equal(t, oldest.ID, metas[0].ID, "current chat pinned first")
	assert.True(t, metas[0].Current)
	assert.Equal(t, middle.ID, metas[1].ID, "then most recent activity")
	assert.Equal(t, newest.ID, metas[2].ID)
	assert.Equal(t, 1, metas[1].MessageCount)
}

func TestChatMetaDisplayTitle(t *testing.T) {
	assert.Equal(t, "New chat", ChatMeta{}.DisplayTitle())
	assert.Equal(t, "T", ChatMeta{Title: "T"}.DisplayTitle())
}
