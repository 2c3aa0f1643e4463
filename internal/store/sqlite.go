// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides durable transcript persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/llmchat-tui/internal/model"
)

// currentChatKey is the kv slot holding the current-chat pointer.
const currentChatKey = "current_chat"

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore implements TranscriptStore on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the transcript database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not exist.
func (s *SQLiteStore) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			chat_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// CreateChat allocates a new chat record.
func (s *SQLiteStore) CreateChat(ctx context.Context, title string) (*model.ChatSession, error) {
	chat := &model.ChatSession{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, title, created_at) VALUES (?, ?, ?)`,
		chat.ID, chat.Title, chat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

// SetTitle updates a chat's title.
func (s *SQLiteStore) SetTitle(ctx context.Context, chatID, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET title = ? WHERE id = ?`, title, chatID)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChatNotFound
	}
	return nil
}

// DeleteChat removes a chat and, via the schema's cascade, its messages.
func (s *SQLiteStore) DeleteChat(ctx context.Context, chatID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChatNotFound
	}

	current, err := s.CurrentChat(ctx)
	if err == nil && current == chatID {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, currentChatKey)
	}
	return nil
}

// ListChats returns all chats, current first, the rest by recency of
// their latest message.
func (s *SQLiteStore) ListChats(ctx context.Context) ([]ChatMeta, error) {
	current, err := s.CurrentChat(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, COUNT(m.id),
		       COALESCE(MAX(m.created_at), c.created_at) AS last_activity
		FROM chats c
		LEFT JOIN messages m ON m.chat_id = c.id
		GROUP BY c.id
		ORDER BY (c.id = ?) DESC, last_activity DESC`, current)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var metas []ChatMeta
	for rows.Next() {
		var meta ChatMeta
		var lastActivity time.Time
		if err := rows.Scan(&meta.ID, &meta.Title, &meta.CreatedAt, &meta.MessageCount, &lastActivity); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		meta.Current = meta.ID == current
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// =============================================================================
// CURRENT-CHAT POINTER
// =============================================================================

// CurrentChat returns the current-chat pointer, "" when absent. A pointer
// to a chat that no longer exists is treated as absent.
func (s *SQLiteStore) CurrentChat(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT v.value FROM kv v
		JOIN chats c ON c.id = v.value
		WHERE v.key = ?`, currentChatKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read current chat: %w", err)
	}
	return id, nil
}

// SetCurrentChat updates the current-chat pointer.
func (s *SQLiteStore) SetCurrentChat(ctx context.Context, chatID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chats WHERE id = ?`, chatID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to verify chat: %w", err)
	}
	if exists == 0 {
		return ErrChatNotFound
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		currentChatKey, chatID)
	if err != nil {
		return fmt.Errorf("failed to set current chat: %w", err)
	}
	return nil
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AppendMessage persists one immutable message and returns the record.
func (s *SQLiteStore) AppendMessage(ctx context.Context, chatID string, role model.Role, content string) (*model.Message, error) {
	msg := &model.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ChatID, msg.Role.String(), msg.Content, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return msg, nil
}

// ListMessages returns a chat's messages in chronological order. Ties on
// the timestamp fall back to insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, chatID string) ([]*model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, role, content, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at ASC, rowid ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		msg := &model.Message{}
		var role string
		if err := rows.Scan(&msg.ID, &msg.ChatID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.Role = model.Role(role)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
