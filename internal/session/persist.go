// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"log/slog"

	"github.com/jeranaias/llmchat-tui/internal/model"
	"github.com/jeranaias/llmchat-tui/internal/store"
)

// =============================================================================
// PERSIST QUEUE
// =============================================================================

// storeResult is the outcome of a storage operation, fed back into the
// controller's event loop. Zero-value fields mean "no change".
type storeResult struct {
	op      string
	err     error
	chatID  string           // non-empty when the active chat changed
	cleared bool             // true when the active chat was deleted
	loaded  []*model.Message // non-nil when a stored transcript was read
	chats   []store.ChatMeta // non-nil when the chat list was refreshed
}

// storeOp is one storage operation. Ops run on the queue's drain
// goroutine, which owns the queue's view of the active chat id.
type storeOp func(ctx context.Context, q *persistQueue) storeResult

// persistQueue serializes storage operations in submission order on a
// single goroutine so turn order in storage matches turn order in the
// session, no matter how long individual writes take. The controller
// enqueues ops and consumes results without ever blocking on I/O.
type persistQueue struct {
	store store.TranscriptStore
	log   *slog.Logger

	ops     chan storeOp
	results chan storeResult
	done    chan struct{}

	// Owned by the drain goroutine after start.
	chatID   string
	untitled bool
}

func newPersistQueue(ts store.TranscriptStore, log *slog.Logger) *persistQueue {
	return &persistQueue{
		store:   ts,
		log:     log,
		ops:     make(chan storeOp, 64),
		results: make(chan storeResult, 16),
		done:    make(chan struct{}),
	}
}

// start launches the drain goroutine. Ops run strictly in FIFO order.
func (q *persistQueue) start(ctx context.Context) {
	go func() {
		defer close(q.done)
		for op := range q.ops {
			res := op(ctx, q)
			if res.err != nil {
				q.log.Error("storage operation failed", "op", res.op, "error", res.err)
			}
			if res.op == "" {
				continue
			}
			select {
			case q.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// stop closes the op stream and waits for in-flight ops to finish.
func (q *persistQueue) stop() {
	close(q.ops)
	<-q.done
}

// enqueue submits an op. Called only from the controller goroutine.
func (q *persistQueue) enqueue(op storeOp) {
	q.ops <- op
}

// =============================================================================
// STORAGE OPERATIONS
// =============================================================================

// opRestore loads the current-chat pointer and its transcript at session
// start. A dangling or absent pointer restores to an empty session.
func opRestore(ctx context.Context, q *persistQueue) storeResult {
	res := storeResult{op: "restore"}
	id, err := q.store.CurrentChat(ctx)
	if err != nil {
		res.err = err
		return res
	}
	res.chats, _ = q.store.ListChats(ctx)
	if id == "" {
		return res
	}
	msgs, err := q.store.ListMessages(ctx, id)
	if err != nil {
		res.err = err
		return res
	}
	q.chatID = id
	res.chatID = id
	res.loaded = msgs
	return res
}

// opEnsureChat creates the active chat if none exists yet. Invoked ahead
// of the first turn of a fresh session.
func opEnsureChat(ctx context.Context, q *persistQueue) storeResult {
	if q.chatID != "" {
		return storeResult{}
	}
	res := storeResult{op: "create-chat"}
	chat, err := q.store.CreateChat(ctx, "")
	if err != nil {
		res.err = err
		return res
	}
	if err := q.store.SetCurrentChat(ctx, chat.ID); err != nil {
		res.err = err
		return res
	}
	q.chatID = chat.ID
	q.untitled = true
	res.chatID = chat.ID
	res.chats, _ = q.store.ListChats(ctx)
	return res
}

// opAppendTurn persists one finalized turn to the active chat. The first
// user turn of an untitled chat also seeds the chat title.
func opAppendTurn(role model.Role, content string) storeOp {
	return func(ctx context.Context, q *persistQueue) storeResult {
		res := storeResult{op: "append-" + role.String()}
		if q.chatID == "" {
			res.err = store.ErrChatNotFound
			return res
		}
		if _, err := q.store.AppendMessage(ctx, q.chatID, role, content); err != nil {
			res.err = err
			return res
		}
		if q.untitled && role == model.RoleUser {
			if err := q.store.SetTitle(ctx, q.chatID, model.TitleFromMessage(content)); err != nil {
				q.log.Warn("failed to set chat title", "chat", q.chatID, "error", err)
			} else {
				q.untitled = false
				res.chats, _ = q.store.ListChats(ctx)
			}
		}
		return res
	}
}

// opNewChat creates a fresh chat and makes it current.
func opNewChat(ctx context.Context, q *persistQueue) storeResult {
	res := storeResult{op: "new-chat"}
	chat, err := q.store.CreateChat(ctx, "")
	if err != nil {
		res.err = err
		return res
	}
	if err := q.store.SetCurrentChat(ctx, chat.ID); err != nil {
		res.err = err
		return res
	}
	q.chatID = chat.ID
	q.untitled = true
	res.chatID = chat.ID
	res.loaded = []*model.Message{}
	res.chats, _ = q.store.ListChats(ctx)
	return res
}

// opSelectChat points the session at an existing chat and loads its
// transcript.
func opSelectChat(id string) storeOp {
	return func(ctx context.Context, q *persistQueue) storeResult {
		res := storeResult{op: "select-chat"}
		if err := q.store.SetCurrentChat(ctx, id); err != nil {
			res.err = err
			return res
		}
		msgs, err := q.store.ListMessages(ctx, id)
		if err != nil {
			res.err = err
			return res
		}
		q.chatID = id
		q.untitled = false
		res.chatID = id
		res.loaded = msgs
		res.chats, _ = q.store.ListChats(ctx)
		return res
	}
}

// opDeleteChat removes a chat. Deleting the active chat leaves the
// session pointed at nothing until the next turn creates a new one.
func opDeleteChat(id string) storeOp {
	return func(ctx context.Context, q *persistQueue) storeResult {
		res := storeResult{op: "delete-chat"}
		if err := q.store.DeleteChat(ctx, id); err != nil {
			res.err = err
			return res
		}
		if id == q.chatID {
			q.chatID = ""
			q.untitled = false
			res.cleared = true
			res.loaded = []*model.Message{}
		}
		res.chats, _ = q.store.ListChats(ctx)
		return res
	}
}
