// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/llmchat-tui/internal/model"
	"github.com/jeranaias/llmchat-tui/internal/progress"
	"github.com/jeranaias/llmchat-tui/internal/store"
	"github.com/jeranaias/llmchat-tui/internal/worker"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds tuning knobs for the controller.
type Config struct {
	// SnapshotInterval throttles mid-stream snapshots (download progress
	// and generation deltas). Terminal transitions always publish
	// immediately. Default: 33ms.
	SnapshotInterval time.Duration

	// StallTimeout fails a generation that produces no worker events for
	// this long. Zero disables the watchdog.
	StallTimeout time.Duration
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		SnapshotInterval: 33 * time.Millisecond,
	}
}

// =============================================================================
// INTENTS
// =============================================================================

type intentKind int

const (
	intentLoad intentKind = iota
	intentSend
	intentInterrupt
	intentNewChat
	intentSelectChat
	intentDeleteChat
	intentReset
)

type intent struct {
	kind   intentKind
	text   string
	chatID string
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the session: it drives the model lifecycle through the
// worker, keeps the in-memory transcript, persists finalized turns, and
// publishes snapshots to observers. Construct with NewController, run
// with Run, and drive it with the intent methods (Load, Send, ...),
// which are safe to call from any goroutine.
type Controller struct {
	worker  worker.Channel
	persist *persistQueue
	log     *slog.Logger
	cfg     Config

	intents chan intent

	// State below is owned by the Run goroutine.
	state         State
	errMsg        string
	loadingStatus string
	chatID        string
	transcript    []*model.Message
	acc           StreamAccumulator
	prog          *progress.Aggregator
	chats         []store.ChatMeta
	stall         *time.Timer

	mu       sync.Mutex
	subs     map[int]chan Snapshot
	nextSub  int
	throttle rate.Sometimes
}

// NewController wires a controller to its worker channel and store.
func NewController(w worker.Channel, ts store.TranscriptStore, log *slog.Logger, cfg Config) *Controller {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = DefaultConfig().SnapshotInterval
	}
	return &Controller{
		worker:   w,
		persist:  newPersistQueue(ts, log),
		log:      log,
		cfg:      cfg,
		intents:  make(chan intent, 32),
		prog:     progress.NewAggregator(),
		subs:     make(map[int]chan Snapshot),
		throttle: rate.Sometimes{Interval: cfg.SnapshotInterval},
	}
}

// =============================================================================
// INTENT METHODS
// =============================================================================

// Load requests model loading. Accepted only in StateIdle.
func (c *Controller) Load() { c.intents <- intent{kind: intentLoad} }

// Send submits a user turn for generation. Accepted only in StateReady
// with non-blank text.
func (c *Controller) Send(text string) { c.intents <- intent{kind: intentSend, text: text} }

// Interrupt requests early termination of the running generation. The
// generation still finalizes normally; partial output is kept.
func (c *Controller) Interrupt() { c.intents <- intent{kind: intentInterrupt} }

// NewChat abandons any running generation and starts a fresh chat.
func (c *Controller) NewChat() { c.intents <- intent{kind: intentNewChat} }

// SelectChat switches the session to an existing chat.
func (c *Controller) SelectChat(id string) { c.intents <- intent{kind: intentSelectChat, chatID: id} }

// DeleteChat removes a chat, active or not.
func (c *Controller) DeleteChat(id string) { c.intents <- intent{kind: intentDeleteChat, chatID: id} }

// Reset leaves StateError back to StateIdle so the model can be loaded
// again. Ignored outside of StateError.
func (c *Controller) Reset() { c.intents <- intent{kind: intentReset} }

// =============================================================================
// EVENT LOOP
// =============================================================================

// Run executes the controller loop until ctx is cancelled or the worker
// event stream closes. All controller state is confined to this
// goroutine.
func (c *Controller) Run(ctx context.Context) {
	c.persist.start(ctx)
	defer c.persist.stop()

	c.worker.Send(worker.CheckCommand{})
	c.persist.enqueue(opRestore)

	for {
		var stallC <-chan time.Time
		if c.stall != nil {
			stallC = c.stall.C
		}
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.worker.Events():
			if !ok {
				return
			}
			if c.handleEvent(ev) {
				c.publishThrottled()
			} else {
				c.publish()
			}
		case in := <-c.intents:
			c.handleIntent(in)
			c.publish()
		case res := <-c.persist.results:
			c.applyResult(res)
			c.publish()
		case <-stallC:
			c.stall = nil
			c.log.Error("generation stalled", "timeout", c.cfg.StallTimeout)
			c.enterError("generation stalled: no output from model")
			c.publish()
		}
	}
}

// handleEvent applies one worker event. The return value reports whether
// the resulting snapshot may be throttled (true for high-frequency
// mid-stream events, false for state transitions).
func (c *Controller) handleEvent(ev worker.Event) bool {
	throttled := false

	switch ev := ev.(type) {
	case worker.LoadingEvent:
		c.loadingStatus = ev.Message

	case worker.InitiateEvent:
		if c.state != StateLoading {
			c.log.Warn("download announced outside loading", "resource", ev.ResourceID)
			break
		}
		if !c.prog.Initiate(ev.ResourceID, ev.Label, ev.Total) {
			c.log.Warn("duplicate download announcement", "resource", ev.ResourceID)
		}

	case worker.ProgressEvent:
		if !c.prog.Update(ev.ResourceID, ev.Loaded, ev.Total) {
			c.log.Warn("progress for unknown resource", "resource", ev.ResourceID)
			break
		}
		throttled = true

	case worker.DoneEvent:
		if !c.prog.Done(ev.ResourceID) {
			c.log.Warn("completion for unknown resource", "resource", ev.ResourceID)
		}

	case worker.ReadyEvent:
		if c.prog.Len() != 0 {
			c.log.Warn("model ready with downloads still tracked", "remaining", c.prog.Len())
			c.prog.Reset()
		}
		c.loadingStatus = ""
		if c.state == StateIdle || c.state == StateLoading {
			c.state = StateReady
		} else {
			c.log.Warn("ready event in unexpected state", "state", c.state.String())
		}

	case worker.StartEvent:
		if c.state != StateGenerating {
			c.log.Warn("generation started without a pending request", "state", c.state.String())
			break
		}
		msg, ok := c.acc.Start()
		if !ok {
			c.log.Warn("generation start with a message already streaming")
			break
		}
		c.transcript = append(c.transcript, msg)

	case worker.UpdateEvent:
		if !c.acc.Update(ev.Delta, ev.TPS, ev.TokenCount) {
			c.log.Warn("delta with no message in flight")
			break
		}
		throttled = true

	case worker.CompleteEvent:
		content, ok := c.acc.Complete()
		if !ok {
			c.log.Debug("completion with no message in flight")
			break
		}
		c.persist.enqueue(opAppendTurn(model.RoleAssistant, content))
		if c.state == StateGenerating {
			c.state = StateReady
		}

	case worker.ErrorEvent:
		c.enterError(ev.Message)
	}

	if c.state == StateGenerating {
		c.armStall()
	} else {
		c.disarmStall()
	}
	return throttled
}

// handleIntent applies one user intent. In StateError every intent but
// reset is ignored.
func (c *Controller) handleIntent(in intent) {
	if c.state == StateError && in.kind != intentReset {
		c.log.Debug("intent ignored in error state")
		return
	}

	switch in.kind {
	case intentLoad:
		if c.state != StateIdle {
			return
		}
		c.state = StateLoading
		c.loadingStatus = "Loading model..."
		c.worker.Send(worker.LoadCommand{})

	case intentSend:
		text := strings.TrimSpace(in.text)
		if text == "" || !c.state.CanSend() || c.acc.InFlight() {
			c.log.Debug("send rejected", "state", c.state.String(), "empty", text == "")
			return
		}
		c.transcript = append(c.transcript, model.NewUserMessage(text))
		// Persistence is initiated before generation is requested so
		// storage order matches turn order.
		c.persist.enqueue(opEnsureChat)
		c.persist.enqueue(opAppendTurn(model.RoleUser, text))
		c.worker.Send(worker.GenerateCommand{Messages: c.turns()})
		c.state = StateGenerating
		c.armStall()

	case intentInterrupt:
		if c.state != StateGenerating {
			return
		}
		c.worker.Send(worker.InterruptCommand{})

	case intentNewChat:
		c.abandonGeneration()
		c.transcript = nil
		c.persist.enqueue(opNewChat)

	case intentSelectChat:
		if in.chatID == "" || in.chatID == c.chatID {
			return
		}
		c.abandonGeneration()
		c.persist.enqueue(opSelectChat(in.chatID))

	case intentDeleteChat:
		if in.chatID == "" {
			return
		}
		if in.chatID == c.chatID {
			c.abandonGeneration()
			c.transcript = nil
		}
		c.persist.enqueue(opDeleteChat(in.chatID))

	case intentReset:
		if c.state != StateError {
			return
		}
		c.errMsg = ""
		c.loadingStatus = ""
		c.prog.Reset()
		if dropped := c.acc.Discard(); dropped != nil {
			c.dropFromTranscript(dropped)
		}
		c.state = StateIdle
	}
}

// applyResult folds a storage outcome back into controller state.
func (c *Controller) applyResult(res storeResult) {
	if res.chatID != "" {
		c.chatID = res.chatID
	}
	if res.cleared {
		c.chatID = ""
	}
	if res.loaded != nil {
		// Restore and new-chat results must not clobber turns the user
		// already produced while the storage op was in flight.
		if res.op == "select-chat" || len(c.transcript) == 0 {
			c.transcript = res.loaded
		}
	}
	if res.chats != nil {
		c.chats = res.chats
	}
}

// =============================================================================
// INTERNAL TRANSITIONS
// =============================================================================

// enterError moves to StateError. Partial streamed content is discarded,
// never persisted.
func (c *Controller) enterError(msg string) {
	if dropped := c.acc.Discard(); dropped != nil {
		c.dropFromTranscript(dropped)
	}
	c.prog.Reset()
	c.loadingStatus = ""
	c.errMsg = msg
	c.state = StateError
	c.disarmStall()
}

// abandonGeneration detaches the session from a running generation when
// the user navigates away mid-stream. The worker is interrupted and its
// eventual completion is absorbed as a no-op.
func (c *Controller) abandonGeneration() {
	if c.state != StateGenerating {
		return
	}
	c.worker.Send(worker.InterruptCommand{})
	if dropped := c.acc.Discard(); dropped != nil {
		c.dropFromTranscript(dropped)
	}
	c.state = StateReady
	c.disarmStall()
}

func (c *Controller) dropFromTranscript(msg *model.Message) {
	for i, m := range c.transcript {
		if m == msg {
			c.transcript = append(c.transcript[:i], c.transcript[i+1:]...)
			return
		}
	}
}

// turns converts the transcript to the worker wire form. Only finalized
// turns are included.
func (c *Controller) turns() []worker.Turn {
	out := make([]worker.Turn, 0, len(c.transcript))
	for _, m := range c.transcript {
		if m.InFlight {
			continue
		}
		out = append(out, worker.Turn{Role: m.Role.String(), Content: m.Content})
	}
	return out
}

func (c *Controller) armStall() {
	if c.cfg.StallTimeout <= 0 {
		return
	}
	if c.stall == nil {
		c.stall = time.NewTimer(c.cfg.StallTimeout)
		return
	}
	if !c.stall.Stop() {
		select {
		case <-c.stall.C:
		default:
		}
	}
	c.stall.Reset(c.cfg.StallTimeout)
}

func (c *Controller) disarmStall() {
	if c.stall == nil {
		return
	}
	if !c.stall.Stop() {
		select {
		case <-c.stall.C:
		default:
		}
	}
	c.stall = nil
}

// =============================================================================
// OBSERVERS
// =============================================================================

// Subscribe registers an observer. The returned channel has a buffer of
// one; a slow observer sees the latest snapshot, not every intermediate
// one. The cancel function unregisters and closes the channel.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan Snapshot, 1)
	c.subs[id] = ch
	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// publish delivers the current snapshot to every observer, replacing an
// unconsumed older snapshot rather than blocking.
func (c *Controller) publish() {
	snap := c.snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (c *Controller) publishThrottled() {
	c.throttle.Do(c.publish)
}

// snapshot captures an immutable copy of the controller state.
func (c *Controller) snapshot() Snapshot {
	lines := make([]ChatLine, len(c.transcript))
	for i, m := range c.transcript {
		lines[i] = ChatLine{Role: m.Role, Content: m.DisplayContent(), InFlight: m.InFlight}
	}
	chats := make([]store.ChatMeta, len(c.chats))
	copy(chats, c.chats)
	return Snapshot{
		State:         c.state,
		Err:           c.errMsg,
		LoadingStatus: c.loadingStatus,
		Downloads:     c.prog.Items(),
		ChatID:        c.chatID,
		Transcript:    lines,
		Stats:         c.acc.Stats(),
		Chats:         chats,
	}
}
