// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package worker defines the controller/execution-context protocol.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// OLLAMA CONFIGURATION
// =============================================================================

// OllamaConfig holds configuration for the Ollama-backed worker.
type OllamaConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6
	// resolution issues on Windows
	BaseURL string

	// Model is the model name to load and generate with
	Model string

	// CheckTimeout bounds the health check request (default: 5s)
	CheckTimeout time.Duration
}

// DefaultOllamaConfig returns the default worker configuration.
func DefaultOllamaConfig() *OllamaConfig {
	return &OllamaConfig{
		BaseURL:      "http://127.0.0.1:11434",
		Model:        "qwen2.5:7b",
		CheckTimeout: 5 * time.Second,
	}
}

// =============================================================================
// OLLAMA WORKER
// =============================================================================

// Ollama implements Channel against a local Ollama server.
//
// Commands are executed sequentially by a single goroutine, which is also
// the only sender on the event channel; this preserves the protocol's
// per-direction ordering guarantee. InterruptCommand is the exception: it
// takes effect immediately by cancelling the in-flight generation's
// context, and the aborted stream still finalizes through a single
// CompleteEvent.
type Ollama struct {
	config     *OllamaConfig
	httpClient *http.Client

	cmds   chan Command
	events chan Event

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	genCancel context.CancelFunc
	closed    bool
}

// NewOllama creates a worker talking to a local Ollama server.
func NewOllama(config *OllamaConfig) *Ollama {
	if config == nil {
		config = DefaultOllamaConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:11434"
	}
	if config.CheckTimeout == 0 {
		config.CheckTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Ollama{
		config: config,
		// SECURITY: TLS not required - Ollama runs locally on 127.0.0.1 over HTTP.
		// Streaming requests rely on context cancellation, not client timeouts.
		httpClient: &http.Client{},
		cmds:       make(chan Command, 64),
		events:     make(chan Event, 64),
		ctx:        ctx,
		cancel:     cancel,
	}

	go w.run()
	return w
}

// Send dispatches a command. It never blocks: if the worker is saturated
// or closed the command is dropped, which is within the fire-and-forget
// contract.
func (w *Ollama) Send(cmd Command) {
	if _, ok := cmd.(InterruptCommand); ok {
		w.interrupt()
		return
	}

	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	select {
	case w.cmds <- cmd:
	default:
	}
}

// Events returns the worker's event stream.
func (w *Ollama) Events() <-chan Event {
	return w.events
}

// Close releases the worker and closes the event stream.
func (w *Ollama) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	close(w.cmds)
	return nil
}

// =============================================================================
// COMMAND LOOP
// =============================================================================

// run executes commands sequentially and is the sole sender on w.events.
func (w *Ollama) run() {
	defer close(w.events)

	for cmd := range w.cmds {
		switch c := cmd.(type) {
		case CheckCommand:
			w.handleCheck()
		case LoadCommand:
			w.handleLoad()
		case GenerateCommand:
			w.handleGenerate(c.Messages)
		case InterruptCommand:
			// Handled in Send; never queued.
		}

		if w.ctx.Err() != nil {
			return
		}
	}
}

// emit delivers an event unless the worker has been shut down.
func (w *Ollama) emit(ev Event) {
	select {
	case w.events <- ev:
	case <-w.ctx.Done():
	}
}

func (w *Ollama) interrupt() {
	w.mu.Lock()
	cancel := w.genCancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// =============================================================================
// CHECK
// =============================================================================

func (w *Ollama) handleCheck() {
	ctx, cancel := context.WithTimeout(w.ctx, w.config.CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.config.BaseURL+"/api/version", nil)
	if err != nil {
		w.emit(ErrorEvent{Message: "ollama check failed: " + err.Error()})
		return
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.emit(ErrorEvent{Message: "ollama is not reachable at " + w.config.BaseURL})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		w.emit(ErrorEvent{Message: "unexpected status from ollama: " + resp.Status})
	}
}

// =============================================================================
// LOAD (model pull with per-layer progress)
// =============================================================================

// pullLine is one NDJSON line of the /api/pull stream.
type pullLine struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (w *Ollama) handleLoad() {
	w.emit(LoadingEvent{Message: "Loading " + w.config.Model})

	body, err := json.Marshal(map[string]any{
		"name":   w.config.Model,
		"stream": true,
	})
	if err != nil {
		w.emit(ErrorEvent{Message: "failed to marshal pull request: " + err.Error()})
		return
	}

	req, err := http.NewRequestWithContext(w.ctx, http.MethodPost, w.config.BaseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		w.emit(ErrorEvent{Message: "failed to create pull request: " + err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.emit(ErrorEvent{Message: "ollama is not reachable at " + w.config.BaseURL})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		w.emit(ErrorEvent{Message: "model pull failed: " + resp.Status})
		return
	}

	// Each layer digest becomes one download resource. A digest is
	// initiated on first sight, progressed on every line, and done once
	// its completed byte count reaches its total.
	initiated := make(map[string]bool)
	finished := make(map[string]bool)
	var order []string

	reader := newLineReader(resp.Body)
	for {
		line, err := reader.next()
		if err != nil {
			break
		}
		if len(line) == 0 {
			continue
		}

		var pl pullLine
		if err := json.Unmarshal(line, &pl); err != nil {
			continue // skip malformed lines
		}

		if pl.Error != "" {
			w.emit(ErrorEvent{Message: pl.Error})
			return
		}

		if pl.Digest != "" {
			if !initiated[pl.Digest] {
				initiated[pl.Digest] = true
				order = append(order, pl.Digest)
				w.emit(InitiateEvent{
					ResourceID: pl.Digest,
					Label:      shortDigest(pl.Digest),
					Total:      pl.Total,
				})
			}
			w.emit(ProgressEvent{ResourceID: pl.Digest, Loaded: pl.Completed, Total: pl.Total})
			if !finished[pl.Digest] && pl.Total > 0 && pl.Completed >= pl.Total {
				finished[pl.Digest] = true
				w.emit(DoneEvent{ResourceID: pl.Digest})
			}
			continue
		}

		if pl.Status == "success" {
			break
		}
		if pl.Status != "" {
			w.emit(LoadingEvent{Message: pl.Status})
		}
	}

	// Layers already present locally never report completed == total;
	// settle them so the progress set is empty before Ready.
	for _, digest := range order {
		if !finished[digest] {
			w.emit(DoneEvent{ResourceID: digest})
		}
	}

	w.emit(ReadyEvent{})
}

// shortDigest trims "sha256:<hex>" to a display label.
func shortDigest(digest string) string {
	s := strings.TrimPrefix(digest, "sha256:")
	if len(s) > 12 {
		s = s[:12]
	}
	return s
}

// =============================================================================
// GENERATE (streaming chat)
// =============================================================================

// chatLine is one NDJSON line of the /api/chat stream.
type chatLine struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done         bool   `json:"done"`
	EvalCount    int    `json:"eval_count,omitempty"`
	EvalDuration int64  `json:"eval_duration,omitempty"` // nanoseconds
	Error        string `json:"error,omitempty"`
}

func (w *Ollama) handleGenerate(messages []Turn) {
	ctx, cancel := context.WithCancel(w.ctx)
	w.mu.Lock()
	w.genCancel = cancel
	w.mu.Unlock()
	defer func() {
		cancel()
		w.mu.Lock()
		w.genCancel = nil
		w.mu.Unlock()
	}()

	body, err := json.Marshal(map[string]any{
		"model":    w.config.Model,
		"messages": messages,
		"stream":   true,
	})
	if err != nil {
		w.emit(ErrorEvent{Message: "failed to marshal chat request: " + err.Error()})
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		w.emit(ErrorEvent{Message: "failed to create chat request: " + err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			// Interrupted before the stream opened: the generation still
			// finalizes through its single CompleteEvent.
			w.emit(StartEvent{})
			w.emit(CompleteEvent{})
			return
		}
		w.emit(ErrorEvent{Message: "ollama is not reachable at " + w.config.BaseURL})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		w.emit(ErrorEvent{Message: "chat request failed: " + resp.Status})
		return
	}

	w.emit(StartEvent{})

	tokenCount := 0
	started := time.Now()

	reader := newLineReader(resp.Body)
	for {
		line, err := reader.next()
		if err != nil {
			if ctx.Err() == context.Canceled {
				break // interrupted mid-stream
			}
			w.emit(ErrorEvent{Message: "chat stream aborted: " + err.Error()})
			return
		}
		if len(line) == 0 {
			continue
		}

		var cl chatLine
		if err := json.Unmarshal(line, &cl); err != nil {
			continue // skip malformed lines
		}

		if cl.Error != "" {
			w.emit(ErrorEvent{Message: cl.Error})
			return
		}

		if cl.Message.Content != "" {
			tokenCount++
		}

		switch {
		case cl.Done && cl.EvalDuration > 0:
			// The final chunk carries exact server-side numbers. It usually
			// has no text, so the stats ride an update with an empty delta.
			tps := float64(cl.EvalCount) / (float64(cl.EvalDuration) / 1e9)
			w.emit(UpdateEvent{Delta: cl.Message.Content, TPS: tps, TokenCount: cl.EvalCount})
		case cl.Message.Content != "":
			tps := 0.0
			if elapsed := time.Since(started).Seconds(); elapsed > 0 {
				tps = float64(tokenCount) / elapsed
			}
			w.emit(UpdateEvent{Delta: cl.Message.Content, TPS: tps, TokenCount: tokenCount})
		}

		if cl.Done {
			break
		}
	}

	w.emit(CompleteEvent{})
}
