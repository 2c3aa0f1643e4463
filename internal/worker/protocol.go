// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package worker defines the controller/execution-context protocol.
package worker

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one entry of the transcript handed to the worker for generation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// COMMANDS (controller -> worker)
// =============================================================================

// Command is a message sent to the worker. The type set is sealed: every
// implementation lives in this package so handlers can type-switch
// exhaustively.
type Command interface {
	isCommand()
}

// CheckCommand asks the worker to verify it can run at all.
type CheckCommand struct{}

// LoadCommand asks the worker to load the model.
type LoadCommand struct{}

// GenerateCommand asks the worker to generate an assistant response for
// the given transcript. Messages are in chronological turn order.
type GenerateCommand struct {
	Messages []Turn
}

// InterruptCommand asks the worker to stop the current generation early.
// Interruption is advisory: the worker still finalizes the generation
// with a single CompleteEvent.
type InterruptCommand struct{}

func (CheckCommand) isCommand()     {}
func (LoadCommand) isCommand()      {}
func (GenerateCommand) isCommand()  {}
func (InterruptCommand) isCommand() {}

// =============================================================================
// EVENTS (worker -> controller)
// =============================================================================

// Event is a message received from the worker. Sealed like Command.
type Event interface {
	isEvent()
}

// LoadingEvent carries a human-readable status line during model loading.
type LoadingEvent struct {
	Message string
}

// InitiateEvent announces a download resource the loader will fetch.
type InitiateEvent struct {
	ResourceID string
	Label      string
	Total      int64
}

// ProgressEvent updates the transfer progress of one resource.
type ProgressEvent struct {
	ResourceID string
	Loaded     int64
	Total      int64
}

// DoneEvent signals that one resource finished downloading.
type DoneEvent struct {
	ResourceID string
}

// ReadyEvent signals that the model is loaded and generation may begin.
type ReadyEvent struct{}

// StartEvent signals the beginning of a generation.
type StartEvent struct{}

// UpdateEvent delivers one streamed delta together with the worker's
// throughput numbers. The worker is authoritative for TPS and TokenCount.
type UpdateEvent struct {
	Delta      string
	TPS        float64
	TokenCount int
}

// CompleteEvent signals the end of a generation, natural or interrupted.
type CompleteEvent struct{}

// ErrorEvent reports a worker-side failure.
type ErrorEvent struct {
	Message string
}

func (LoadingEvent) isEvent()  {}
func (InitiateEvent) isEvent() {}
func (ProgressEvent) isEvent() {}
func (DoneEvent) isEvent()     {}
func (ReadyEvent) isEvent()    {}
func (StartEvent) isEvent()    {}
func (UpdateEvent) isEvent()   {}
func (CompleteEvent) isEvent() {}
func (ErrorEvent) isEvent()    {}

// =============================================================================
// CHANNEL INTERFACE
// =============================================================================

// Channel is the bidirectional message channel to the execution context.
// It is constructed once and injected into the session controller.
type Channel interface {
	// Send dispatches a command to the worker. It never blocks; delivery
	// and execution are asynchronous.
	Send(cmd Command)

	// Events returns the stream of worker events. Events arrive in the
	// order the worker emitted them. The channel is closed by Close.
	Events() <-chan Event

	// Close releases the worker. Any in-flight generation is abandoned.
	Close() error
}
