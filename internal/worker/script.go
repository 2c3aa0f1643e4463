// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package worker defines the controller/execution-context protocol.
package worker

import "sync"

// =============================================================================
// SCRIPTED WORKER (test double)
// =============================================================================

// Script is an in-process Channel implementation that records the commands
// it receives and emits whatever events the test scripts. It exercises the
// controller without a real execution context.
type Script struct {
	mu     sync.Mutex
	sent   []Command
	events chan Event
	closed bool
}

// NewScript creates a scripted worker with a buffered event stream.
func NewScript() *Script {
	return &Script{events: make(chan Event, 128)}
}

// Send records the command. Nothing is executed.
func (s *Script) Send(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, cmd)
}

// Events returns the scripted event stream.
func (s *Script) Events() <-chan Event {
	return s.events
}

// Close closes the event stream.
func (s *Script) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

// Emit delivers one event to the controller, as the worker would.
func (s *Script) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.events <- ev
	}
}

// Sent returns a copy of all commands received so far.
func (s *Script) Sent() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.sent))
	copy(out, s.sent)
	return out
}

// SentOfType counts received commands matching the given probe.
func (s *Script) SentOfType(match func(Command) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, cmd := range s.sent {
		if match(cmd) {
			n++
		}
	}
	return n
}
