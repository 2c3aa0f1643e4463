// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package worker defines the controller/execution-context protocol.
package worker

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains events until the predicate says stop or the timeout hits.
func collect(t *testing.T, ch <-chan Event, done func(Event) bool) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
			if done(ev) {
				return events
			}
		case <-deadline:
			t.Fatalf("timed out waiting for events, got %d so far", len(events))
		}
	}
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestOllamaLoadEmitsProgressTriples(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/pull", r.URL.Path)
		rw.Header().Set("Content-Type", "application/x-ndjson")
		lines := []string{
			`{"status":"pulling manifest"}`,
			`{"status":"pulling a1","digest":"sha256:aaa111","total":100,"completed":0}`,
			`{"status":"pulling a1","digest":"sha256:aaa111","total":100,"completed":50}`,
			`{"status":"pulling a1","digest":"sha256:aaa111","total":100,"completed":100}`,
			`{"status":"verifying sha256 digest"}`,
			`{"status":"success"}`,
		}
		for _, l := range lines {
			rw.Write([]byte(l + "\n"))
		}
	}))
	defer srv.Close()

	w := NewOllama(&OllamaConfig{BaseURL: srv.URL, Model: "test-model"})
	defer w.Close()

	w.Send(LoadCommand{})
	events := collect(t, w.Events(), func(ev Event) bool {
		_, ok := ev.(ReadyEvent)
		return ok
	})

	var initiates, progresses, dones, readies int
	for _, ev := range events {
		switch e := ev.(type) {
		case InitiateEvent:
			initiates++
			assert.Equal(t, "sha256:aaa111", e.ResourceID)
			assert.Equal(t, int64(100), e.Total)
		case ProgressEvent:
			progresses++
		case DoneEvent:
			dones++
		case ReadyEvent:
			readies++
		}
	}
	assert.Equal(t, 1, initiates, "one initiate per digest")
	assert.Equal(t, 3, progresses)
	assert.Equal(t, 1, dones)
	assert.Equal(t, 1, readies)

	// Ready must come after the digest's done.
	_, lastIsReady := events[len(events)-1].(ReadyEvent)
	assert.True(t, lastIsReady)
}

func TestOllamaLoadSettlesCachedLayers(t *testing.T) {
	// Layers already present never report completed == total; the worker
	// must still emit their done before ready.
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		lines := []string{
			`{"status":"pulling b2","digest":"sha256:bbb222","total":100,"completed":40}`,
			`{"status":"success"}`,
		}
		for _, l := range lines {
			rw.Write([]byte(l + "\n"))
		}
	}))
	defer srv.Close()

	w := NewOllama(&OllamaConfig{BaseURL: srv.URL, Model: "test-model"})
	defer w.Close()

	w.Send(LoadCommand{})
	events := collect(t, w.Events(), func(ev Event) bool {
		_, ok := ev.(ReadyEvent)
		return ok
	})

	sawDone := false
	for _, ev := range events {
		if d, ok := ev.(DoneEvent); ok {
			sawDone = true
			assert.Equal(t, "sha256:bbb222", d.ResourceID)
		}
	}
	assert.True(t, sawDone, "expected a settling done event before ready")
}

func TestOllamaLoadUnreachable(t *testing.T) {
	w := NewOllama(&OllamaConfig{BaseURL: "http://127.0.0.1:1", Model: "test-model"})
	defer w.Close()

	w.Send(LoadCommand{})
	events := collect(t, w.Events(), func(ev Event) bool {
		_, ok := ev.(ErrorEvent)
		return ok
	})
	_, ok := events[len(events)-1].(ErrorEvent)
	require.True(t, ok)
}

// =============================================================================
// GENERATE TESTS
// =============================================================================

func TestOllamaGenerateStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		lines := []string{
			`{"message":{"content":"He"},"done":false}`,
			`{"message":{"content":"llo"},"done":false}`,
			`{"message":{"content":""},"done":true,"eval_count":2,"eval_duration":1000000000}`,
		}
		for _, l := range lines {
			rw.Write([]byte(l + "\n"))
		}
	}))
	defer srv.Close()

	w := NewOllama(&OllamaConfig{BaseURL: srv.URL, Model: "test-model"})
	defer w.Close()

	w.Send(GenerateCommand{Messages: []Turn{{Role: "user", Content: "hi"}}})
	events := collect(t, w.Events(), func(ev Event) bool {
		_, ok := ev.(CompleteEvent)
		return ok
	})

	var content string
	var starts, completes int
	for _, ev := range events {
		switch e := ev.(type) {
		case StartEvent:
			starts++
		case UpdateEvent:
			content += e.Delta
			assert.Greater(t, e.TokenCount, 0)
		case CompleteEvent:
			completes++
		}
	}
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, completes)
	assert.Equal(t, "Hello", content)

	// Start precedes every update.
	_, firstIsStart := events[0].(StartEvent)
	assert.True(t, firstIsStart)
}

func TestOllamaGenerateFinalChunkCarriesExactStats(t *testing.T) {
	// The done chunk reports server-side eval numbers with no text; those
	// must still reach the controller as the last update before complete.
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		lines := []string{
			`{"message":{"content":"Hi"},"done":false}`,
			`{"message":{"content":""},"done":true,"eval_count":42,"eval_duration":2000000000}`,
		}
		for _, l := range lines {
			rw.Write([]byte(l + "\n"))
		}
	}))
	defer srv.Close()

	w := NewOllama(&OllamaConfig{BaseURL: srv.URL, Model: "test-model"})
	defer w.Close()

	w.Send(GenerateCommand{Messages: []Turn{{Role: "user", Content: "hi"}}})
	events := collect(t, w.Events(), func(ev Event) bool {
		_, ok := ev.(CompleteEvent)
		return ok
	})

	var last *UpdateEvent
	var content string
	for _, ev := range events {
		if u, ok := ev.(UpdateEvent); ok {
			content += u.Delta
			last = &u
		}
	}
	require.NotNil(t, last)
	assert.Equal(t, "Hi", content, "the stats update must not alter the text")
	assert.Equal(t, 42, last.TokenCount)
	assert.InDelta(t, 21.0, last.TPS, 0.001)
}

func TestOllamaGenerateInterrupt(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Write([]byte(`{"message":{"content":"partial"},"done":false}` + "\n"))
		if f, ok := rw.(http.Flusher); ok {
			f.Flush()
		}
		<-release // hold the stream open until the client goes away
	}))
	defer srv.Close()
	defer close(release)

	w := NewOllama(&OllamaConfig{BaseURL: srv.URL, Model: "test-model"})
	defer w.Close()

	w.Send(GenerateCommand{Messages: []Turn{{Role: "user", Content: "hi"}}})

	// Wait for the first update, then interrupt.
	var events []Event
	for ev := range w.Events() {
		events = append(events, ev)
		if _, ok := ev.(UpdateEvent); ok {
			w.Send(InterruptCommand{})
		}
		if _, ok := ev.(CompleteEvent); ok {
			break
		}
	}

	completes := 0
	errors := 0
	for _, ev := range events {
		switch ev.(type) {
		case CompleteEvent:
			completes++
		case ErrorEvent:
			errors++
		}
	}
	assert.Equal(t, 1, completes, "interrupted generation finalizes with one complete")
	assert.Equal(t, 0, errors, "interruption is not an error")
}

func TestOllamaGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewOllama(&OllamaConfig{BaseURL: srv.URL, Model: "test-model"})
	defer w.Close()

	w.Send(GenerateCommand{Messages: []Turn{{Role: "user", Content: "hi"}}})
	events := collect(t, w.Events(), func(ev Event) bool {
		_, ok := ev.(ErrorEvent)
		return ok
	})

	for _, ev := range events {
		if _, ok := ev.(CompleteEvent); ok {
			t.Fatal("failed generation must not emit complete")
		}
	}
}

// =============================================================================
// CHECK TESTS
// =============================================================================

func TestOllamaCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/version", r.URL.Path)
		rw.Write([]byte(`{"version":"0.5.0"}`))
	}))
	defer srv.Close()

	w := NewOllama(&OllamaConfig{BaseURL: srv.URL, Model: "test-model"})

	w.Send(CheckCommand{})
	// A passing check emits nothing; closing ends the stream cleanly.
	time.Sleep(100 * time.Millisecond)
	w.Close()

	for ev := range w.Events() {
		if _, ok := ev.(ErrorEvent); ok {
			t.Fatalf("unexpected error event: %+v", ev)
		}
	}
}

// =============================================================================
// SCRIPT TESTS
// =============================================================================

func TestScriptRecordsAndEmits(t *testing.T) {
	s := NewScript()
	defer s.Close()

	s.Send(LoadCommand{})
	s.Send(GenerateCommand{Messages: []Turn{{Role: "user", Content: "hi"}}})

	assert.Len(t, s.Sent(), 2)
	assert.Equal(t, 1, s.SentOfType(func(c Command) bool {
		_, ok := c.(LoadCommand)
		return ok
	}))

	s.Emit(ReadyEvent{})
	ev := <-s.Events()
	_, ok := ev.(ReadyEvent)
	assert.True(t, ok)
}
