// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"", slog.LevelInfo, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestOpenWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "llmchat.log")

	log, closer, err := Open(path, slog.LevelInfo)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	log.Info("session started", "chat", "abc123")
	log.Debug("suppressed at info level")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, `"session started"`) {
		t.Errorf("log file missing entry: %s", content)
	}
	if !strings.Contains(content, `"chat":"abc123"`) {
		t.Errorf("log file missing attribute: %s", content)
	}
	if strings.Contains(content, "suppressed") {
		t.Error("debug entry leaked through info level")
	}
}

func TestOpenLevelVarRetunesLiveLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llmchat.log")

	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	log, closer, err := Open(path, level)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	log.Debug("before retune")
	level.Set(slog.LevelDebug)
	log.Debug("after retune")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if strings.Contains(content, "before retune") {
		t.Error("debug entry leaked while level was info")
	}
	if !strings.Contains(content, "after retune") {
		t.Errorf("debug entry missing after lowering the level: %s", content)
	}
}
