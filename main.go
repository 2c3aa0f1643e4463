// llmchat TUI - a terminal interface for local LLM chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/llmchat-tui/internal/config"
	"github.com/jeranaias/llmchat-tui/internal/detect"
	"github.com/jeranaias/llmchat-tui/internal/logging"
	"github.com/jeranaias/llmchat-tui/internal/session"
	"github.com/jeranaias/llmchat-tui/internal/store"
	"github.com/jeranaias/llmchat-tui/internal/ui/chat"
	"github.com/jeranaias/llmchat-tui/internal/ui/styles"
	"github.com/jeranaias/llmchat-tui/internal/worker"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--version", "-v":
			fmt.Printf("llmchat v%s (%s, %s)\n", Version, GitCommit, BuildDate)
			return
		case "--help", "-h":
			printHelp()
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// The TUI owns the terminal; a pipe gets a plain refusal.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("llmchat needs an interactive terminal")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return fmt.Errorf("resolving data dir: %w", err)
	}

	// Log to a file: stdout belongs to the TUI.
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = filepath.Join(dataDir, "llmchat.log")
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logLevel := new(slog.LevelVar)
	logLevel.Set(level)
	log, logCloser, err := logging.Open(logPath, logLevel)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Capability gate. Without accelerated compute generation is too slow
	// to be usable, so refuse up front unless the user opted into CPU.
	if accelerated, reason := detect.Accelerated(ctx); !accelerated && !cfg.AllowCPU {
		fmt.Fprintln(os.Stderr, "No supported GPU detected ("+reason+").")
		fmt.Fprintln(os.Stderr, "Local generation would run on CPU and be very slow.")
		fmt.Fprintln(os.Stderr, "Set allow_cpu = true in "+configPathHint()+" to run anyway.")
		os.Exit(1)
	} else {
		log.Info("accelerator probe", "accelerated", accelerated, "hardware", reason)
	}

	st, err := store.OpenSQLite(filepath.Join(dataDir, "chats.db"))
	if err != nil {
		return fmt.Errorf("opening transcript store: %w", err)
	}
	defer st.Close()

	w := worker.NewOllama(&worker.OllamaConfig{
		BaseURL:      cfg.Ollama.URL,
		Model:        cfg.Ollama.Model,
		CheckTimeout: time.Duration(cfg.Ollama.CheckTimeoutSecs) * time.Second,
	})
	defer w.Close()

	sessCfg := session.DefaultConfig()
	sessCfg.StallTimeout = time.Duration(cfg.Generate.StallTimeoutSecs) * time.Second
	ctrl := session.NewController(w, st, log, sessCfg)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		ctrl.Run(ctx)
	}()

	// Config edits mid-session retune the log level; the running session
	// keeps its wiring, a restart applies the rest.
	if path, err := config.ConfigPath(); err == nil {
		watcher, werr := config.NewWatcher(path, 500*time.Millisecond, func(next *config.Config) {
			if lvl, perr := logging.ParseLevel(next.Log.Level); perr == nil {
				logLevel.Set(lvl)
			}
			log.Info("configuration reloaded", "path", path, "log_level", next.Log.Level)
		})
		if werr == nil && watcher.Watch() == nil {
			defer watcher.Close()
		}
	}

	theme := styles.NewTheme(cfg.UI.Theme)
	view := chat.New(ctrl, theme, chat.Options{
		Markdown:  cfg.UI.Markdown,
		ShowStats: cfg.UI.ShowStats,
		ModelName: cfg.Ollama.Model,
		ExportDir: filepath.Join(dataDir, "exports"),
	})
	defer view.Close()

	// Mouse capture stays off so terminal text selection keeps working.
	p := tea.NewProgram(view, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	cancel()
	<-runDone
	return nil
}

func configPathHint() string {
	if path, err := config.ConfigPath(); err == nil {
		return path
	}
	return "~/.llmchat/config.toml"
}

func printHelp() {
	fmt.Println(`llmchat v` + Version + `

A terminal chat interface for local LLMs served by Ollama.

Usage: llmchat [OPTIONS]

Options:
  --help, -h     Show this help
  --version, -v  Show version

Configuration lives at ` + configPathHint() + `.
Environment overrides: LLMCHAT_DATA_DIR, LLMCHAT_OLLAMA_URL,
LLMCHAT_MODEL, LLMCHAT_ALLOW_CPU, LLMCHAT_LOG_LEVEL.`)
}
