// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/llmchat-tui/internal/session"
	"github.com/jeranaias/llmchat-tui/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Options configures the chat view.
type Options struct {
	// Markdown enables Glamour rendering of settled assistant messages.
	Markdown bool

	// ShowStats shows tokens/sec in the status bar.
	ShowStats bool

	// ModelName is displayed in the status bar.
	ModelName string

	// ExportDir is where transcript exports are written.
	ExportDir string
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctrl      *session.Controller
	snaps     <-chan session.Snapshot
	cancelSub func()

	snap session.Snapshot
	opts Options

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	keys     KeyMap
	theme    *styles.Theme
	markdown *glamour.TermRenderer

	width  int
	height int
	ready  bool

	// Chat list overlay
	showList  bool
	listIndex int

	// Transient status bar note (export results)
	note string
}

// New creates the chat view bound to a running controller.
func New(ctrl *session.Controller, theme *styles.Theme, opts Options) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.PlaceholderStyle = theme.InputPlaceholder
	input.CharLimit = 0
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Spinner{
		Frames: styles.SpinnerFrames,
		FPS:    time.Second / 10,
	}
	spin.Style = lipgloss.NewStyle().Foreground(styles.Amber)

	snaps, cancel := ctrl.Subscribe()

	m := Model{
		ctrl:      ctrl,
		snaps:     snaps,
		cancelSub: cancel,
		opts:      opts,
		viewport:  viewport.New(80, 20),
		input:     input,
		spin:      spin,
		keys:      DefaultKeyMap(),
		theme:     theme,
	}
	m.rebuildRenderer(80)
	return m
}

// Init starts snapshot delivery, the spinner, and kicks off the model
// load. The load intent is a no-op unless the controller is idle.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listenForSnapshot(m.snaps),
		m.spin.Tick,
		textinput.Blink,
		func() tea.Msg {
			m.ctrl.Load()
			return nil
		},
	)
}

// Close releases the snapshot subscription.
func (m Model) Close() {
	if m.cancelSub != nil {
		m.cancelSub()
	}
}

// rebuildRenderer recreates the Glamour renderer for a new wrap width.
// Glamour renderers are immutable once built, so resize means rebuild.
func (m *Model) rebuildRenderer(width int) {
	if !m.opts.Markdown {
		return
	}
	wrap := width - 8
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		// Fall back to plain text rendering.
		m.markdown = nil
		return
	}
	m.markdown = r
}
