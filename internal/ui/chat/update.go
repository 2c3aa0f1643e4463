// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/llmchat-tui/internal/export"
	"github.com/jeranaias/llmchat-tui/internal/model"
	"github.com/jeranaias/llmchat-tui/internal/session"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update routes messages to the appropriate handler.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case snapshotMsg:
		m.snap = session.Snapshot(msg)
		m.refreshViewport(true)
		return m, listenForSnapshot(m.snaps)

	case subscriptionClosedMsg:
		return m, tea.Quit

	case exportDoneMsg:
		if msg.err != nil {
			m.note = "export failed: " + msg.err.Error()
		} else {
			m.note = "exported to " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	// Reserve rows for the input area and the status bar.
	vpHeight := msg.Height - 4
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight
	m.input.Width = msg.Width - 6

	m.rebuildRenderer(msg.Width)
	m.refreshViewport(false)
	m.ready = true
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit always works, whatever the state.
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}

	if m.showList {
		return m.handleListKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		if m.snap.State == session.StateError {
			m.ctrl.Reset()
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text != "" && m.snap.State.CanSend() {
			m.ctrl.Send(text)
			m.input.Reset()
		}
		return m, nil

	case key.Matches(msg, m.keys.Interrupt):
		if m.snap.State == session.StateError {
			m.ctrl.Reset()
		} else if m.snap.Generating() {
			m.ctrl.Interrupt()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.ctrl.NewChat()
		m.note = ""
		return m, nil

	case key.Matches(msg, m.keys.ChatList):
		if len(m.snap.Chats) > 0 {
			m.showList = true
			m.listIndex = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()

	case key.Matches(msg, m.keys.Up),
		key.Matches(msg, m.keys.Down),
		key.Matches(msg, m.keys.PageUp),
		key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	// Everything else belongs to the input field.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleListKey drives the chat list overlay.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.listIndex > 0 {
			m.listIndex--
		}
	case key.Matches(msg, m.keys.Down):
		if m.listIndex < len(m.snap.Chats)-1 {
			m.listIndex++
		}
	case key.Matches(msg, m.keys.Submit):
		if m.listIndex < len(m.snap.Chats) {
			m.ctrl.SelectChat(m.snap.Chats[m.listIndex].ID)
		}
		m.showList = false
	case key.Matches(msg, m.keys.Delete):
		if m.listIndex < len(m.snap.Chats) {
			m.ctrl.DeleteChat(m.snap.Chats[m.listIndex].ID)
			if m.listIndex > 0 {
				m.listIndex--
			}
		}
	case key.Matches(msg, m.keys.Interrupt), key.Matches(msg, m.keys.ChatList):
		m.showList = false
	}
	return m, nil
}

// =============================================================================
// EXPORT
// =============================================================================

// exportCmd writes the settled transcript to a markdown file.
func (m Model) exportCmd() tea.Cmd {
	snap := m.snap
	dir := m.opts.ExportDir
	return func() tea.Msg {
		msgs := make([]*model.Message, 0, len(snap.Transcript))
		for _, line := range snap.Transcript {
			if line.InFlight {
				continue
			}
			msgs = append(msgs, &model.Message{Role: line.Role, Content: line.Content})
		}
		if len(msgs) == 0 {
			return exportDoneMsg{err: fmt.Errorf("nothing to export")}
		}

		chat := &model.ChatSession{ID: snap.ChatID}
		for _, meta := range snap.Chats {
			if meta.ID == snap.ChatID {
				chat.Title = meta.Title
				chat.CreatedAt = meta.CreatedAt
				break
			}
		}

		opts := export.DefaultOptions()
		opts.OutputDir = dir
		path, err := export.ExportToFile(chat, msgs, export.NewMarkdownExporter(opts), opts)
		return exportDoneMsg{path: path, err: err}
	}
}
