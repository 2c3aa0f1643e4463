// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/llmchat-tui/internal/model"
	"github.com/jeranaias/llmchat-tui/internal/session"
	"github.com/jeranaias/llmchat-tui/internal/ui/styles"
	"github.com/jeranaias/llmchat-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the whole frame from the latest snapshot.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	if m.showList {
		return m.renderChatList()
	}

	var body string
	switch m.snap.State {
	case session.StateIdle, session.StateLoading:
		body = m.renderLoading()
	case session.StateError:
		body = m.renderError()
	default:
		body = m.viewport.View() + "\n" + m.renderInput()
	}

	return body + "\n" + m.renderStatusBar()
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshViewport re-renders the transcript into the viewport. With
// follow set the view sticks to the bottom while new content streams in,
// unless the user has scrolled away.
func (m *Model) refreshViewport(follow bool) {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if follow && (atBottom || m.snap.Generating()) {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderTranscript() string {
	if len(m.snap.Transcript) == 0 {
		return m.theme.TranscriptFiller.Render("No messages yet. Type below to start.")
	}

	bubbleWidth := m.width - 8
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	var sb strings.Builder
	for i, line := range m.snap.Transcript {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderLine(line, bubbleWidth))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderLine(line session.ChatLine, maxWidth int) string {
	if line.Role == model.RoleUser {
		label := m.theme.UserLabel.Render(line.Role.DisplayName())
		bubble := m.theme.UserBubble.MaxWidth(maxWidth).Render(line.Content)
		return lipgloss.JoinVertical(lipgloss.Right, label, bubble)
	}

	label := m.theme.AssistantLabel.Render(line.Role.DisplayName())
	if line.InFlight {
		content := line.Content
		if content == "" {
			content = m.spin.View() + " thinking"
		} else {
			content += " " + m.spin.View()
		}
		bubble := m.theme.InFlightBubble.MaxWidth(maxWidth).Render(content)
		return lipgloss.JoinVertical(lipgloss.Left, label, bubble)
	}

	content := line.Content
	if m.markdown != nil {
		if rendered, err := m.markdown.Render(content); err == nil {
			content = strings.TrimRight(rendered, "\n")
		}
	}
	bubble := m.theme.AssistantBubble.MaxWidth(maxWidth).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, label, bubble)
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
}

// =============================================================================
// LOADING SCREEN
// =============================================================================

func (m Model) renderLoading() string {
	var sb strings.Builder

	status := m.snap.LoadingStatus
	if status == "" {
		status = "Starting..."
	}
	sb.WriteString(m.theme.LoadingTitle.Render(m.spin.View() + " " + status))
	sb.WriteString("\n\n")

	for _, item := range m.snap.Downloads {
		label := item.Label
		if label == "" {
			label = item.ResourceID
		}
		sb.WriteString(m.theme.DownloadLabel.Render(util.TruncateWidth(label, 40)))
		sb.WriteString("\n")

		bar := styles.RenderProgressBar(30, item.Percent())
		sb.WriteString(m.theme.DownloadBar.Render(bar))
		sb.WriteString(" ")
		if item.Total > 0 {
			sb.WriteString(m.theme.DownloadBytes.Render(fmt.Sprintf(
				"%s / %s (%.0f%%)",
				formatBytes(item.Loaded), formatBytes(item.Total), item.Percent(),
			)))
		} else {
			sb.WriteString(m.theme.DownloadBytes.Render(formatBytes(item.Loaded)))
		}
		sb.WriteString("\n\n")
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Height(m.height - 2).
		Render(sb.String())
}

// =============================================================================
// ERROR SCREEN
// =============================================================================

func (m Model) renderError() string {
	title := m.theme.ErrorTitle.Render("Something went wrong")
	body := m.snap.Err
	hint := m.theme.ShortcutDesc.Render("Press Enter to reset.")

	box := m.theme.ErrorBox.MaxWidth(m.width - 4).Render(
		title + "\n\n" + body + "\n\n" + hint,
	)
	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	state := m.snap.State.String()
	stateStyled := m.theme.StatusState.
		Foreground(styles.StateColor(state)).
		Render(strings.ToUpper(state))

	parts := []string{stateStyled}

	if m.opts.ModelName != "" {
		parts = append(parts, m.opts.ModelName)
	}

	if m.opts.ShowStats && m.snap.Stats.TokenCount > 0 {
		parts = append(parts, m.theme.StatusStats.Render(fmt.Sprintf(
			"%d tok @ %.1f tok/s", m.snap.Stats.TokenCount, m.snap.Stats.TokensPerSecond,
		)))
	}

	if m.note != "" {
		parts = append(parts, m.theme.StatusStats.Render(util.TruncateWidth(m.note, 48)))
	}

	var hints []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints,
			m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	parts = append(parts, strings.Join(hints, "  "))

	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, " | "))
}

// =============================================================================
// CHAT LIST OVERLAY
// =============================================================================

func (m Model) renderChatList() string {
	var sb strings.Builder
	sb.WriteString(m.theme.ListTitle.Render("Chats"))
	sb.WriteString("\n\n")

	for i, meta := range m.snap.Chats {
		title := util.TruncateWidth(meta.DisplayTitle(), 36)
		line := fmt.Sprintf("%s  %s", title,
			m.theme.ListMeta.Render(fmt.Sprintf("(%d msgs)", meta.MessageCount)))

		switch {
		case i == m.listIndex:
			sb.WriteString(m.theme.ListItemSelected.Render(line))
		case meta.ID == m.snap.ChatID:
			sb.WriteString(m.theme.ListItemCurrent.Render(line))
		default:
			sb.WriteString(m.theme.ListItem.Render(line))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.theme.ShortcutDesc.Render("Enter open  C-d delete  Esc close"))

	box := m.theme.ListBox.Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// HELPERS
// =============================================================================

func formatBytes(n int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case n >= gb:
		return fmt.Sprintf("%.1f GB", float64(n)/gb)
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
