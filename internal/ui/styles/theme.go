// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// THEME
// =============================================================================

// Theme holds every pre-built style the chat view renders with. Styles are
// built once at startup; views compose them instead of constructing styles
// per frame.
type Theme struct {
	// Transcript
	UserBubble       lipgloss.Style
	AssistantBubble  lipgloss.Style
	InFlightBubble   lipgloss.Style
	UserLabel        lipgloss.Style
	AssistantLabel   lipgloss.Style
	TranscriptFiller lipgloss.Style

	// Input area
	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	StatusState  lipgloss.Style
	StatusStats  lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// Loading screen
	LoadingTitle  lipgloss.Style
	DownloadLabel lipgloss.Style
	DownloadBar   lipgloss.Style
	DownloadBytes lipgloss.Style

	// Error box
	ErrorBox   lipgloss.Style
	ErrorTitle lipgloss.Style

	// Chat list overlay
	ListBox          lipgloss.Style
	ListTitle        lipgloss.Style
	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	ListItemCurrent  lipgloss.Style
	ListMeta         lipgloss.Style
}

// NewTheme builds the theme for the given mode: "dark", "light", or "auto".
// Auto keeps Lip Gloss's own background detection; the explicit modes pin
// it so AdaptiveColor resolves consistently on terminals that misreport.
func NewTheme(mode string) *Theme {
	switch mode {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	default:
		lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
	}

	t := &Theme{}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	// Transcript bubbles. User messages hug the right edge, assistant
	// messages the left, matching the usual messenger layout.
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1).
		MarginRight(4)

	// A still-streaming reply drops the border so the text can reflow
	// every frame without the box jumping around.
	t.InFlightBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		PaddingLeft(1).
		MarginRight(4)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.TranscriptFiller = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusState = lipgloss.NewStyle().
		Bold(true)

	t.StatusStats = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Loading screen
	t.LoadingTitle = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.DownloadLabel = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.DownloadBar = lipgloss.NewStyle().
		Foreground(Cyan)

	t.DownloadBytes = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Error box
	t.ErrorBox = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 2)

	t.ErrorTitle = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	// Chat list overlay
	t.ListBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.ListTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.ListItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.ListItemSelected = lipgloss.NewStyle().
		Background(Purple).
		Foreground(TextInverse).
		Padding(0, 1)

	t.ListItemCurrent = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true).
		Padding(0, 1)

	t.ListMeta = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// =============================================================================
// PROGRESS BAR
// =============================================================================

const (
	progressFull  = "█"
	progressEmpty = "░"
)

// RenderProgressBar renders a fixed-width bar for percent in [0, 100].
func RenderProgressBar(width int, percent float64) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(float64(width) * percent / 100)
	if filled > width {
		filled = width
	}

	var sb strings.Builder
	sb.Grow(width * 3)
	for i := 0; i < filled; i++ {
		sb.WriteString(progressFull)
	}
	for i := filled; i < width; i++ {
		sb.WriteString(progressEmpty)
	}
	return sb.String()
}

// SpinnerFrames is the ASCII line spinner used while waiting on the model.
// ASCII keeps it legible on terminals without good Unicode fonts.
var SpinnerFrames = []string{"|", "/", "-", "\\"}
