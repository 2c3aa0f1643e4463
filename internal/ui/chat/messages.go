// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/llmchat-tui/internal/session"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// snapshotMsg carries one controller snapshot into the update loop.
type snapshotMsg session.Snapshot

// subscriptionClosedMsg signals that the controller stopped publishing,
// which only happens when its run loop exited.
type subscriptionClosedMsg struct{}

// exportDoneMsg reports the outcome of a transcript export.
type exportDoneMsg struct {
	path string
	err  error
}

// listenForSnapshot waits for the next snapshot on the subscription
// channel. The command re-arms itself from Update after every delivery.
func listenForSnapshot(ch <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return subscriptionClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}
