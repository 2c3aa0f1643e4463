// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view.
//
// The view is a thin projection of session.Snapshot values: it subscribes
// to the session controller, bridges each published snapshot into a
// tea.Msg, and re-renders from the snapshot alone. All chat semantics
// (lifecycle, streaming, persistence) live in the controller; the view
// only translates keystrokes into controller intents and snapshots into
// terminal frames.
package chat
