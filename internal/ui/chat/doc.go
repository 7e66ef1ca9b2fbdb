// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view of the TUI.
//
// The Model renders a session.Manager: the conversation sidebar, the
// transcript with streamed replies, and the message input. All backend work
// runs in tea.Cmds; streaming progress reaches the program through an
// injected Sender so nothing in this package holds a global program handle.
//
// Focus moves between three areas with Tab:
//   - Input: compose and send (Enter), newline (Alt+Enter)
//   - Sidebar: pick, rename or delete conversations
//   - Messages: select a message to reply to, edit, or page through versions
package chat
