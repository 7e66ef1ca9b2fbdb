// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the render-only building blocks of the vscan
// TUI: the conversation sidebar, message blocks, the status bar, scan
// statistics, and code and markdown rendering.
//
// Components hold no Bubble Tea state; the chat and dashboard models call
// them from View with plain data.
package components
