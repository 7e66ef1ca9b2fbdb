// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the vscan packages.
//
// # Key Functions
//
// Text layout (display-width aware, via go-runewidth):
//   - TruncateWidth, PadRight, StringWidth: column math for tables and the sidebar
//   - TruncateRunes: rune-safe truncation with ellipsis
//   - SingleLine: collapse whitespace for one-line previews
//
// File Operations:
//   - WriteFileAtomic: crash-safe writes for tokens, config and exports
//
// # Usage
//
//	cell := util.PadRight(util.TruncateWidth(title, 24), 24)
//	err := util.WriteFileAtomic(path, data, 0600, 0700)
package util
