// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the vscan TUI.

All colors use Lip Gloss AdaptiveColor so one palette serves light and dark
terminals. The theme mode from the config ("dark", "light", "auto") decides
which side of each pair is used.

# Color System (colors.go)

  - Purple - Primary accent for assistant messages and selections
  - Cyan - Brand color for user messages and focus rings
  - Emerald, Amber, Rose - Success, warning and error states

Severity colors come from the scanner's risk palette and are fixed across
themes so that reports and the dashboard agree:

	Critical #DC3545, High #E94A35, Medium #FFC107, Low #28A745, other #636E97

# Theme (theme.go)

	theme := styles.NewTheme("auto")
	view := theme.Sidebar.Render(list)
*/
package styles
