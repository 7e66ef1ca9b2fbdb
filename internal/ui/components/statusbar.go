// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vscan-tui/internal/ui/styles"
	"github.com/jeranaias/vscan-tui/internal/util"
)

// KeyHint is a key and what it does, shown in the status bar.
type KeyHint struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line of the chat screen.
type StatusBar struct {
	User      string
	Title     string
	Mode      string
	Streaming bool
	Spinner   string
	WebSearch bool
	Hints     []KeyHint
	Width     int
}

// Render renders the status bar at full width. Hints are dropped from the
// right until the line fits.
func (s StatusBar) Render(theme *styles.Theme) string {
	var left []string
	if s.User != "" {
		left = append(left, theme.StatusKey.Render(s.User))
	}
	if s.Title != "" {
		left = append(left, util.TruncateWidth(s.Title, 32))
	}
	if s.Mode != "" {
		left = append(left, theme.PromptLabel.Render(strings.ToUpper(s.Mode)))
	}
	if s.Streaming {
		left = append(left, theme.Spinner.Render(s.Spinner)+" streaming")
	}
	if s.WebSearch {
		left = append(left, theme.WebSearch.Render("web search"))
	}
	leftText := strings.Join(left, " │ ")

	hints := make([]string, 0, len(s.Hints))
	for _, h := range s.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+" "+theme.StatusDesc.Render(h.Desc))
	}

	width := s.Width
	for len(hints) > 0 {
		right := strings.Join(hints, "  ")
		if width <= 0 || lipgloss.Width(leftText)+lipgloss.Width(right)+4 <= width {
			break
		}
		hints = hints[:len(hints)-1]
	}
	right := strings.Join(hints, "  ")

	gap := width - lipgloss.Width(leftText) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	line := leftText + strings.Repeat(" ", gap) + right

	bar := theme.StatusBar
	if width > 0 {
		bar = bar.Width(width).MaxWidth(width)
	}
	return bar.Render(line)
}
