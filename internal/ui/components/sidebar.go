// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
	"github.com/jeranaias/vscan-tui/internal/util"
)

// =============================================================================
// SIDEBAR
// =============================================================================

// SidebarItem is one row of the conversation list.
type SidebarItem struct {
	ID    string
	Title string

	// Meta is the second line: the activity date or a search snippet.
	Meta string
}

// ItemsFromConversations builds sidebar rows from conversation metadata.
func ItemsFromConversations(convs []model.Conversation) []SidebarItem {
	items := make([]SidebarItem, len(convs))
	for i := range convs {
		c := &convs[i]
		items[i] = SidebarItem{
			ID:    c.ID,
			Title: c.GetTitle(),
			Meta:  model.NewTimestamp(c.ActivityTime()).Sidebar(),
		}
	}
	return items
}

// ItemsFromSearch builds sidebar rows from search hits. Message matches show
// their snippet; title matches show the date.
func ItemsFromSearch(results []model.SearchResult) []SidebarItem {
	items := make([]SidebarItem, len(results))
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = model.DefaultTitle
		}
		meta := r.UpdatedAt.Sidebar()
		if r.UpdatedAt.IsZero() {
			meta = r.CreatedAt.Sidebar()
		}
		if r.MatchType == model.MatchMessage && r.Snippet != "" {
			meta = util.SingleLine(r.Snippet)
		}
		items[i] = SidebarItem{ID: r.ID, Title: title, Meta: meta}
	}
	return items
}

// Sidebar renders the conversation list.
type Sidebar struct {
	Items    []SidebarItem
	Cursor   int
	ActiveID string
	Focused  bool
	Width    int
	Height   int

	// Heading replaces the default "Conversations" label (search mode).
	Heading string
}

// Render renders the sidebar inside its border.
func (s Sidebar) Render(theme *styles.Theme) string {
	width := s.Width
	if width < 16 {
		width = 16
	}
	inner := width - 4

	heading := s.Heading
	if heading == "" {
		heading = "Conversations"
	}

	lines := []string{theme.HeaderTitle.Render(util.TruncateWidth(heading, inner)), ""}
	if len(s.Items) == 0 {
		lines = append(lines, theme.Muted.Render("Nothing here yet"))
	}

	// Each item takes two lines plus a gap; scroll to keep the cursor visible.
	visible := len(s.Items)
	if s.Height > 0 {
		visible = (s.Height - 4) / 3
		if visible < 1 {
			visible = 1
		}
	}
	start := 0
	if s.Cursor >= visible {
		start = s.Cursor - visible + 1
	}
	end := start + visible
	if end > len(s.Items) {
		end = len(s.Items)
	}

	for i := start; i < end; i++ {
		item := s.Items[i]
		title := util.PadRight(util.TruncateWidth(item.Title, inner-2), inner-2)

		marker := "  "
		style := theme.SidebarItem
		if item.ID == s.ActiveID {
			marker = "● "
			style = theme.SidebarItemActive
		}
		if i == s.Cursor && s.Focused {
			style = theme.SidebarItemSelected
		}
		lines = append(lines,
			style.Render(marker+title),
			theme.SidebarMeta.Render("  "+util.TruncateWidth(item.Meta, inner-2)),
			"",
		)
	}

	box := theme.Sidebar
	if s.Focused {
		box = theme.SidebarFocused
	}
	box = box.Width(width - 2)
	if s.Height > 2 {
		box = box.Height(s.Height - 2)
	}
	return box.Render(strings.TrimRight(strings.Join(lines, "\n"), "\n"))
}
