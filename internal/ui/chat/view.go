// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/ui/components"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
	"github.com/jeranaias/vscan-tui/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// render lays out header, sidebar beside the transcript and input, the
// message line and the status bar. The heights match layout().
func (m Model) render() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	heading := ""
	if m.results != nil {
		heading = fmt.Sprintf("Search: %s", m.query)
	}
	activeID := ""
	if m.snap.Active != nil {
		activeID = m.snap.Active.ID
	}
	sidebar := components.Sidebar{
		Items:    m.sidebarItems(),
		Cursor:   m.cursor,
		ActiveID: activeID,
		Focused:  m.focus == FocusSidebar,
		Width:    m.sidebarWidth,
		Height:   m.height - 3,
		Heading:  heading,
	}.Render(m.theme)

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.renderStaged(),
		m.renderInput(),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main),
		m.renderMessageLine(),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := "vscan"
	if m.snap.Active != nil {
		title += " · " + util.TruncateWidth(m.snap.Active.GetTitle(), m.width/2)
	}
	return m.theme.Header.Width(m.width).MaxWidth(m.width).Render(m.theme.HeaderTitle.Render(title))
}

// renderStaged shows what the next send carries: quoted reply, attachment
// and forced web search.
func (m Model) renderStaged() string {
	var parts []string
	if m.replyTo != nil && *m.replyTo < len(m.snap.Messages) {
		quoted := m.snap.Messages[*m.replyTo].Shown
		parts = append(parts, m.theme.ReplyQuote.Render("↪ "+model.ReplyPreview(quoted, model.ReplyPreviewLength)))
	}
	if m.attachment != nil {
		parts = append(parts, m.theme.Attachment.Render("📎 "+m.attachment.DisplayName))
	}
	if m.webSearch {
		parts = append(parts, m.theme.WebSearch.Render("[web search]"))
	}
	line := strings.Join(parts, "  ")
	return util.TruncateWidth(line, m.viewport.Width)
}

func (m Model) renderInput() string {
	var content string
	switch m.mode {
	case ModeNormal:
		content = m.input.View()
	case ModeEdit:
		label := m.theme.PromptLabel.Render(fmt.Sprintf("Editing message %d (Enter to save, Esc to cancel)", m.editIndex+1))
		content = label + "\n" + m.input.View()
	case ModeConfirmDelete:
		title := model.DefaultTitle
		for _, item := range m.sidebarItems() {
			if item.ID == m.deleteID {
				title = item.Title
			}
		}
		content = m.theme.PromptLabel.Render(fmt.Sprintf("Delete %q? (y/n)", title))
	case ModeAttach:
		content = m.prompt.View()
		if m.prompt.Value() == "" && len(m.userFiles) > 0 {
			f := m.userFiles[m.fileCursor]
			content += "\n" + m.theme.Muted.Render(fmt.Sprintf("or Enter to reuse %s (%d/%d, up/down)", f.Filename, m.fileCursor+1, len(m.userFiles)))
		}
	default:
		content = m.prompt.View()
	}

	// Pad prompts to the textarea height so the layout does not jump.
	if lines := strings.Count(content, "\n") + 1; lines < m.input.Height() {
		content += strings.Repeat("\n", m.input.Height()-lines)
	}
	return m.theme.InputContainer.Width(m.viewport.Width).Render(content)
}

func (m Model) renderMessageLine() string {
	switch {
	case m.lastError != "":
		return styles.RenderError(util.TruncateWidth(m.lastError, m.width-4))
	case m.status != "":
		return m.theme.Muted.Render(util.TruncateWidth(m.status, m.width))
	case !m.ready:
		return m.theme.Muted.Render(m.spinner.View() + " Loading conversations...")
	}
	return ""
}

func (m Model) renderStatusBar() string {
	user := ""
	if m.auth != nil {
		if p := m.auth.Profile(); p != nil && p.UserName != "" {
			user = p.UserName
		} else if id := m.auth.UserID(); id != "" {
			user = "user " + util.TruncateRunes(id, 10)
		}
	}
	title := ""
	if m.snap.Active != nil {
		title = m.snap.Active.GetTitle()
	}

	return components.StatusBar{
		User:      user,
		Title:     title,
		Mode:      m.mode.String(),
		Streaming: m.sending,
		Spinner:   m.spinner.View(),
		WebSearch: m.snap.WebSearchUsed,
		Hints:     m.currentHints(),
		Width:     m.width,
	}.Render(m.theme)
}

// currentHints returns the key hints for the focused area.
func (m Model) currentHints() []components.KeyHint {
	k := m.keys
	if m.mode != ModeNormal {
		return hints(k.Submit, k.Back)
	}
	switch m.focus {
	case FocusSidebar:
		return hints(k.Select, k.Rename, k.Delete, k.NextFocus, k.Back)
	case FocusMessages:
		return hints(k.Reply, k.Edit, k.OlderVer, k.NewerVer, k.Back)
	}
	return hints(k.Submit, k.NewConv, k.Search, k.WebSearch, k.Attach, k.NextFocus, k.Quit)
}
