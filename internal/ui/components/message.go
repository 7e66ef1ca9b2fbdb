// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/session"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
	"github.com/jeranaias/vscan-tui/internal/util"
)

// =============================================================================
// MESSAGE BLOCK
// =============================================================================

// MessageBlock renders one chat message.
type MessageBlock struct {
	Message  session.DisplayMessage
	Width    int
	Selected bool

	// ShowTimestamp appends the message time to the role line.
	ShowTimestamp bool
}

// Render renders the message. Assistant content goes through md when it is
// non-nil; user content is always shown verbatim.
func (b MessageBlock) Render(theme *styles.Theme, md *MarkdownRenderer) string {
	msg := b.Message
	width := b.Width
	if width < 24 {
		width = 24
	}
	inner := width - 2

	var parts []string
	parts = append(parts, b.header(theme))

	if msg.ReplyTo != nil {
		quote := "↪ " + model.ReplyPreview(msg.ReplyTo.Content, model.ReplyPreviewLength)
		parts = append(parts, theme.ReplyQuote.Render(util.TruncateWidth(quote, inner)))
	}
	if msg.HasFile {
		name := msg.FileName
		if name == "" {
			name = msg.FileID
		}
		parts = append(parts, theme.Attachment.Render("📎 "+name))
	}

	body := msg.Shown
	if msg.Role == model.RoleAssistant && md != nil {
		body = md.Render(body, inner)
	} else {
		body = lipgloss.NewStyle().Width(inner).Render(body)
	}
	parts = append(parts, body)

	content := strings.Join(parts, "\n")

	style := theme.AssistantMessage
	switch {
	case b.Selected:
		style = theme.SelectedMessage
	case msg.Pending:
		style = theme.PendingMessage
	case msg.IsUser():
		style = theme.UserMessage
	}
	return style.Render(content)
}

func (b MessageBlock) header(theme *styles.Theme) string {
	msg := b.Message
	line := theme.RoleLabel.Render(msg.Role.DisplayName())
	if msg.VersionLabel != "" {
		line += " " + theme.VersionLabel.Render("("+msg.VersionLabel+")")
	}
	if msg.WebSearchUsed {
		line += " " + theme.WebSearch.Render("[web]")
	}
	if msg.Pending {
		line += " " + theme.Muted.Render("sending...")
	}
	if b.ShowTimestamp && !msg.Timestamp.IsZero() {
		line += " " + theme.Muted.Render(msg.Timestamp.Sidebar())
	}
	return line
}

// StreamingBlock renders the partial assistant reply with a cursor.
func StreamingBlock(theme *styles.Theme, buffer, spinner string, width int) string {
	if width < 24 {
		width = 24
	}
	header := theme.RoleLabel.Render(model.RoleAssistant.DisplayName()) + " " + theme.Spinner.Render(spinner)
	body := lipgloss.NewStyle().Width(width - 2).Render(buffer + "▌")
	return theme.AssistantMessage.Render(header + "\n" + body)
}

// MessageList renders all messages separated by blank lines. selected is the
// highlighted message index, or -1.
func MessageList(theme *styles.Theme, md *MarkdownRenderer, snap session.Snapshot, width, selected int, showTimestamps bool, spinner string) string {
	if len(snap.Messages) == 0 && !snap.Streaming {
		return theme.Muted.Render("No messages yet. Type below to start the conversation.")
	}

	blocks := make([]string, 0, len(snap.Messages)+1)
	for _, msg := range snap.Messages {
		blocks = append(blocks, MessageBlock{
			Message:       msg,
			Width:         width,
			Selected:      msg.Index == selected,
			ShowTimestamp: showTimestamps,
		}.Render(theme, md))
	}
	if snap.Streaming {
		blocks = append(blocks, StreamingBlock(theme, snap.Buffer, spinner, width))
	}
	return strings.Join(blocks, "\n\n")
}
