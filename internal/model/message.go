// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Version is an archived snapshot of a message's content taken when it was edited.
type Version struct {
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

// ReplyRef points at the earlier message a user message answers.
type ReplyRef struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// Message represents a single message in a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`

	// Versions holds prior contents, oldest first. Only user messages are edited.
	Versions []Version `json:"versions,omitempty"`

	ReplyTo *ReplyRef `json:"replyTo,omitempty"`

	// Attached document, if any.
	HasFile  bool   `json:"hasFile,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileID   string `json:"file_id,omitempty"`

	// WebSearchUsed is set by some backends on assistant replies.
	WebSearchUsed bool `json:"web_search_used,omitempty"`
}

// NewUserMessage creates a user message stamped with the current time.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: Now()}
}

// NewAssistantMessage creates an assistant message stamped with the current time.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: Now()}
}

// IsUser reports whether the message was sent by the user.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}

// =============================================================================
// VERSION HISTORY
// =============================================================================

// VersionCount returns the number of archived versions.
func (m *Message) VersionCount() int {
	return len(m.Versions)
}

// ClampVersion limits idx to the valid display range [0, VersionCount()].
func (m *Message) ClampVersion(idx int) int {
	if idx < 0 {
		return 0
	}
	if n := len(m.Versions); idx > n {
		return n
	}
	return idx
}

// ContentAt returns the content shown at display index idx.
// Index 0 is the current content; index k > 0 selects the k-th most recent
// archived version, so the oldest version is at index VersionCount().
func (m *Message) ContentAt(idx int) string {
	idx = m.ClampVersion(idx)
	if idx == 0 {
		return m.Content
	}
	return m.Versions[len(m.Versions)-idx].Content
}

// Edit replaces the content and archives the previous content as a version.
// The previous content is never discarded.
func (m *Message) Edit(content string, at Timestamp) {
	m.Versions = append(m.Versions, Version{Content: m.Content, Timestamp: m.Timestamp})
	m.Content = content
	m.Timestamp = at
}

// VersionLabel returns the "N of M" label for display index idx, or "" when the
// message has no history. The current content is always "M of M".
func (m *Message) VersionLabel(idx int) string {
	total := len(m.Versions) + 1
	if total == 1 {
		return ""
	}
	pos := total - m.ClampVersion(idx)
	return strconv.Itoa(pos) + " of " + strconv.Itoa(total)
}

// =============================================================================
// PREVIEWS
// =============================================================================

// ReplyPreviewLength is the default length of a quoted reply preview.
const ReplyPreviewLength = 80

// ReplyPreview collapses whitespace runs to single spaces and truncates the
// result to maxLen runes, appending "..." when something was cut.
func ReplyPreview(content string, maxLen int) string {
	single := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(single) <= maxLen {
		return single
	}
	runes := []rune(single)
	return string(runes[:maxLen]) + "..."
}

// Preview returns a single-line preview of the message content.
func (m *Message) Preview(maxLen int) string {
	return ReplyPreview(m.Content, maxLen)
}
