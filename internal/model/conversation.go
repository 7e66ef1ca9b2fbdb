// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// DefaultTitle is the title the backend assigns when none is given.
const DefaultTitle = "New Conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a titled, timestamped sequence of chat messages.
//
// List responses carry MessageCount and no Messages; single-conversation
// responses carry Messages.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
	MessageCount int       `json:"message_count,omitempty"`
	Messages     []Message `json:"messages,omitempty"`
}

// GetTitle returns the conversation title or the default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return DefaultTitle
}

// ActivityTime is the sort key for conversation lists: the last update time,
// falling back to the creation time when the conversation was never updated.
func (c *Conversation) ActivityTime() time.Time {
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt.Time
	}
	return c.CreatedAt.Time
}

// Count returns the number of messages, preferring the loaded list.
func (c *Conversation) Count() int {
	if len(c.Messages) > 0 {
		return len(c.Messages)
	}
	return c.MessageCount
}

// Meta returns a copy stripped of messages, suitable for the conversation list.
func (c *Conversation) Meta() Conversation {
	return Conversation{
		ID:           c.ID,
		Title:        c.Title,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: c.Count(),
	}
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Messages = make([]Message, len(c.Messages))
	for i, msg := range c.Messages {
		clone.Messages[i] = msg.clone()
	}
	return &clone
}

func (m Message) clone() Message {
	if m.Versions != nil {
		m.Versions = append([]Version(nil), m.Versions...)
	}
	if m.ReplyTo != nil {
		r := *m.ReplyTo
		m.ReplyTo = &r
	}
	return m
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// =============================================================================
// SEARCH RESULTS
// =============================================================================

// MatchType tells whether a search hit came from a title or message content.
type MatchType string

const (
	MatchTitle   MatchType = "title"
	MatchMessage MatchType = "message"
)

// SearchResult is one conversation matched by a search query.
// Message matches carry the snippet around each hit and the hit message indexes.
type SearchResult struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MatchType    MatchType `json:"match_type"`
	Snippet      string    `json:"snippet,omitempty"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
	Matches      []string  `json:"matches"`
	MatchIndexes []int     `json:"matchIndexes"`
}
