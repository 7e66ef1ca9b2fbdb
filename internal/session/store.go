// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/vscan-tui/internal/model"
)

// Store holds the open conversation. Messages are replaced wholesale by
// authoritative fetches; the only local insert is the optimistic user message
// of a send in progress.
type Store struct {
	conv *model.Conversation

	// pending is the index of the optimistic message, or -1.
	pending int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{pending: -1}
}

// Load makes conv the open conversation.
func (s *Store) Load(conv *model.Conversation) {
	if conv == nil {
		s.conv = nil
	} else {
		s.conv = conv.Clone()
	}
	s.pending = -1
}

// Clear closes the open conversation.
func (s *Store) Clear() {
	s.Load(nil)
}

// ID returns the open conversation's ID, or "".
func (s *Store) ID() string {
	if s.conv == nil {
		return ""
	}
	return s.conv.ID
}

// Conversation returns a copy of the open conversation, or nil.
func (s *Store) Conversation() *model.Conversation {
	if s.conv == nil {
		return nil
	}
	return s.conv.Clone()
}

// Messages returns a copy of the open conversation's messages.
func (s *Store) Messages() []model.Message {
	if s.conv == nil {
		return nil
	}
	return s.conv.Clone().Messages
}

// Message returns the message at index.
func (s *Store) Message(index int) (model.Message, bool) {
	if s.conv == nil || index < 0 || index >= len(s.conv.Messages) {
		return model.Message{}, false
	}
	return s.conv.Messages[index], true
}

// SetTitle updates the open conversation's title if it is id.
func (s *Store) SetTitle(id, title string) {
	if s.conv != nil && s.conv.ID == id {
		s.conv.Title = title
	}
}

// AppendPending adds the optimistic user message of a send. Only one send
// can be pending at a time; a second call replaces the first.
func (s *Store) AppendPending(msg model.Message) int {
	if s.conv == nil {
		return -1
	}
	s.DropPending()
	s.conv.Messages = append(s.conv.Messages, msg)
	s.pending = len(s.conv.Messages) - 1
	return s.pending
}

// DropPending removes the optimistic message after a failed send.
func (s *Store) DropPending() {
	if s.conv == nil || s.pending < 0 || s.pending >= len(s.conv.Messages) {
		s.pending = -1
		return
	}
	s.conv.Messages = append(s.conv.Messages[:s.pending], s.conv.Messages[s.pending+1:]...)
	s.pending = -1
}

// Pending returns the optimistic message of a send in progress.
func (s *Store) Pending() (model.Message, bool) {
	if !s.HasPending() {
		return model.Message{}, false
	}
	return s.Message(s.pending)
}

// HasPending reports whether a send is awaiting its refetch.
func (s *Store) HasPending() bool {
	return s.pending >= 0
}
