// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sort"

	"github.com/jeranaias/vscan-tui/internal/model"
)

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// List mirrors the backend's conversation metadata. Every mutation leaves it
// sorted by activity time (updated_at, else created_at), newest first.
//
// List is not safe for concurrent use; Manager guards it.
type List struct {
	items []model.Conversation
}

// NewList creates a sorted list from convs.
func NewList(convs []model.Conversation) *List {
	l := &List{}
	l.Replace(convs)
	return l
}

// SortByActivity sorts convs newest activity first. Ties keep their order.
func SortByActivity(convs []model.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].ActivityTime().After(convs[j].ActivityTime())
	})
}

// IsSortedByActivity reports whether convs is in list order.
func IsSortedByActivity(convs []model.Conversation) bool {
	for i := 1; i < len(convs); i++ {
		if convs[i].ActivityTime().After(convs[i-1].ActivityTime()) {
			return false
		}
	}
	return true
}

// Replace discards the current items and loads convs (metadata only).
func (l *List) Replace(convs []model.Conversation) {
	l.items = make([]model.Conversation, 0, len(convs))
	for i := range convs {
		l.items = append(l.items, convs[i].Meta())
	}
	SortByActivity(l.items)
}

// Upsert inserts conv or updates the entry with the same ID.
func (l *List) Upsert(conv model.Conversation) {
	meta := conv.Meta()
	if i := l.index(conv.ID); i >= 0 {
		if len(conv.Messages) == 0 && conv.MessageCount == 0 {
			meta.MessageCount = l.items[i].MessageCount
		}
		l.items[i] = meta
	} else {
		l.items = append(l.items, meta)
	}
	SortByActivity(l.items)
}

// Remove deletes the entry with id and reports whether it existed.
func (l *List) Remove(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return true
}

// Rename sets the title of the entry with id.
func (l *List) Rename(id, title string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items[i].Title = title
	SortByActivity(l.items)
	return true
}

// Get returns the entry with id.
func (l *List) Get(id string) (model.Conversation, bool) {
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	return model.Conversation{}, false
}

// MostRecent returns the entry with the newest activity.
func (l *List) MostRecent() (model.Conversation, bool) {
	if len(l.items) == 0 {
		return model.Conversation{}, false
	}
	return l.items[0], true
}

// Items returns a copy of the entries in list order.
func (l *List) Items() []model.Conversation {
	out := make([]model.Conversation, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of entries.
func (l *List) Len() int {
	return len(l.items)
}

func (l *List) index(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}
