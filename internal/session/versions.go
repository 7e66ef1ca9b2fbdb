// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/vscan-tui/internal/model"
)

// Versions tracks which version of each edited user message is displayed.
// Index 0 is the current content; index i shows versions[len-i]. The assistant
// reply that follows a user message is displayed at the same index.
type Versions struct {
	idx map[int]int
}

// NewVersions creates a tracker with every message at its current version.
func NewVersions() *Versions {
	return &Versions{idx: make(map[int]int)}
}

// Index returns the display index for the message at msgIndex.
func (v *Versions) Index(msgIndex int) int {
	return v.idx[msgIndex]
}

// Older steps the user message at msgIndex one version back and returns the
// new index, clamped to the number of archived versions.
func (v *Versions) Older(msgs []model.Message, msgIndex int) int {
	return v.step(msgs, msgIndex, 1)
}

// Newer steps toward the current version and returns the new index.
func (v *Versions) Newer(msgs []model.Message, msgIndex int) int {
	return v.step(msgs, msgIndex, -1)
}

func (v *Versions) step(msgs []model.Message, msgIndex, dir int) int {
	if msgIndex < 0 || msgIndex >= len(msgs) {
		return 0
	}
	next := msgs[msgIndex].ClampVersion(v.idx[msgIndex] + dir)
	if next == 0 {
		delete(v.idx, msgIndex)
	} else {
		v.idx[msgIndex] = next
	}
	return next
}

// Reset returns every message to its current version.
func (v *Versions) Reset() {
	v.idx = make(map[int]int)
}

// pairIndex returns the user message whose index governs msgIndex: the
// message itself for user messages, the preceding user message for replies.
func pairIndex(msgs []model.Message, msgIndex int) int {
	if msgIndex > 0 && !msgs[msgIndex].IsUser() && msgs[msgIndex-1].IsUser() {
		return msgIndex - 1
	}
	return msgIndex
}

// Content returns the text to display for the message at msgIndex.
func (v *Versions) Content(msgs []model.Message, msgIndex int) string {
	if msgIndex < 0 || msgIndex >= len(msgs) {
		return ""
	}
	return msgs[msgIndex].ContentAt(v.idx[pairIndex(msgs, msgIndex)])
}

// Label returns the "N of M" label for a user message with history, or "".
func (v *Versions) Label(msgs []model.Message, msgIndex int) string {
	if msgIndex < 0 || msgIndex >= len(msgs) || !msgs[msgIndex].IsUser() {
		return ""
	}
	return msgs[msgIndex].VersionLabel(v.idx[msgIndex])
}
