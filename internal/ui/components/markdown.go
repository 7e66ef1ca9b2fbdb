// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders assistant replies with glamour. Renderers are
// built lazily per wrap width; when glamour fails the text is returned as-is.
//
// MarkdownRenderer is safe for concurrent use.
type MarkdownRenderer struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer for a glamour standard style
// ("dark", "light", "notty").
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	if style == "" {
		style = "dark"
	}
	return &MarkdownRenderer{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

func (r *MarkdownRenderer) renderer(width int) *glamour.TermRenderer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tr, ok := r.renderers[width]; ok {
		return tr
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		tr = nil
	}
	r.renderers[width] = tr
	return tr
}

// Render renders content wrapped to width columns.
func (r *MarkdownRenderer) Render(content string, width int) string {
	if width < 20 {
		width = 20
	}
	tr := r.renderer(width)
	if tr == nil {
		return content
	}
	out, err := tr.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
