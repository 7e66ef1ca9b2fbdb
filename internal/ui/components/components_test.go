// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/session"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
)

func testTheme() *styles.Theme {
	return styles.NewTheme(styles.ModeDark)
}

// =============================================================================
// CODE BLOCK TESTS
// =============================================================================

func TestCodeBlock_PlainLineNumbers(t *testing.T) {
	cb := NewFileBlock("notes.txt", "alpha\nbeta\ngamma\n")
	cb.Plain = true

	lines := strings.Split(cb.Render(), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1 alpha", lines[0])
	assert.Equal(t, "3 gamma", lines[2])
}

func TestCodeBlock_PlainPadsLineNumbers(t *testing.T) {
	code := strings.Repeat("x\n", 12)
	cb := NewCodeBlock("", code)
	cb.Plain = true

	lines := strings.Split(cb.Render(), "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, " 1 x", lines[0])
	assert.Equal(t, "12 x", lines[11])
}

func TestCodeBlock_HighlightedKeepsSource(t *testing.T) {
	out := NewFileBlock("main.go", "package main\n").Render()
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "Go")
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "Go", DetectLanguage("main.go", "package main"))
	assert.Equal(t, "JSON", DetectLanguage("report.json", `{"a": 1}`))
}

// =============================================================================
// MARKDOWN TESTS
// =============================================================================

func TestMarkdownRenderer_RendersText(t *testing.T) {
	md := NewMarkdownRenderer("notty")
	out := md.Render("# Findings\n\nUse **parameterized** queries.", 60)
	assert.Contains(t, out, "Findings")
	assert.Contains(t, out, "parameterized")
}

func TestMarkdownRenderer_ReusesRendererPerWidth(t *testing.T) {
	md := NewMarkdownRenderer("")
	md.Render("a", 40)
	md.Render("b", 40)
	md.Render("c", 50)
	assert.Len(t, md.renderers, 2)
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessageBlock_UserDetails(t *testing.T) {
	msg := model.NewUserMessage("what is xss?")
	msg.ReplyTo = &model.ReplyRef{Index: 0, Content: "earlier answer"}
	msg.HasFile = true
	msg.FileName = "report.pdf"

	out := MessageBlock{
		Message: session.DisplayMessage{Message: msg, Shown: "what is xss?", VersionLabel: "2 of 2"},
		Width:   60,
	}.Render(testTheme(), nil)

	assert.Contains(t, out, "You")
	assert.Contains(t, out, "(2 of 2)")
	assert.Contains(t, out, "earlier answer")
	assert.Contains(t, out, "report.pdf")
	assert.Contains(t, out, "what is xss?")
}

func TestMessageBlock_ShowsSelectedVersion(t *testing.T) {
	msg := model.NewUserMessage("current")
	out := MessageBlock{
		Message: session.DisplayMessage{Message: msg, Shown: "older text"},
		Width:   60,
	}.Render(testTheme(), nil)

	assert.Contains(t, out, "older text")
	assert.NotContains(t, out, "current")
}

func TestMessageBlock_PendingMarker(t *testing.T) {
	msg := model.NewUserMessage("hi")
	out := MessageBlock{
		Message: session.DisplayMessage{Message: msg, Shown: "hi", Pending: true},
		Width:   40,
	}.Render(testTheme(), nil)
	assert.Contains(t, out, "sending...")
}

func TestMessageList_EmptyAndStreaming(t *testing.T) {
	theme := testTheme()
	assert.Contains(t, MessageList(theme, nil, session.Snapshot{}, 60, -1, false, "."), "No messages yet")

	snap := session.Snapshot{Streaming: true, Buffer: "partial rep"}
	out := MessageList(theme, nil, snap, 60, -1, false, ".")
	assert.Contains(t, out, "Assistant")
	assert.Contains(t, out, "partial rep")
}

// =============================================================================
// SIDEBAR TESTS
// =============================================================================

func TestItemsFromConversations(t *testing.T) {
	ts := time.Date(2025, 3, 4, 15, 4, 0, 0, time.Local)
	convs := []model.Conversation{
		{ID: "a", Title: "Login audit", UpdatedAt: model.NewTimestamp(ts)},
		{ID: "b"},
	}
	items := ItemsFromConversations(convs)
	require.Len(t, items, 2)
	assert.Equal(t, "Login audit", items[0].Title)
	assert.Equal(t, "Mar 04 2025, 3:04 PM", items[0].Meta)
	assert.Equal(t, model.DefaultTitle, items[1].Title)
}

func TestItemsFromSearch_MessageMatchShowsSnippet(t *testing.T) {
	items := ItemsFromSearch([]model.SearchResult{
		{ID: "a", Title: "Headers", MatchType: model.MatchMessage, Snippet: "set\nCSP headers"},
		{ID: "b", MatchType: model.MatchTitle},
	})
	require.Len(t, items, 2)
	assert.Equal(t, "set CSP headers", items[0].Meta)
	assert.Equal(t, model.DefaultTitle, items[1].Title)
}

func TestSidebar_RendersItemsAndActiveMarker(t *testing.T) {
	sb := Sidebar{
		Items: []SidebarItem{
			{ID: "a", Title: "First", Meta: "m1"},
			{ID: "b", Title: "Second", Meta: "m2"},
		},
		ActiveID: "b",
		Width:    30,
	}
	out := sb.Render(testTheme())
	assert.Contains(t, out, "Conversations")
	assert.Contains(t, out, "First")
	assert.Contains(t, out, "● Second")
}

func TestSidebar_ScrollsToCursor(t *testing.T) {
	var items []SidebarItem
	for _, title := range []string{"one", "two", "three", "four", "five", "six"} {
		items = append(items, SidebarItem{ID: title, Title: title})
	}
	out := Sidebar{Items: items, Cursor: 5, Width: 30, Height: 12, Focused: true}.Render(testTheme())
	assert.Contains(t, out, "six")
	assert.NotContains(t, out, "one")
}

// =============================================================================
// STATUS BAR TESTS
// =============================================================================

func TestStatusBar_DropsHintsToFit(t *testing.T) {
	bar := StatusBar{
		User:  "alice",
		Title: "Login audit",
		Hints: []KeyHint{{"enter", "send"}, {"ctrl+n", "new"}, {"ctrl+q", "quit"}},
		Width: 50,
	}
	out := bar.Render(testTheme())
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "send")
	assert.NotContains(t, out, "quit")
	assert.LessOrEqual(t, lipgloss.Width(out), 50)
}

func TestStatusBar_StreamingAndWebSearch(t *testing.T) {
	out := StatusBar{Streaming: true, Spinner: "*", WebSearch: true, Width: 80}.Render(testTheme())
	assert.Contains(t, out, "streaming")
	assert.Contains(t, out, "web search")
}

// =============================================================================
// STATS TESTS
// =============================================================================

func TestStatCards(t *testing.T) {
	out := StatCards(testTheme(), model.Stats{Critical: 2, High: 1})
	for _, label := range []string{"Critical", "High", "Medium", "Low"} {
		assert.Contains(t, out, label)
	}
	assert.Contains(t, out, "2")
}

func TestFindingsTable(t *testing.T) {
	theme := testTheme()
	assert.Contains(t, FindingsTable(theme, nil, 80), "No vulnerabilities found.")

	out := FindingsTable(theme, []model.Vulnerability{
		{Category: "SQL Injection", Severity: "critical", Description: "id param\nis injectable"},
	}, 80)
	assert.Contains(t, out, "Severity")
	assert.Contains(t, out, "SQL Injection")
	assert.Contains(t, out, "id param is injectable")
}

func TestFindingDetail_FallsBackToDefaults(t *testing.T) {
	out := FindingDetail(testTheme(), model.Vulnerability{Category: "XSS", Severity: "high"}, 60)
	assert.Contains(t, out, "XSS")
	assert.Contains(t, out, "Remediation")
}
