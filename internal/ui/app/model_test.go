// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vscan-tui/internal/ui/chat"
	"github.com/jeranaias/vscan-tui/internal/ui/dashboard"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
	"github.com/jeranaias/vscan-tui/internal/validate"
)

var (
	keySwitch = tea.KeyMsg{Type: tea.KeyCtrlT}
	keyEnter  = tea.KeyMsg{Type: tea.KeyEnter}
	keyQuit   = tea.KeyMsg{Type: tea.KeyCtrlQ}
)

func newTestModel(t *testing.T, start View) Model {
	t.Helper()
	theme := styles.NewTheme(styles.ModeDark)
	m := New(
		chat.New(chat.Options{Theme: theme}),
		dashboard.New(dashboard.Options{Theme: theme}),
		start,
	)
	return step(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return out
}

func TestSwitchTogglesView(t *testing.T) {
	m := newTestModel(t, ViewChat)
	assert.Equal(t, ViewChat, m.Active())

	m = step(t, m, keySwitch)
	assert.Equal(t, ViewDashboard, m.Active())
	assert.Equal(t, "dashboard", m.Active().String())

	m = step(t, m, keySwitch)
	assert.Equal(t, ViewChat, m.Active())
}

func TestKeysGoToActiveViewOnly(t *testing.T) {
	m := newTestModel(t, ViewDashboard)

	m = step(t, m, keyEnter)
	assert.Equal(t, validate.MsgURLRequired, m.Dashboard().FieldError())
	assert.Contains(t, m.View(), validate.MsgURLRequired)

	m = step(t, m, keySwitch)
	assert.NotContains(t, m.View(), validate.MsgURLRequired)
	assert.Empty(t, m.Chat().Err())
}

func TestQuitFromDashboard(t *testing.T) {
	m := newTestModel(t, ViewDashboard)
	_, cmd := m.Update(keyQuit)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewRendersActiveScreen(t *testing.T) {
	m := newTestModel(t, ViewChat)
	assert.Contains(t, m.View(), "vscan")

	m = step(t, m, keySwitch)
	assert.Contains(t, m.View(), "Target URL")
}
