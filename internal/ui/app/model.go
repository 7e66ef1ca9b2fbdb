// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root Bubble Tea model. It hosts the chat view and the
// scanner dashboard and switches between them.
package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vscan-tui/internal/ui/chat"
	"github.com/jeranaias/vscan-tui/internal/ui/dashboard"
)

// View selects the visible screen.
type View int

const (
	ViewChat View = iota
	ViewDashboard
)

func (v View) String() string {
	if v == ViewDashboard {
		return "dashboard"
	}
	return "chat"
}

// KeyMap holds the bindings handled above the individual views.
type KeyMap struct {
	Switch key.Binding
	Quit   key.Binding
	Cancel key.Binding
}

// DefaultKeyMap returns the root bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Switch: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("C-t", "chat/scanner")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("C-q", "quit")),
		Cancel: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("C-c", "quit")),
	}
}

// Model routes input to the active view. Everything that is not a key press
// goes to both views so background work finishes wherever it started.
type Model struct {
	chat      chat.Model
	dashboard dashboard.Model
	active    View
	keys      KeyMap
}

// New creates the root model showing start.
func New(c chat.Model, d dashboard.Model, start View) Model {
	return Model{chat: c, dashboard: d, active: start, keys: DefaultKeyMap()}
}

// SetSender installs the program handle on the chat view.
func (m *Model) SetSender(s chat.Sender) {
	m.chat.SetSender(s)
}

// Active returns the visible view.
func (m Model) Active() View { return m.active }

// Chat returns the chat view.
func (m Model) Chat() chat.Model { return m.chat }

// Dashboard returns the scanner dashboard.
func (m Model) Dashboard() dashboard.Model { return m.dashboard }

// Init initializes both views.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.chat.Init(), m.dashboard.Init())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(msg)
	}

	var chatCmd, dashCmd tea.Cmd
	m.chat, chatCmd = m.updateChat(msg)
	m.dashboard, dashCmd = m.updateDashboard(msg)
	return m, tea.Batch(chatCmd, dashCmd)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Switch):
		if m.active == ViewChat {
			m.active = ViewDashboard
		} else {
			m.active = ViewChat
		}
		return m, nil

	case m.active == ViewDashboard && (key.Matches(msg, m.keys.Quit) || key.Matches(msg, m.keys.Cancel)):
		return m, tea.Quit
	}

	var cmd tea.Cmd
	if m.active == ViewChat {
		m.chat, cmd = m.updateChat(msg)
	} else {
		m.dashboard, cmd = m.updateDashboard(msg)
	}
	return m, cmd
}

func (m Model) updateChat(msg tea.Msg) (chat.Model, tea.Cmd) {
	next, cmd := m.chat.Update(msg)
	return next.(chat.Model), cmd
}

func (m Model) updateDashboard(msg tea.Msg) (dashboard.Model, tea.Cmd) {
	next, cmd := m.dashboard.Update(msg)
	return next.(dashboard.Model), cmd
}

// View renders the active view.
func (m Model) View() string {
	if m.active == ViewDashboard {
		return m.dashboard.View()
	}
	return m.chat.View()
}
