// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vscan-tui/internal/session"
)

// opTimeout bounds conversation operations that do not stream.
const opTimeout = 30 * time.Second

// =============================================================================
// CONVERSATION COMMANDS
// =============================================================================

// run executes fn against the manager and reports the result as loadedMsg.
func (m Model) run(action, status string, fn func(ctx context.Context, mgr *session.Manager) error) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return loadedMsg{action: action, status: status, err: fn(ctx, mgr)}
	}
}

func (m Model) initCmd() tea.Cmd {
	return m.run("load conversations", "", func(ctx context.Context, mgr *session.Manager) error {
		return mgr.Init(ctx)
	})
}

func (m Model) selectCmd(id string) tea.Cmd {
	return m.run("load conversation", "", func(ctx context.Context, mgr *session.Manager) error {
		return mgr.Select(ctx, id)
	})
}

func (m Model) newConversationCmd() tea.Cmd {
	return m.run("create conversation", "New conversation", func(ctx context.Context, mgr *session.Manager) error {
		_, err := mgr.NewConversation(ctx, "")
		return err
	})
}

func (m Model) deleteCmd(id string) tea.Cmd {
	return m.run("delete conversation", "Conversation deleted", func(ctx context.Context, mgr *session.Manager) error {
		return mgr.Delete(ctx, id)
	})
}

func (m Model) renameCmd(id, title string) tea.Cmd {
	return m.run("rename conversation", "Conversation renamed", func(ctx context.Context, mgr *session.Manager) error {
		return mgr.Rename(ctx, id, title)
	})
}

func (m Model) editCmd(index int, content string) tea.Cmd {
	return m.run("edit message", "Message edited", func(ctx context.Context, mgr *session.Manager) error {
		return mgr.Edit(ctx, index, content)
	})
}

func (m Model) searchCmd(query string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		results, err := mgr.Search(ctx, query)
		return searchResultsMsg{query: query, results: results, err: err}
	}
}

// =============================================================================
// STREAMING
// =============================================================================

// sendCmd streams a reply. Progress is reported through the Sender when one
// is installed; the spinner tick redraws otherwise.
func (m Model) sendCmd(out session.Outgoing) tea.Cmd {
	mgr := m.manager
	sender := m.sender
	throttle := m.throttle
	throttle.Reset()

	seq := m.sendSeq

	ctx, cancel := context.WithCancel(context.Background())
	m.cancels.set(cancel)

	return func() tea.Msg {
		res, err := mgr.Send(ctx, out, func(string) {
			if sender != nil && throttle.Observe() {
				sender.Send(BufferMsg{})
			}
		})
		return SendDoneMsg{Result: res, Err: err, seq: seq}
	}
}

// =============================================================================
// FILE COMMANDS
// =============================================================================

func (m Model) listFilesCmd() tea.Cmd {
	files := m.files
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		refs, err := files.UserFiles(ctx)
		return filesMsg{files: refs, err: err}
	}
}

func (m Model) uploadCmd(conversationID, path string) tea.Cmd {
	files := m.files
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*opTimeout)
		defer cancel()
		res, err := files.UploadPath(ctx, conversationID, path)
		return uploadDoneMsg{result: res, err: err}
	}
}
