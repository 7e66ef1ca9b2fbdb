// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/session"
	"github.com/jeranaias/vscan-tui/internal/ui/components"
	"github.com/jeranaias/vscan-tui/internal/util"
)

// signedOutText is shown while no token is held.
const signedOutText = "Signed out. Run `vscan login` in another terminal to continue."

// localErrors are shown with their own text rather than as backend failures.
var localErrors = []error{
	session.ErrNoConversation,
	session.ErrEmptyMessage,
	session.ErrSendInProgress,
	session.ErrEmptyTitle,
	session.ErrNotEditable,
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit and stop work in every mode
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancels.clear()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		if m.cancels.fire() {
			m.status = "Stopping reply..."
			return m, nil
		}
		return m, tea.Quit
	}

	if m.signedOut {
		return m, nil
	}
	if m.mode != ModeNormal {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.NextFocus):
		return m.cycleFocus()

	case key.Matches(msg, m.keys.NewConv):
		m.selected = -1
		m.leaveStream()
		return m, m.newConversationCmd()

	case key.Matches(msg, m.keys.Search):
		return m.openPrompt(ModeSearch, "Search: ", m.query)

	case key.Matches(msg, m.keys.WebSearch):
		m.webSearch = !m.webSearch
		if m.webSearch {
			m.status = "Web search on for the next message"
		} else {
			m.status = "Web search off"
		}
		return m, nil

	case key.Matches(msg, m.keys.Attach):
		if m.files == nil {
			m.lastError = "File uploads are not available"
			return m, nil
		}
		m.userFiles = nil
		m.fileCursor = 0
		next, cmd := m.openPrompt(ModeAttach, "File path: ", "")
		return next, tea.Batch(cmd, next.(Model).listFilesCmd())

	case key.Matches(msg, m.keys.ClearStaged):
		m.replyTo = nil
		m.attachment = nil
		m.status = "Cleared reply and attachment"
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	switch m.focus {
	case FocusSidebar:
		return m.handleSidebarKey(msg)
	case FocusMessages:
		return m.handleMessagesKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}
	if key.Matches(msg, m.keys.Back) {
		m.lastError = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the composed message with whatever is staged.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.sending {
		m.status = "A reply is still streaming"
		return m, nil
	}

	out := session.Outgoing{
		Text:       text,
		WebSearch:  m.webSearch,
		ReplyTo:    m.replyTo,
		Attachment: m.attachment,
	}
	m.input.Reset()
	m.replyTo = nil
	m.attachment = nil
	m.webSearch = false
	m.lastError = ""
	m.status = ""
	m.selected = -1
	m.sending = true
	m.sendSeq++
	if m.manager != nil {
		m.streamingID = m.manager.ActiveID()
	}

	return m, tea.Batch(m.sendCmd(out), m.spinner.Tick)
}

// leaveStream stops the running send before the view moves to another
// conversation. Its SendDoneMsg is ignored when it arrives.
func (m *Model) leaveStream() {
	if !m.sending {
		return
	}
	m.cancels.clear()
	m.sending = false
	m.streamingID = ""
	m.sendSeq++
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.sidebarItems()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		if len(items) == 0 {
			return m, nil
		}
		id := items[m.cursor].ID
		m.selected = -1
		m.replyTo = nil
		if id != m.streamingID {
			m.leaveStream()
		}
		return m, m.selectCmd(id)
	case key.Matches(msg, m.keys.Rename):
		if len(items) == 0 {
			return m, nil
		}
		m.renameID = items[m.cursor].ID
		return m.openPrompt(ModeRename, "New title: ", items[m.cursor].Title)
	case key.Matches(msg, m.keys.Delete):
		if len(items) == 0 {
			return m, nil
		}
		m.deleteID = items[m.cursor].ID
		m.mode = ModeConfirmDelete
		m.status = ""
	case key.Matches(msg, m.keys.Back):
		if m.results != nil {
			m.results = nil
			m.query = ""
			m.syncCursor()
			return m, nil
		}
		return m.setFocus(FocusInput)
	}
	return m, nil
}

func (m Model) handleMessagesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.snap.Messages)

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
			m.refresh(false)
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < n-1 {
			m.selected++
			m.refresh(false)
		}
	case key.Matches(msg, m.keys.Reply):
		if m.selected < 0 || m.selected >= n {
			return m, nil
		}
		idx := m.selected
		m.replyTo = &idx
		m.status = "Replying to: " + model.ReplyPreview(m.snap.Messages[idx].Shown, 40)
		return m.setFocus(FocusInput)
	case key.Matches(msg, m.keys.Edit):
		if m.selected < 0 || m.selected >= n {
			return m, nil
		}
		dm := m.snap.Messages[m.selected]
		if !dm.IsUser() || dm.Pending {
			m.lastError = "Only your own messages can be edited"
			return m, nil
		}
		m.editIndex = m.selected
		m.draft = m.input.Value()
		m.input.SetValue(dm.Content)
		m.mode = ModeEdit
		m.focus = FocusInput
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.OlderVer):
		if m.selected >= 0 && m.manager != nil {
			m.manager.OlderVersion(m.selected)
			m.refresh(false)
		}
	case key.Matches(msg, m.keys.NewerVer):
		if m.selected >= 0 && m.manager != nil {
			m.manager.NewerVersion(m.selected)
			m.refresh(false)
		}
	case key.Matches(msg, m.keys.Back):
		m.selected = -1
		m.refresh(false)
		return m.setFocus(FocusInput)
	}
	return m, nil
}

// =============================================================================
// PROMPTS
// =============================================================================

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeConfirmDelete:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			id := m.deleteID
			m.mode = ModeNormal
			m.deleteID = ""
			if id == m.streamingID {
				m.leaveStream()
			}
			return m, m.deleteCmd(id)
		case key.Matches(msg, m.keys.NotConfirm):
			m.mode = ModeNormal
			m.deleteID = ""
		}
		return m, nil

	case ModeEdit:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.mode = ModeNormal
			m.input.SetValue(m.draft)
			m.draft = ""
			m.editIndex = -1
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			content := strings.TrimSpace(m.input.Value())
			idx := m.editIndex
			m.mode = ModeNormal
			m.input.SetValue(m.draft)
			m.draft = ""
			m.editIndex = -1
			if content == "" {
				m.lastError = "Message cannot be empty"
				return m, nil
			}
			return m, m.editCmd(idx, content)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if key.Matches(msg, m.keys.Back) {
		return m.closePrompt()
	}

	if m.mode == ModeAttach && m.prompt.Value() == "" && len(m.userFiles) > 0 {
		switch msg.Type {
		case tea.KeyUp:
			if m.fileCursor > 0 {
				m.fileCursor--
			}
			return m, nil
		case tea.KeyDown:
			if m.fileCursor < len(m.userFiles)-1 {
				m.fileCursor++
			}
			return m, nil
		}
	}

	if msg.Type == tea.KeyEnter {
		return m.submitPrompt()
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.prompt.Value())
	mode := m.mode
	next, focusCmd := m.closePrompt()
	m = next.(Model)

	switch mode {
	case ModeSearch:
		m.query = value
		if value == "" {
			m.results = nil
			m.syncCursor()
			return m, focusCmd
		}
		return m, tea.Batch(focusCmd, m.searchCmd(value))

	case ModeRename:
		id := m.renameID
		m.renameID = ""
		return m, tea.Batch(focusCmd, m.renameCmd(id, value))

	case ModeAttach:
		if value == "" {
			if len(m.userFiles) == 0 {
				return m, focusCmd
			}
			f := m.userFiles[m.fileCursor]
			m.attachment = &model.Attachment{FileID: f.FileID, DisplayName: f.Filename}
			m.status = "Attached " + f.Filename
			return m, focusCmd
		}
		if !model.IsAllowedUpload(value) {
			m.lastError = "Unsupported file type. Allowed: txt, json, pdf, docx"
			return m, focusCmd
		}
		if m.snap.Active == nil {
			m.lastError = "No conversation is open"
			return m, focusCmd
		}
		m.status = "Uploading " + value + "..."
		return m, tea.Batch(focusCmd, m.uploadCmd(m.snap.Active.ID, value))
	}
	return m, focusCmd
}

func (m Model) openPrompt(mode Mode, label, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.prompt.Prompt = label
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	m.input.Blur()
	return m, m.prompt.Focus()
}

func (m Model) closePrompt() (tea.Model, tea.Cmd) {
	m.mode = ModeNormal
	m.prompt.Blur()
	m.prompt.Reset()
	if m.focus == FocusInput {
		return m, m.input.Focus()
	}
	return m, nil
}

// =============================================================================
// FOCUS
// =============================================================================

func (m Model) cycleFocus() (tea.Model, tea.Cmd) {
	switch m.focus {
	case FocusInput:
		return m.setFocus(FocusSidebar)
	case FocusSidebar:
		return m.setFocus(FocusMessages)
	default:
		return m.setFocus(FocusInput)
	}
}

func (m Model) setFocus(f Focus) (tea.Model, tea.Cmd) {
	m.focus = f
	switch f {
	case FocusInput:
		return m, m.input.Focus()
	case FocusMessages:
		m.input.Blur()
		if m.selected < 0 && len(m.snap.Messages) > 0 {
			m.selected = len(m.snap.Messages) - 1
		}
		m.refresh(false)
	default:
		m.input.Blur()
		m.syncCursor()
	}
	return m, nil
}

// =============================================================================
// RESULT HANDLERS
// =============================================================================

func (m Model) handleSendDone(msg SendDoneMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.sendSeq {
		m.refresh(false)
		return m, nil
	}
	m.sending = false
	m.streamingID = ""
	m.cancels.clear()

	switch {
	case errors.Is(msg.Err, context.Canceled):
		m.status = "Reply stopped"
	case msg.Err != nil:
		m.setError(msg.Err, "send message")
	case msg.Result != nil && msg.Result.WebSearchUsed:
		m.status = "Web search used"
	}
	m.refresh(false)
	m.syncCursor()
	return m, nil
}

func (m Model) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	m.ready = true
	if msg.err != nil {
		m.setError(msg.err, msg.action)
	} else {
		m.lastError = ""
		m.status = msg.status
	}
	m.refresh(false)
	m.syncCursor()
	return m, nil
}

func (m Model) handleSearchResults(msg searchResultsMsg) (tea.Model, tea.Cmd) {
	if msg.query != m.query {
		return m, nil
	}
	if msg.err != nil {
		m.setError(msg.err, "search conversations")
		return m, nil
	}
	m.results = msg.results
	if m.results == nil {
		m.results = []model.SearchResult{}
	}
	m.cursor = 0
	m.focus = FocusSidebar
	m.input.Blur()
	m.status = util.Pluralize(len(m.results), "result", "results")
	return m, nil
}

func (m Model) handleFiles(msg filesMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setError(msg.err, "list files")
		return m, nil
	}
	m.userFiles = msg.files
	m.fileCursor = 0
	return m, nil
}

func (m Model) handleUploadDone(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setError(msg.err, "upload file")
		return m, nil
	}
	m.attachment = &model.Attachment{FileID: msg.result.FileID, DisplayName: msg.result.Filename}
	m.status = "Attached " + msg.result.Filename
	return m, nil
}

func (m Model) handleTokenChanged(msg TokenChangedMsg) (tea.Model, tea.Cmd) {
	if !msg.SignedIn {
		m.signedOut = true
		m.cancels.clear()
		m.lastError = signedOutText
		return m, nil
	}
	m.signedOut = false
	m.lastError = ""
	m.status = "Signed in"
	return m, m.initCmd()
}

// updateInputs forwards other messages (cursor blink) to the inputs.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.mode != ModeNormal {
		m.prompt, cmd = m.prompt.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// HELPERS
// =============================================================================

// setError shows err as a one-line message. A rejected token switches the
// view to signed out.
func (m *Model) setError(err error, action string) {
	m.status = ""
	m.logger.Warn("chat operation failed", "action", action, "err", err)

	if api.IsSignInRequired(err) {
		m.signedOut = true
		m.lastError = signedOutText
		return
	}
	for _, local := range localErrors {
		if errors.Is(err, local) {
			m.lastError = capitalize(local.Error())
			return
		}
	}
	m.lastError = api.UserMessage(err, action)
}

// sidebarItems returns search hits while a search is shown, else the list.
func (m Model) sidebarItems() []components.SidebarItem {
	if m.results != nil {
		return components.ItemsFromSearch(m.results)
	}
	return components.ItemsFromConversations(m.snap.Conversations)
}

// syncCursor moves the sidebar cursor to the open conversation.
func (m *Model) syncCursor() {
	if m.results != nil || m.snap.Active == nil {
		return
	}
	for i, c := range m.snap.Conversations {
		if c.ID == m.snap.Active.ID {
			m.cursor = i
			return
		}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
