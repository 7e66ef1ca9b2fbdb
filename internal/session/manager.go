// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/model"
)

// =============================================================================
// BACKEND
// =============================================================================

// Backend is the subset of the chat API the session needs. *api.Client
// implements it.
type Backend interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	CreateConversation(ctx context.Context, title string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	RenameConversation(ctx context.Context, id, title string) error
	SearchConversations(ctx context.Context, query string) ([]model.SearchResult, error)
	EditMessage(ctx context.Context, id string, index int, content string) (*model.Conversation, error)
	StreamMessage(ctx context.Context, id string, req api.SendRequest, onChunk api.ChunkFunc) (*api.StreamResult, error)
}

var _ Backend = (*api.Client)(nil)

// Errors returned for requests rejected before reaching the backend.
var (
	ErrNoConversation = errors.New("no conversation is open")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrSendInProgress = errors.New("a reply is still streaming")
	ErrEmptyTitle     = errors.New("title is required")
	ErrNotEditable    = errors.New("only your own messages can be edited")
)

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the chat state for one signed-in user. Network calls run
// without the lock held; state changes are applied under it afterwards.
//
// Manager is safe for concurrent use.
type Manager struct {
	backend Backend
	logger  *log.Logger

	mu       sync.Mutex
	list     *List
	store    *Store
	versions *Versions
	stream   *Reconciler

	// webSearchUsed reflects the most recent completed reply.
	webSearchUsed bool
}

// NewManager creates a manager. logger may be nil.
func NewManager(backend Backend, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{
		backend:  backend,
		logger:   logger,
		list:     NewList(nil),
		store:    NewStore(),
		versions: NewVersions(),
		stream:   &Reconciler{},
	}
}

// Init loads the conversation list and opens the most recent conversation,
// creating one when the user has none.
func (m *Manager) Init(ctx context.Context) error {
	if err := m.Refresh(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	first, ok := m.list.MostRecent()
	m.mu.Unlock()

	if !ok {
		_, err := m.NewConversation(ctx, "")
		return err
	}
	return m.Select(ctx, first.ID)
}

// Refresh reloads the conversation list. The list fetch retries on failure.
func (m *Manager) Refresh(ctx context.Context) error {
	convs, err := m.backend.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.list.Replace(convs)
	return nil
}

// Select opens the conversation with id. A conversation the backend no
// longer has is replaced by a new one.
func (m *Manager) Select(ctx context.Context, id string) error {
	conv, err := m.backend.GetConversation(ctx, id)
	if err != nil {
		if api.IsNotFound(err) {
			m.logger.Info("conversation missing, creating a new one", "id", id)
			m.mu.Lock()
			m.list.Remove(id)
			m.mu.Unlock()
			_, err = m.NewConversation(ctx, "")
			return err
		}
		return fmt.Errorf("open conversation: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.open(conv)
	return nil
}

// open loads conv into the store and refreshes its list entry. Reopening the
// conversation a reply is streaming into keeps its optimistic message until
// the send's own refetch. Caller holds mu.
func (m *Manager) open(conv *model.Conversation) {
	var pending *model.Message
	if m.store.ID() != conv.ID {
		m.stream.Abandon()
		m.webSearchUsed = false
	} else if streamID, active := m.stream.Active(); active && streamID == conv.ID {
		if msg, ok := m.store.Pending(); ok {
			pending = &msg
		}
	}
	m.store.Load(conv)
	if pending != nil {
		m.store.AppendPending(*pending)
	}
	m.list.Upsert(*conv)
	m.versions.Reset()
}

// NewConversation creates and opens a conversation. An empty title gets the
// backend's default.
func (m *Manager) NewConversation(ctx context.Context, title string) (*model.Conversation, error) {
	conv, err := m.backend.CreateConversation(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.open(conv)
	return conv.Clone(), nil
}

// Delete deletes a conversation. When it was open, the most recent remaining
// conversation is opened, or a new one is created if none remain.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.backend.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	m.mu.Lock()
	m.list.Remove(id)
	wasOpen := m.store.ID() == id
	if wasOpen {
		m.store.Clear()
		m.stream.Abandon()
	}
	next, ok := m.list.MostRecent()
	m.mu.Unlock()

	if !wasOpen {
		return nil
	}
	if ok {
		return m.Select(ctx, next.ID)
	}
	_, err := m.NewConversation(ctx, "")
	return err
}

// Rename renames a conversation. On failure nothing local changes and the
// backend's error is returned unwrapped so its message can be shown as is.
func (m *Manager) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if err := m.backend.RenameConversation(ctx, id, title); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.list.Rename(id, title)
	m.store.SetTitle(id, title)
	return nil
}

// Search searches conversation titles, then message contents.
func (m *Manager) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	results, err := m.backend.SearchConversations(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search conversations: %w", err)
	}
	return results, nil
}

// Edit replaces the content of the user message at index in the open
// conversation. The backend archives the previous content; every message
// returns to its current version.
func (m *Manager) Edit(ctx context.Context, index int, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}

	m.mu.Lock()
	id := m.store.ID()
	msg, ok := m.store.Message(index)
	m.mu.Unlock()

	if id == "" {
		return ErrNoConversation
	}
	if !ok || !msg.IsUser() {
		return ErrNotEditable
	}

	conv, err := m.backend.EditMessage(ctx, id, index, content)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.list.Upsert(*conv)
	if m.store.ID() == conv.ID {
		m.store.Load(conv)
		m.versions.Reset()
	}
	return nil
}

// =============================================================================
// SENDING
// =============================================================================

// Outgoing is a message the user is about to send.
type Outgoing struct {
	Text string

	// WebSearch forces a web search for this message.
	WebSearch bool

	// ReplyTo is the index of the quoted message, or nil.
	ReplyTo *int

	// Attachment is a previously uploaded file to include, or nil.
	Attachment *model.Attachment
}

// BufferFunc receives the whole streamed text after every chunk.
type BufferFunc func(buffer string)

// Send sends a message in the open conversation and streams the reply.
//
// The user message is shown optimistically and onBuffer sees the growing
// reply. When the stream completes the conversation is fetched again and
// replaces local state; the buffer is cleared only after that. When the
// stream fails the buffer and the optimistic message are dropped. A
// conversation the backend no longer has is replaced by a new one.
func (m *Manager) Send(ctx context.Context, out Outgoing, onBuffer BufferFunc) (*api.StreamResult, error) {
	if strings.TrimSpace(out.Text) == "" {
		return nil, ErrEmptyMessage
	}

	m.mu.Lock()
	id := m.store.ID()
	if id == "" {
		m.mu.Unlock()
		return nil, ErrNoConversation
	}
	if _, active := m.stream.Active(); active {
		m.mu.Unlock()
		return nil, ErrSendInProgress
	}
	req, userMsg := m.buildRequest(out)
	m.store.AppendPending(userMsg)
	gen := m.stream.Begin(id)
	m.mu.Unlock()

	res, err := m.backend.StreamMessage(ctx, id, req, func(chunk string) {
		if buf, ok := m.stream.Append(gen, chunk); ok && onBuffer != nil {
			onBuffer(buf)
		}
	})
	if err != nil {
		m.mu.Lock()
		m.stream.Discard(gen)
		if m.store.ID() == id {
			m.store.DropPending()
		}
		m.mu.Unlock()

		m.logger.Warn("send failed", "conversation", id, "err", err)
		if api.IsNotFound(err) {
			m.mu.Lock()
			m.list.Remove(id)
			m.mu.Unlock()
			if _, createErr := m.NewConversation(ctx, ""); createErr != nil {
				return nil, errors.Join(err, createErr)
			}
		}
		return nil, err
	}

	conv, err := m.backend.GetConversation(ctx, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stream.Complete(gen)
	if err != nil {
		return res, fmt.Errorf("refresh conversation: %w", err)
	}
	m.list.Upsert(*conv)
	if m.store.ID() == id {
		m.store.Load(conv)
		m.webSearchUsed = res.WebSearchUsed
	}
	return res, nil
}

// buildRequest converts out into the wire request and the optimistic user
// message. Caller holds mu.
func (m *Manager) buildRequest(out Outgoing) (api.SendRequest, model.Message) {
	req := api.SendRequest{
		Message:        out.Text,
		ForceWebSearch: out.WebSearch,
	}
	msg := model.NewUserMessage(out.Text)

	if out.ReplyTo != nil {
		if quoted, ok := m.store.Message(*out.ReplyTo); ok {
			req.ReplyTo = api.ReplyTo(*out.ReplyTo, quoted)
			msg.ReplyTo = &model.ReplyRef{Index: *out.ReplyTo, Content: quoted.Content}
		}
	}
	if out.Attachment != nil && out.Attachment.FileID != "" {
		req.FileID = out.Attachment.FileID
		msg.HasFile = true
		msg.FileName = out.Attachment.DisplayName
		msg.FileID = out.Attachment.FileID
	}
	return req, msg
}

// =============================================================================
// VERSION NAVIGATION
// =============================================================================

// OlderVersion shows the previous version of the user message at index.
func (m *Manager) OlderVersion(index int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions.Older(m.store.Messages(), index)
}

// NewerVersion steps the user message at index toward its current version.
func (m *Manager) NewerVersion(index int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions.Newer(m.store.Messages(), index)
}

// VersionIndex returns the display index of the message at index.
func (m *Manager) VersionIndex(index int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions.Index(index)
}

// =============================================================================
// STATE
// =============================================================================

// DisplayMessage is a message prepared for rendering.
type DisplayMessage struct {
	model.Message

	// Index is the message's position in the conversation.
	Index int

	// Shown is the content at the selected version.
	Shown string

	// VersionLabel is "N of M" for edited user messages.
	VersionLabel string

	// Pending marks the optimistic message of an unfinished send.
	Pending bool
}

// Snapshot is a consistent copy of the chat state for rendering.
type Snapshot struct {
	Conversations []model.Conversation
	Active        *model.Conversation
	Messages      []DisplayMessage

	// Streaming is true while a reply for Active is being received.
	Streaming bool

	// Buffer is the reply text received so far.
	Buffer string

	WebSearchUsed bool
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Conversations: m.list.Items(),
		Active:        m.store.Conversation(),
		WebSearchUsed: m.webSearchUsed,
	}

	msgs := m.store.Messages()
	snap.Messages = make([]DisplayMessage, len(msgs))
	for i := range msgs {
		snap.Messages[i] = DisplayMessage{
			Message:      msgs[i],
			Index:        i,
			Shown:        m.versions.Content(msgs, i),
			VersionLabel: m.versions.Label(msgs, i),
			Pending:      m.store.HasPending() && i == m.store.pending,
		}
	}

	if convID, active := m.stream.Active(); active && convID == m.store.ID() {
		snap.Streaming = true
		snap.Buffer = m.stream.Buffer()
	}
	return snap
}

// ActiveID returns the ID of the open conversation, or "".
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.ID()
}

// Conversations returns the conversation list, newest activity first.
func (m *Manager) Conversations() []model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list.Items()
}

// Buffer returns the text of the reply currently streaming.
func (m *Manager) Buffer() string {
	return m.stream.Buffer()
}
