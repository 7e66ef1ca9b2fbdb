// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/model"
)

// fakeBackend is an in-memory chat backend. Every mutation advances its
// clock so updated_at values are strictly increasing.
type fakeBackend struct {
	mu    sync.Mutex
	convs map[string]*model.Conversation
	clock time.Time
	next  int

	// chunks is the scripted reply for the next StreamMessage call.
	chunks []string
	// streamErr fails the stream after chunks were delivered.
	streamErr error
	webSearch bool

	creates  int
	lastSend api.SendRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		convs: make(map[string]*model.Conversation),
		clock: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeBackend) tick() model.Timestamp {
	f.clock = f.clock.Add(time.Minute)
	return model.NewTimestamp(f.clock)
}

// seed adds a conversation with the given title and returns its ID.
func (f *fakeBackend) seed(title string, msgs ...model.Message) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("c%d", f.next)
	ts := f.tick()
	f.convs[id] = &model.Conversation{ID: id, Title: title, CreatedAt: ts, UpdatedAt: ts, Messages: msgs}
	return id
}

func notFound(msg string) error {
	return &api.APIError{Status: http.StatusNotFound, Message: msg}
}

func (f *fakeBackend) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Conversation, 0, len(f.convs))
	for _, c := range f.convs {
		out = append(out, c.Meta())
	}
	return out, nil
}

func (f *fakeBackend) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, notFound("Conversation not found.")
	}
	return c.Clone(), nil
}

func (f *fakeBackend) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	if title == "" {
		title = model.DefaultTitle
	}
	id := f.seed(title)
	return f.GetConversation(ctx, id)
}

func (f *fakeBackend) DeleteConversation(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.convs[id]; !ok {
		return notFound("Conversation not found.")
	}
	delete(f.convs, id)
	return nil
}

func (f *fakeBackend) RenameConversation(ctx context.Context, id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for otherID, c := range f.convs {
		if otherID != id && c.Title == title {
			return &api.APIError{Status: http.StatusConflict, Message: "A conversation with this name already exists."}
		}
	}
	c, ok := f.convs[id]
	if !ok {
		return notFound("Conversation not found.")
	}
	c.Title = title
	return nil
}

func (f *fakeBackend) SearchConversations(ctx context.Context, query string) ([]model.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SearchResult
	for _, c := range f.convs {
		if strings.Contains(strings.ToLower(c.Title), strings.ToLower(query)) {
			out = append(out, model.SearchResult{ID: c.ID, Title: c.Title, MatchType: model.MatchTitle})
		}
	}
	return out, nil
}

func (f *fakeBackend) EditMessage(ctx context.Context, id string, index int, content string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, notFound("Conversation not found.")
	}
	if index < 0 || index >= len(c.Messages) || !c.Messages[index].IsUser() {
		return nil, &api.APIError{Status: http.StatusBadRequest, Message: "Invalid message index or not a user message."}
	}
	c.Messages[index].Edit(content, f.tick())
	c.UpdatedAt = model.NewTimestamp(f.clock)
	return c.Clone(), nil
}

func (f *fakeBackend) StreamMessage(ctx context.Context, id string, req api.SendRequest, onChunk api.ChunkFunc) (*api.StreamResult, error) {
	f.mu.Lock()
	f.lastSend = req
	_, ok := f.convs[id]
	chunks := f.chunks
	streamErr := f.streamErr
	webSearch := f.webSearch
	f.mu.Unlock()

	if !ok {
		return nil, notFound("Conversation not found.")
	}

	var full strings.Builder
	for _, ch := range chunks {
		full.WriteString(ch)
		if onChunk != nil {
			onChunk(ch)
		}
	}
	if streamErr != nil {
		return nil, streamErr
	}

	f.mu.Lock()
	c := f.convs[id]
	ts := f.tick()
	user := model.Message{Role: model.RoleUser, Content: req.Message, Timestamp: ts}
	if req.ReplyTo != nil {
		user.ReplyTo = &model.ReplyRef{Index: req.ReplyTo.Index, Content: req.ReplyTo.Content}
	}
	c.Messages = append(c.Messages, user, model.Message{Role: model.RoleAssistant, Content: full.String(), Timestamp: ts})
	c.UpdatedAt = ts
	f.mu.Unlock()

	return &api.StreamResult{Content: full.String(), WebSearchUsed: webSearch || req.ForceWebSearch, Chunks: len(chunks)}, nil
}

// fakeFiles is an in-memory FileService.
type fakeFiles struct {
	mu       sync.Mutex
	files    []model.FileRef
	uploaded []string
}

func (f *fakeFiles) UploadPath(ctx context.Context, conversationID, path string) (*model.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, path)
	return &model.UploadResult{Msg: "File uploaded", Filename: path, FileID: fmt.Sprintf("f%d", len(f.uploaded))}, nil
}

func (f *fakeFiles) UserFiles(ctx context.Context) ([]model.FileRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.FileRef(nil), f.files...), nil
}

// recordingSender counts messages sent from the streaming goroutine.
type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}
