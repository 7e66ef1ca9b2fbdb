// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/vscan-tui/internal/model"
)

// =============================================================================
// RESPONSE ENVELOPES
// =============================================================================

type conversationEnvelope struct {
	Conversation *model.Conversation `json:"conversation"`
}

type conversationsEnvelope struct {
	Conversations []model.Conversation `json:"conversations"`
}

type searchEnvelope struct {
	Results []model.SearchResult `json:"results"`
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// CreateConversation creates a conversation. An empty title or the default
// title is omitted from the request so the backend applies its default.
func (c *Client) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	body := map[string]string{}
	if t := strings.TrimSpace(title); t != "" && t != model.DefaultTitle {
		body["title"] = t
	}

	var env conversationEnvelope
	err := c.do(ctx, call{
		backend: chatBackend,
		method:  http.MethodPost,
		path:    "/conversations/new",
		body:    body,
		auth:    true,
	}, &env)
	if err != nil {
		return nil, err
	}
	if env.Conversation == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "create conversation: missing conversation in response"}
	}
	return env.Conversation, nil
}

// ListConversations returns conversation metadata, newest activity first as
// returned by the backend. Failures are retried up to Config.ListRetries times
// with a fixed Config.ListRetryDelay; rejected tokens are not retried.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.ListRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.ListRetryDelay):
			}
		}

		convs, err := c.listConversationsOnce(ctx)
		if err == nil {
			return convs, nil
		}
		if IsSignInRequired(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("list conversations failed", "attempt", attempt+1, "err", err)
	}
	return nil, fmt.Errorf("list conversations: max retries exceeded: %w", lastErr)
}

func (c *Client) listConversationsOnce(ctx context.Context) ([]model.Conversation, error) {
	var env conversationsEnvelope
	err := c.do(ctx, call{
		backend: chatBackend,
		method:  http.MethodGet,
		path:    "/conversations",
		auth:    true,
	}, &env)
	if err != nil {
		return nil, err
	}
	if env.Conversations == nil {
		return []model.Conversation{}, nil
	}
	return env.Conversations, nil
}

// GetConversation fetches a conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	if err := checkID("conversation", id); err != nil {
		return nil, err
	}
	var env conversationEnvelope
	err := c.do(ctx, call{
		backend: chatBackend,
		method:  http.MethodGet,
		path:    "/conversations/" + id,
		auth:    true,
	}, &env)
	if err != nil {
		return nil, err
	}
	if env.Conversation == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "get conversation: missing conversation in response"}
	}
	return env.Conversation, nil
}

// DeleteConversation deletes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	if err := checkID("conversation", id); err != nil {
		return err
	}
	return c.do(ctx, call{
		backend: chatBackend,
		method:  http.MethodDelete,
		path:    "/conversations/" + id,
		auth:    true,
	}, nil)
}

// RenameConversation renames a conversation. A duplicate title comes back as
// a 409 whose message is the backend's own text; see IsConflict.
func (c *Client) RenameConversation(ctx context.Context, id, title string) error {
	if err := checkID("conversation", id); err != nil {
		return err
	}
	return c.do(ctx, call{
		backend: chatBackend,
		method:  http.MethodPut,
		path:    "/conversations/" + id + "/rename",
		body:    map[string]string{"title": title},
		auth:    true,
	}, nil)
}

// SearchConversations searches titles first and, when no title matches,
// message contents. An empty query returns no results without a request.
func (c *Client) SearchConversations(ctx context.Context, query string) ([]model.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.SearchResult{}, nil
	}
	var env searchEnvelope
	err := c.do(ctx, call{
		backend: chatBackend,
		method:  http.MethodGet,
		path:    "/conversations/search",
		query:   url.Values{"q": {query}},
		auth:    true,
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Results, nil
}

// EditMessage replaces the content of the user message at index and returns
// the updated conversation. The backend archives the previous content.
func (c *Client) EditMessage(ctx context.Context, id string, index int, content string) (*model.Conversation, error) {
	if err := checkID("conversation", id); err != nil {
		return nil, err
	}
	var env conversationEnvelope
	err := c.do(ctx, call{
		backend: chatBackend,
		method:  http.MethodPut,
		path:    "/conversations/" + id + "/messages/" + strconv.Itoa(index) + "/edit",
		body:    map[string]string{"content": content},
		auth:    true,
	}, &env)
	if err != nil {
		return nil, err
	}
	if env.Conversation == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "edit message: missing conversation in response"}
	}
	return env.Conversation, nil
}
