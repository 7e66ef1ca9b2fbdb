// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fakeTokens struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

func (f *fakeTokens) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeTokens) Invalidate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.invalidated++
	return nil
}

// newTestClient points both backends at server with fast retries.
func newTestClient(t *testing.T, server *httptest.Server, tokens TokenSource) *Client {
	t.Helper()
	return NewClient(&Config{
		ChatURL:        server.URL,
		UserURL:        server.URL,
		Timeout:        5 * time.Second,
		ListRetryDelay: time.Millisecond,
	}, tokens, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// =============================================================================
// REQUEST PLUMBING TESTS
// =============================================================================

func TestClient_SendsBearerAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		gotRequestID.Store(r.Header.Get(RequestIDHeader))
		writeJSON(w, http.StatusOK, map[string]any{"conversations": []any{}})
	}))
	defer server.Close()

	client := newTestClient(t, server, &fakeTokens{token: "tok"})
	_, err := client.ListConversations(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth.Load())
	assert.NotEmpty(t, gotRequestID.Load())
}

func TestClient_NoTokenFailsWithoutRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server, &fakeTokens{})
	_, err := client.GetConversation(context.Background(), "c1")

	require.Error(t, err)
	assert.True(t, IsSignInRequired(err))
	assert.Equal(t, int32(0), hits.Load())
}

func TestClient_UnauthorizedInvalidatesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Token has expired"})
	}))
	defer server.Close()

	tokens := &fakeTokens{token: "tok"}
	client := newTestClient(t, server, tokens)
	_, err := client.GetConversation(context.Background(), "c1")

	require.Error(t, err)
	assert.True(t, IsSignInRequired(err))
	assert.Equal(t, 1, tokens.invalidated)
	assert.Equal(t, "", tokens.Token())
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestClient_NotFoundDistinguishesUserFromConversation(t *testing.T) {
	var msg atomic.Value
	msg.Store("Conversation not found.")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": msg.Load().(string)})
	}))
	defer server.Close()

	tokens := &fakeTokens{token: "tok"}
	client := newTestClient(t, server, tokens)

	_, err := client.GetConversation(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsSignInRequired(err))
	assert.Equal(t, 0, tokens.invalidated)

	msg.Store("User not found.")
	_, err = client.GetConversation(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, IsSignInRequired(err))
	assert.Equal(t, 1, tokens.invalidated)
}

func TestClient_InvalidIDRejected(t *testing.T) {
	client := NewClient(nil, &fakeTokens{token: "tok"}, nil)
	_, err := client.GetConversation(context.Background(), "../etc")
	require.Error(t, err)

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, ErrTypeValidation, clientErr.Type)
}

func TestClient_NetworkErrorClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(&Config{ChatURL: url, ListRetryDelay: time.Millisecond}, &fakeTokens{token: "tok"}, nil)
	_, err := client.GetConversation(context.Background(), "c1")
	require.Error(t, err)

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, ErrTypeNetwork, clientErr.Type)
	assert.Equal(t, "Network error: could not reach the server.", UserMessage(err, "load conversation"))
}

func TestClient_ResponseSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.CopyN(w, zeroReader{}, MaxResponseSize+10)
	}))
	defer server.Close()

	client := newTestClient(t, server, &fakeTokens{token: "tok"})
	_, err := client.GetConversation(context.Background(), "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = ' '
	}
	return len(p), nil
}

// =============================================================================
// ERROR HELPER TESTS
// =============================================================================

func TestUserMessage(t *testing.T) {
	conflict := &APIError{Status: http.StatusConflict, Message: "A conversation with this name already exists."}
	assert.Equal(t, "A conversation with this name already exists.", UserMessage(conflict, "rename"))

	bare := &APIError{Status: http.StatusInternalServerError}
	assert.Equal(t, "Failed to rename. Please try again.", UserMessage(bare, "rename"))

	auth := &ClientError{Type: ErrTypeAuth, Message: "sign in required", Cause: bare}
	assert.Contains(t, UserMessage(auth, "rename"), "sign in again")

	assert.Equal(t, "", UserMessage(nil, "rename"))
}

func TestParseErrorMessage(t *testing.T) {
	assert.Equal(t, "a", parseErrorMessage([]byte(`{"msg":"a"}`)))
	assert.Equal(t, "b", parseErrorMessage([]byte(`{"errMsg":"b"}`)))
	assert.Equal(t, "c", parseErrorMessage([]byte(`{"message":"c"}`)))
	assert.Equal(t, "plain text", parseErrorMessage([]byte("plain text\n")))
	assert.Equal(t, "", parseErrorMessage([]byte("<html>oops</html>")))
}
