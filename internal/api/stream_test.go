// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// STREAM READER TESTS
// =============================================================================

// chunkReader returns one scripted chunk per Read, then err.
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestStreamReader_DeliversChunksInOrder(t *testing.T) {
	reader := NewStreamReader(&chunkReader{chunks: [][]byte{
		[]byte("Hel"), []byte("lo wor"), []byte("ld"),
	}})

	var got []string
	err := reader.Process(context.Background(), func(chunk string) {
		got = append(got, chunk)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo wor", "ld"}, got)
	assert.Equal(t, "Hello world", reader.Content())
	assert.Equal(t, 3, reader.Chunks())
}

func TestStreamReader_HoldsSplitRunes(t *testing.T) {
	// "é" is 0xC3 0xA9
	reader := NewStreamReader(&chunkReader{chunks: [][]byte{
		{'c', 'a', 'f', 0xC3}, {0xA9, '!'},
	}})

	var got []string
	err := reader.Process(context.Background(), func(chunk string) {
		got = append(got, chunk)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"caf", "é!"}, got)
	assert.Equal(t, "café!", reader.Content())
}

func TestStreamReader_TruncatedRuneAtEOF(t *testing.T) {
	reader := NewStreamReader(&chunkReader{chunks: [][]byte{{'x', 0xE2, 0x82}}})

	err := reader.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "x�", reader.Content())
}

func TestStreamReader_ReadErrorIsStreamFailure(t *testing.T) {
	boom := errors.New("connection reset")
	reader := NewStreamReader(&chunkReader{
		chunks: [][]byte{[]byte("partial")},
		err:    boom,
	})

	err := reader.Process(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStreamFailed)
	assert.ErrorIs(t, err, boom)
}

func TestStreamReader_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewStreamReader(strings.NewReader("never read"))
	err := reader.Process(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// STREAM MESSAGE TESTS
// =============================================================================

func TestStreamMessage_ChatEndpoint(t *testing.T) {
	var gotPath, gotMessage atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		var body SendRequest
		json.NewDecoder(r.Body).Decode(&body)
		gotMessage.Store(body.Message)

		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set(WebSearchHeader, "true")
		flusher := w.(http.Flusher)
		for _, part := range []string{"Hel", "lo wor", "ld"} {
			io.WriteString(w, part)
			flusher.Flush()
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, &fakeTokens{token: "tok"})

	var received strings.Builder
	res, err := client.StreamMessage(context.Background(), "c1", SendRequest{Message: "hi"}, func(chunk string) {
		received.WriteString(chunk)
	})

	require.NoError(t, err)
	assert.Equal(t, "/chat/c1", gotPath.Load())
	assert.Equal(t, "hi", gotMessage.Load())
	assert.Equal(t, "Hello world", res.Content)
	assert.Equal(t, "Hello world", received.String())
	assert.True(t, res.WebSearchUsed)
}

func TestStreamMessage_ForcedWebSearchEndpoint(t *testing.T) {
	var gotPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.Header().Set(WebSearchHeader, "false")
		io.WriteString(w, "searched")
	}))
	defer server.Close()

	client := newTestClient(t, server, &fakeTokens{token: "tok"})
	res, err := client.StreamMessage(context.Background(), "c1", SendRequest{Message: "news", ForceWebSearch: true}, nil)

	require.NoError(t, err)
	assert.Equal(t, "/conversations/c1/web_search", gotPath.Load())
	assert.True(t, res.WebSearchUsed, "forced search counts as used")
}

func TestStreamMessage_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "Conversation not found."})
	}))
	defer server.Close()

	called := false
	client := newTestClient(t, server, &fakeTokens{token: "tok"})
	_, err := client.StreamMessage(context.Background(), "gone", SendRequest{Message: "hi"}, func(string) {
		called = true
	})

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, called)
}
