// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/jeranaias/vscan-tui/internal/model"
)

// WebSearchHeader reports whether the backend consulted web search.
const WebSearchHeader = "X-Web-Search-Used"

// streamReadSize is the read buffer size for streamed replies.
const streamReadSize = 4096

// =============================================================================
// REQUEST / RESULT TYPES
// =============================================================================

// ReplyPayload quotes the message being replied to.
type ReplyPayload struct {
	Index            int    `json:"index"`
	Content          string `json:"content"`
	IsCurrentVersion bool   `json:"isCurrentVersion"`
}

// SendRequest is the body of a chat message.
type SendRequest struct {
	Message        string        `json:"message"`
	ForceWebSearch bool          `json:"force_web_search"`
	ReplyTo        *ReplyPayload `json:"replyTo,omitempty"`
	FileID         string        `json:"file_id,omitempty"`
}

// StreamResult summarizes a completed streamed reply.
type StreamResult struct {
	// Content is the full reply text as received.
	Content string

	// WebSearchUsed is true when search was forced or the backend says it ran.
	WebSearchUsed bool

	// Chunks is the number of non-empty chunks delivered.
	Chunks int
}

// ChunkFunc receives each decoded chunk of a streamed reply, in order.
type ChunkFunc func(chunk string)

// =============================================================================
// STREAMING SEND
// =============================================================================

// StreamMessage posts a message and streams the assistant reply, calling
// onChunk for every chunk. Forced web search goes to the dedicated endpoint.
//
// The reply is only final once StreamMessage returns nil. On error the caller
// must discard whatever chunks it has displayed.
func (c *Client) StreamMessage(ctx context.Context, conversationID string, req SendRequest, onChunk ChunkFunc) (*StreamResult, error) {
	if err := checkID("conversation", conversationID); err != nil {
		return nil, err
	}

	endpoint := "/chat/" + conversationID
	if req.ForceWebSearch {
		endpoint = "/conversations/" + conversationID + "/web_search"
	}
	cl := call{
		backend: chatBackend,
		method:  http.MethodPost,
		path:    endpoint,
		body:    req,
		auth:    true,
	}

	resp, err := c.send(ctx, c.streamClient, cl)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := readResponse(resp)
		if readErr != nil {
			return nil, readErr
		}
		return nil, c.handleErrorResponse(cl, resp.StatusCode, body)
	}

	reader := NewStreamReader(resp.Body)
	if err := reader.Process(ctx, onChunk); err != nil {
		return nil, err
	}

	return &StreamResult{
		Content:       reader.Content(),
		WebSearchUsed: req.ForceWebSearch || strings.EqualFold(resp.Header.Get(WebSearchHeader), "true"),
		Chunks:        reader.Chunks(),
	}, nil
}

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader turns a flushed text/plain body into UTF-8 safe chunks.
// Multi-byte characters split across reads are held back until complete.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	pending     []byte
	buf         []byte
	chunks      int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReaderSize(r, streamReadSize),
		buf:    make([]byte, streamReadSize),
	}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback ChunkFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunk, err := s.readChunk()
		if chunk != "" {
			s.accumulator.WriteString(chunk)
			s.chunks++
			if callback != nil {
				callback(chunk)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return s.flushPending(callback)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &ClientError{Type: ErrTypeStream, Message: "stream interrupted", Cause: err}
		}
	}
}

// readChunk performs one read and returns the complete characters received.
func (s *StreamReader) readChunk() (string, error) {
	n, err := s.reader.Read(s.buf)
	if n == 0 {
		return "", err
	}
	data := append(s.pending, s.buf[:n]...)
	cut := completePrefix(data)
	chunk := string(data[:cut])
	s.pending = append(s.pending[:0:0], data[cut:]...)
	return chunk, err
}

// flushPending emits bytes left over at EOF. A truncated character becomes
// the replacement rune rather than being dropped.
func (s *StreamReader) flushPending(callback ChunkFunc) error {
	if len(s.pending) == 0 {
		return nil
	}
	chunk := strings.ToValidUTF8(string(s.pending), string(utf8.RuneError))
	s.pending = nil
	s.accumulator.WriteString(chunk)
	s.chunks++
	if callback != nil {
		callback(chunk)
	}
	return nil
}

// Content returns everything read so far.
func (s *StreamReader) Content() string {
	return s.accumulator.String()
}

// Chunks returns the number of chunks delivered.
func (s *StreamReader) Chunks() int {
	return s.chunks
}

// completePrefix returns the length of the longest prefix of b that does not
// end inside a multi-byte UTF-8 sequence.
func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}

// =============================================================================
// HELPERS
// =============================================================================

// ReplyTo builds a ReplyPayload quoting msg at index.
func ReplyTo(index int, msg model.Message) *ReplyPayload {
	return &ReplyPayload{Index: index, Content: msg.Content, IsCurrentVersion: true}
}
