// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"
	"sync"
)

// Reconciler holds the transient text of a reply while it streams. The
// buffer is display-only: it is cleared when the stream fails and when the
// authoritative conversation has been fetched after it completes.
//
// Each stream gets a generation number; chunks and outcomes from an older
// generation are ignored so a stale goroutine cannot write into a new reply.
//
// Reconciler is safe for concurrent use.
type Reconciler struct {
	mu             sync.Mutex
	gen            uint64
	active         bool
	conversationID string
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	buf strings.Builder
}

// Begin starts a new reply for conversationID, abandoning any previous one,
// and returns its generation.
func (r *Reconciler) Begin(conversationID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.active = true
	r.conversationID = conversationID
	r.buf.Reset()
	return r.gen
}

// Append adds a chunk to the buffer of generation gen and returns the whole
// buffer. ok is false when gen is no longer current.
func (r *Reconciler) Append(gen uint64, chunk string) (buffer string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || gen != r.gen {
		return "", false
	}
	r.buf.WriteString(chunk)
	return r.buf.String(), true
}

// Complete clears the buffer of generation gen once the authoritative
// conversation has replaced it.
func (r *Reconciler) Complete(gen uint64) {
	r.clear(gen)
}

// Discard clears the buffer of generation gen after a failed stream.
func (r *Reconciler) Discard(gen uint64) {
	r.clear(gen)
}

// Abandon clears whatever reply is in flight.
func (r *Reconciler) Abandon() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.active = false
	r.conversationID = ""
	r.buf.Reset()
}

func (r *Reconciler) clear(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return
	}
	r.active = false
	r.conversationID = ""
	r.buf.Reset()
}

// Buffer returns the text received so far for the current reply.
func (r *Reconciler) Buffer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

// Active reports whether a reply is streaming and for which conversation.
func (r *Reconciler) Active() (conversationID string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conversationID, r.active
}
