// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers messages to the running program from other goroutines.
// *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// =============================================================================
// RENDER THROTTLE
// =============================================================================

// RenderThrottle limits how often streamed chunks trigger a redraw. A redraw
// is due when batchSize chunks arrived or minInterval passed since the last
// one, whichever comes first.
//
// Thread-safety: Observe runs on the streaming goroutine while Reset runs
// in the Bubble Tea loop.
type RenderThrottle struct {
	mu          sync.Mutex
	pending     int
	lastFlush   time.Time
	batchSize   int
	minInterval time.Duration
	now         func() time.Time
}

// NewRenderThrottle creates a throttle capped at 30 redraws per second.
func NewRenderThrottle() *RenderThrottle {
	return NewRenderThrottleWithConfig(15, 30)
}

// NewRenderThrottleWithConfig creates a throttle with custom settings.
func NewRenderThrottleWithConfig(batchSize, maxFPS int) *RenderThrottle {
	if batchSize <= 0 {
		batchSize = 15
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = 30
	}
	return &RenderThrottle{
		batchSize:   batchSize,
		minInterval: time.Second / time.Duration(maxFPS),
		now:         time.Now,
	}
}

// Observe records one chunk and reports whether a redraw is due.
func (t *RenderThrottle) Observe() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending++
	now := t.now()
	if t.pending >= t.batchSize || now.Sub(t.lastFlush) >= t.minInterval {
		t.pending = 0
		t.lastFlush = now
		return true
	}
	return false
}

// Pending returns the chunks seen since the last redraw.
func (t *RenderThrottle) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Reset forgets pending chunks before a new stream.
func (t *RenderThrottle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = 0
	t.lastFlush = time.Time{}
}

// =============================================================================
// CANCELLATION
// =============================================================================

// cancelHolder keeps the cancel func of the running send. Model is copied on
// every Update, so it holds a pointer to this.
type cancelHolder struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (h *cancelHolder) set(cancel context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
	h.cancel = cancel
}

// fire cancels the running send, reporting whether there was one.
func (h *cancelHolder) fire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel == nil {
		return false
	}
	h.cancel()
	h.cancel = nil
	return true
}

func (h *cancelHolder) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
	h.cancel = nil
}
