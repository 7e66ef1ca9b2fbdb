// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

// ============================================================================
// Request ID
// ============================================================================

// requestID keeps the client's X-Request-Id or assigns a new one, and echoes
// it on the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// ============================================================================
// Request Logging
// ============================================================================

// requestLogger logs one line per request once the handler has finished.
func requestLogger(logger *log.Logger, backend string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("request",
			"backend", backend,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", c.GetString("request_id"),
		)
	}
}

// ============================================================================
// Recovery
// ============================================================================

// recovery turns a handler panic into a 500 with the backend's error shape.
func recovery(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"err", err,
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": "Internal server error."})
			}
		}()
		c.Next()
	}
}

// ============================================================================
// Security Headers
// ============================================================================

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Cache-Control", "no-store")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// bodyLimit caps request bodies at n bytes.
func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// ============================================================================
// Rate Limiter
// ============================================================================

// RateLimiter implements a sliding window rate limiter per client address.
// Stale entries are pruned on access, so no background goroutine is needed.
type RateLimiter struct {
	// requests maps client addresses to their request timestamps.
	requests map[string][]time.Time

	// limit is the maximum number of requests per window.
	limit int

	// window is the time window for rate limiting.
	window time.Duration

	// lastPrune is when every entry was last swept.
	lastPrune time.Time

	now func() time.Time
	mu  sync.Mutex
}

// NewRateLimiter creates a RateLimiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow records a request from client and reports whether it is within the
// limit, along with how many requests remain in the window.
func (rl *RateLimiter) Allow(client string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.window)
	if now.Sub(rl.lastPrune) > rl.window {
		rl.prune(windowStart)
		rl.lastPrune = now
	}

	valid := recent(rl.requests[client], windowStart)
	if len(valid) >= rl.limit {
		rl.requests[client] = valid
		return false, 0
	}
	valid = append(valid, now)
	rl.requests[client] = valid
	return true, rl.limit - len(valid)
}

// prune drops clients with no requests inside the window. The caller holds rl.mu.
func (rl *RateLimiter) prune(windowStart time.Time) {
	for client, stamps := range rl.requests {
		valid := recent(stamps, windowStart)
		if len(valid) == 0 {
			delete(rl.requests, client)
		} else {
			rl.requests[client] = valid
		}
	}
}

func recent(stamps []time.Time, windowStart time.Time) []time.Time {
	valid := stamps[:0:0]
	for _, ts := range stamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	return valid
}

// rateLimit rejects clients over the limit with 429 and sets X-RateLimit-*
// headers on every response.
func rateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining := limiter.Allow(c.ClientIP())
		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			h.Set("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"msg": "Too many requests."})
			return
		}
		c.Next()
	}
}
