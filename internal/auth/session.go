// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/vscan-tui/internal/model"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is the signed-in state shared by the API client, the TUI and the
// CLI. It implements api.TokenSource.
//
// Session is safe for concurrent use.
type Session struct {
	store  *TokenStore
	logger *log.Logger

	mu      sync.RWMutex
	token   string
	claims  *Claims
	profile *model.Profile

	listeners []func(signedIn bool)
}

// NewSession creates a session backed by store and loads any stored token.
// A token that cannot be read or decoded leaves the session signed out.
func NewSession(store *TokenStore, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Session{store: store, logger: logger}
	s.Reload()
	return s
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SignedIn reports whether a token is held.
func (s *Session) SignedIn() bool {
	return s.Token() != ""
}

// Claims returns the decoded token claims, or nil.
func (s *Session) Claims() *Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return nil
	}
	c := *s.claims
	return &c
}

// UserID returns the "id" claim of the token, or "".
func (s *Session) UserID() string {
	if c := s.Claims(); c != nil {
		return c.UserID
	}
	return ""
}

// Expired reports whether the token's own expiry has passed.
func (s *Session) Expired() bool {
	c := s.Claims()
	return c != nil && c.Expired(time.Now())
}

// SignIn stores a token issued by the backend.
func (s *Session) SignIn(token string) error {
	claims, err := ParseClaims(token)
	if err != nil {
		return err
	}
	if err := s.store.Save(token); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.profile = nil
	s.mu.Unlock()

	s.logger.Info("signed in", "user", claims.UserID)
	s.notify(true)
	return nil
}

// SignOut forgets the token and profile and removes the token file.
func (s *Session) SignOut() error {
	s.mu.Lock()
	wasSignedIn := s.token != ""
	s.token = ""
	s.claims = nil
	s.profile = nil
	s.mu.Unlock()

	err := s.store.Clear()
	if wasSignedIn {
		s.notify(false)
	}
	return err
}

// Invalidate signs out after a backend rejected the token.
func (s *Session) Invalidate() error {
	s.logger.Warn("token rejected, signing out")
	return s.SignOut()
}

// Reload re-reads the token file. It returns true when the signed-in state
// changed.
func (s *Session) Reload() bool {
	token, err := s.store.Load()
	if err != nil {
		s.logger.Warn("failed to load token", "err", err)
		token = ""
	}

	var claims *Claims
	if token != "" {
		if claims, err = ParseClaims(token); err != nil {
			s.logger.Warn("ignoring malformed token", "path", s.store.Path(), "err", err)
			token = ""
		}
	}

	s.mu.Lock()
	changed := token != s.token
	s.token = token
	s.claims = claims
	if changed {
		s.profile = nil
	}
	s.mu.Unlock()

	if changed {
		s.notify(token != "")
	}
	return changed
}

// =============================================================================
// PROFILE
// =============================================================================

// Profile returns the cached profile, or nil until one is set.
func (s *Session) Profile() *model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// SetProfile caches the profile fetched for the current token.
func (s *Session) SetProfile(p *model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.profile = nil
		return
	}
	cp := *p
	s.profile = &cp
}

// =============================================================================
// LISTENERS
// =============================================================================

// OnChange registers fn to be called after every sign-in or sign-out.
func (s *Session) OnChange(fn func(signedIn bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) notify(signedIn bool) {
	s.mu.RLock()
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(signedIn)
	}
}
