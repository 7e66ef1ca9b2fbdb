// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/vscan-tui/internal/util"
)

// TokenFileName is the token file inside the config directory.
const TokenFileName = "token"

// TokenStore persists the bearer token in a single owner-only file.
type TokenStore struct {
	path string
}

// NewTokenStore creates a store for the token file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// DefaultTokenStore returns the store inside dir (the config directory).
func DefaultTokenStore(dir string) *TokenStore {
	return NewTokenStore(filepath.Join(dir, TokenFileName))
}

// Path returns the token file path.
func (s *TokenStore) Path() string {
	return s.path
}

// Load returns the stored token, or "" when none is stored.
func (s *TokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save stores token.
// SECURITY: the file is 0600 inside a 0700 directory.
func (s *TokenStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("save token: token is empty")
	}
	if err := util.WriteSecretFile(s.path, []byte(token+"\n")); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
