// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds the signed-in state: the bearer token persisted under
// the config directory, the claims decoded from it and the cached profile.
//
// A Session is created once at startup and passed explicitly to the API
// client (as its token source), the TUI and the CLI commands. There is no
// package-level state.
//
// # Key Types
//
//   - TokenStore: owner-only token file
//   - Session: in-memory token, claims and profile; implements api.TokenSource
//   - Claims: the user id and expiry read from the token
//   - Watcher: reloads the Session when another process signs in or out
package auth
