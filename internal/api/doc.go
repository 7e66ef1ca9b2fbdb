// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the scanner product's two backends.
//
// The chat backend serves conversations, streamed assistant replies, message
// edits, and document uploads. The user backend serves accounts, profiles, and
// the scanner integration. Both are opaque collaborators: this package only
// encodes requests and decodes what comes back.
//
// # Authentication
//
// Authenticated calls read the bearer token from an injected TokenSource on
// every request. When the chat backend rejects the token (401, 422, or a 404
// "User not found."), the client invalidates the token through the source and
// returns an error matching ErrSignInRequired.
//
// # Streaming
//
// StreamMessage posts a chat message and delivers the reply incrementally:
//
//	res, err := client.StreamMessage(ctx, convID, api.SendRequest{Message: "hi"},
//	    func(chunk string) { fmt.Print(chunk) })
//
// # Retries
//
// Only ListConversations retries, up to three times with a fixed delay.
package api
