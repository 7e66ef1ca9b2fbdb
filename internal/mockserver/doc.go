// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mockserver serves in-memory stand-ins for the chat backend and the
// user and scanner backend.
//
// The two backends listen on separate addresses, as the real services do:
//
//   - chat (default :5000): conversations, streamed replies, web search,
//     message edits, uploads and file previews
//   - user (default :3000): sign-up, sign-in, password reset, profile,
//     avatar upload, scan submission and scan history
//
// Tokens are HS256 JWTs carrying the user id in the "id" claim. Replies are
// canned text streamed in small chunks so the client's incremental rendering
// can be exercised. Nothing is persisted; restarting the server forgets
// every account.
//
// # Usage
//
//	srv, err := mockserver.New(mockserver.Options{JWTSecret: "dev"})
//	if err != nil {
//		return err
//	}
//	return srv.ListenAndServe(ctx, nil)
package mockserver
