// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the client-side chat state: the sorted conversation
// list, the active conversation, per-message version navigation and the
// transient buffer for a reply that is still streaming.
//
// The backend is authoritative. Every mutation is proposed to it first and
// local state is updated from its answer; a streamed reply is only shown
// through the buffer until the conversation is fetched again.
//
// # Key Types
//
//   - Manager: coordinates the pieces below against a Backend
//   - List: conversation metadata, newest activity first
//   - Store: the open conversation and its messages
//   - Versions: display index per user message (0 = current)
//   - Reconciler: the "typing" buffer for one in-flight reply
//
// # Usage
//
//	mgr := session.NewManager(client, logger)
//	if err := mgr.Init(ctx); err != nil {
//	    return err
//	}
//	_, err := mgr.Send(ctx, session.Outgoing{Text: "hello"}, func(buf string) {
//	    sender.Send(chunkMsg{buf})
//	})
package session
