// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/model"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// BufferMsg signals that the streamed reply grew. The text itself is read
// from the session snapshot.
type BufferMsg struct{}

// SendDoneMsg reports the end of a send, successful or not.
type SendDoneMsg struct {
	Result *api.StreamResult
	Err    error

	seq int
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// TokenChangedMsg reports a sign-in or sign-out, possibly from another
// terminal.
type TokenChangedMsg struct {
	SignedIn bool
}

// loadedMsg reports the end of a conversation operation. status, when set,
// is shown in the status line on success.
type loadedMsg struct {
	action string
	status string
	err    error
}

// searchResultsMsg delivers conversation search results.
type searchResultsMsg struct {
	query   string
	results []model.SearchResult
	err     error
}

// =============================================================================
// FILE MESSAGES
// =============================================================================

// filesMsg delivers the user's previously uploaded files.
type filesMsg struct {
	files []model.FileRef
	err   error
}

// uploadDoneMsg reports the end of an upload.
type uploadDoneMsg struct {
	result *model.UploadResult
	err    error
}
