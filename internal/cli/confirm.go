// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Unified confirmation handling for destructive commands.
//
// One pattern for every command:
//  1. If --yes is present, proceed without prompting
//  2. If --json mode, require --yes (no interactive prompts in JSON mode)
//  3. If stdin cannot be prompted, require --yes
//  4. Otherwise, show an interactive prompt

package cli

import (
	"fmt"
	"strings"
)

// ConfirmationOptions keeps call sites readable.
type ConfirmationOptions struct {
	// Yes indicates --yes was passed (skip interactive prompt)
	Yes bool
	// JSONMode indicates --json was passed
	JSONMode bool
}

// RequireConfirmation checks that the user confirmed a destructive action.
//
// Returns:
//
//	bool  - true if confirmed, false if cancelled
//	error - non-nil if confirmation is required but cannot be asked for
func (e *Env) RequireConfirmation(action string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode {
		return false, fmt.Errorf("confirmation required: use --yes for destructive actions in JSON mode")
	}
	if !e.Interactive {
		return false, fmt.Errorf("confirmation required but stdin is not a terminal; use --yes")
	}

	fmt.Fprintf(e.Stderr, "Are you sure you want to %s? [y/N]: ", action)
	input, err := e.readLine()
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}

// ShowCancellationMessage displays a standard cancellation message.
func (e *Env) ShowCancellationMessage() {
	fmt.Fprintln(e.Stderr, DimStyle.Render("Cancelled."))
}
