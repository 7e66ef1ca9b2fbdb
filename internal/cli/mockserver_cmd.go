// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// mockserver_cmd.go - Run the in-process chat and user backends locally.
//
// Usage:
//   vscan mock-server [--chat-addr :5000] [--user-addr :3000] [--secret S]
//
// Password reset codes are printed to stderr in place of an email.

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/vscan-tui/internal/logging"
	"github.com/jeranaias/vscan-tui/internal/mockserver"
)

func (e *Env) handleMockServer(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw)
	mock := e.Config.Mock

	// The server logs even without --verbose; it has no other output.
	logger := e.Logger
	if !e.Args.Verbose {
		logger = logging.New(e.Stderr, logging.Options{
			Level:  "info",
			Format: e.Config.Logging.Format,
			Prefix: "mock",
		})
	}

	srv, err := mockserver.New(mockserver.Options{
		ChatAddr:  p.FlagOrDefault("chat-addr", mock.ChatAddr),
		UserAddr:  p.FlagOrDefault("user-addr", mock.UserAddr),
		JWTSecret: p.FlagOrDefault("secret", mock.JWTSecret),
		OnResetCode: func(email, code string) {
			fmt.Fprintf(e.Stderr, "%s reset code for %s: %s\n", InfoStyle.Render("[MAIL]"), email, code)
		},
		Logger: logger,
	})
	if err != nil {
		return NewCommandError("mock-server", "start", "could not create server", err)
	}

	err = srv.ListenAndServe(ctx, func(chatAddr, userAddr string) {
		fmt.Fprintln(e.Stdout, SuccessStyle.Render("Mock backends running"))
		fmt.Fprintln(e.Stdout, RenderField("Chat", "http://"+chatAddr))
		fmt.Fprintln(e.Stdout, RenderField("User", "http://"+userAddr))
		fmt.Fprintln(e.Stdout, DimStyle.Render("Press Ctrl+C to stop."))
	})
	if err != nil {
		return NewCommandError("mock-server", "serve", "server stopped", err)
	}
	return nil
}
