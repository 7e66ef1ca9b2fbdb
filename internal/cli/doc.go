// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for vscan.
//
// Without arguments vscan starts the full-screen TUI. Every other command
// runs once and exits, which makes the binary scriptable: --json switches
// output to machine-readable JSON and errors map to stable exit codes.
//
// # Usage
//
//	os.Exit(cli.Run(os.Args[1:]))
//
// # Commands Overview
//
// Chat:
//   - chat: TUI, or a line-mode REPL with --plain
//   - ask: One question, streamed to stdout
//   - conv: List, show, rename, delete, search, edit and export conversations
//   - files: List, show and upload conversation files
//
// Scanner:
//   - scan: Submit a URL for a vulnerability scan
//   - results: Latest scan, optionally exported as a report
//   - history: Past scans, cached locally for offline use
//
// Account:
//   - login, logout, signup, whoami, profile
//   - forgot-password, reset-password
//
// Tooling:
//   - config: Show, get and set configuration values
//   - mock-server: Local chat and user backends for development
//
// # Exit Codes
//
//	0  success
//	1  general error
//	2  usage or validation error
//	3  configuration error
//	4  not signed in or rejected credentials
//	5  backend unreachable
//	7  not found
//	8  timeout
package cli
