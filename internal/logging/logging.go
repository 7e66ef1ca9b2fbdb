// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the structured loggers shared by the CLI and the TUI.
//
// The TUI owns the terminal, so interactive sessions log to a file under the
// config directory. One-shot CLI commands log to stderr when --verbose is set
// and discard everything else.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// DefaultFileName is the log file created inside the config directory.
const DefaultFileName = "vscan.log"

// Options configure a logger.
type Options struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string

	// Format is text, json, or logfmt (default: text).
	Format string

	// Prefix is prepended to every line.
	Prefix string
}

// New creates a logger writing to w.
func New(w io.Writer, opts Options) *log.Logger {
	level, err := log.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = log.InfoLevel
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
	})

	switch strings.ToLower(opts.Format) {
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	default:
		logger.SetFormatter(log.TextFormatter)
	}
	return logger
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return New(io.Discard, Options{Level: "error"})
}

// OpenFile creates a logger appending to path. The caller closes the returned
// file when the program exits.
func OpenFile(path string, opts Options) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	// SECURITY: log lines contain request paths and conversation ids.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(f, opts), f, nil
}

// ForCLI returns a stderr logger when verbose is set, otherwise Discard.
func ForCLI(verbose bool, opts Options) *log.Logger {
	if !verbose {
		return Discard()
	}
	if opts.Level == "" {
		opts.Level = "debug"
	}
	return New(os.Stderr, opts)
}
