// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Shared state for a single vscan invocation.

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/auth"
	"github.com/jeranaias/vscan-tui/internal/config"
	"github.com/jeranaias/vscan-tui/internal/logging"
	"github.com/jeranaias/vscan-tui/internal/storage"
	"github.com/jeranaias/vscan-tui/internal/ui/components"
)

// Env carries the configuration, session and backend client a command needs,
// plus the streams it reads and writes. Tests build one around buffers.
type Env struct {
	Args Args

	Stdout io.Writer
	Stderr io.Writer
	stdin  io.Reader
	in     *bufio.Reader

	// Interactive is true when prompts may be shown.
	Interactive bool

	Dir     string
	Config  *config.Config
	Logger  *log.Logger
	Session *auth.Session
	Client  *api.Client

	cache    *storage.ScanCache
	markdown *components.MarkdownRenderer
	closers  []io.Closer
}

// NewEnv loads .env and the config from the user's config directory and
// builds the session and client against the process streams.
func NewEnv(args Args) (*Env, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	env := newEnv(args, dir, cfg, os.Stdin, os.Stdout, os.Stderr)
	env.Interactive = IsTTY() && !args.JSON
	return env, nil
}

func newEnv(args Args, dir string, cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) *Env {
	logger := logging.ForCLI(args.Verbose, logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Prefix: "vscan",
	})
	if args.Verbose {
		logger.SetOutput(stderr)
	}

	session := auth.NewSession(auth.DefaultTokenStore(dir), logger)
	return &Env{
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		stdin:   stdin,
		in:      bufio.NewReader(stdin),
		Dir:     dir,
		Config:  cfg,
		Logger:  logger,
		Session: session,
		Client:  api.NewClient(cfg.APIConfig(), session, logger),
	}
}

// Cache opens the local scan cache on first use. It returns nil, nil when
// caching is disabled.
func (e *Env) Cache() (*storage.ScanCache, error) {
	if !e.Config.Cache.Enabled {
		return nil, nil
	}
	if e.cache != nil {
		return e.cache, nil
	}
	cache, err := storage.Open(e.Config.CachePath(e.Dir))
	if err != nil {
		return nil, fmt.Errorf("open scan cache: %w", err)
	}
	e.cache = cache
	e.closers = append(e.closers, cache)
	return cache, nil
}

// Close releases everything opened during the command.
func (e *Env) Close() error {
	var first error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	e.closers = nil
	return first
}

// out prints a line to stdout unless --quiet is set.
func (e *Env) out(format string, args ...any) {
	if e.Args.Quiet {
		return
	}
	fmt.Fprintf(e.Stdout, format+"\n", args...)
}

// printJSON wraps data in the standard envelope.
func (e *Env) printJSON(command string, data any) error {
	return NewJSONResponse(command, data).Print(e.Stdout)
}
