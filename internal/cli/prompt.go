// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompt.go - Line and password prompts for the account commands.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrPromptUnavailable is returned when input is needed but stdin is closed
// or cannot be prompted.
var ErrPromptUnavailable = errors.New("no input available")

// readLine reads one line from stdin without the trailing newline.
func (e *Env) readLine() (string, error) {
	line, err := e.in.ReadString('\n')
	switch {
	case errors.Is(err, io.EOF) && line == "":
		return "", ErrPromptUnavailable
	case err != nil && !errors.Is(err, io.EOF):
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// prompt asks for a value unless one was given on the command line.
func (e *Env) prompt(label, given string) (string, error) {
	if given != "" {
		return given, nil
	}
	if e.Interactive {
		fmt.Fprintf(e.Stderr, "%s: ", label)
	}
	value, err := e.readLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// promptPassword reads a secret without echo when stdin is a terminal, and a
// plain line otherwise so scripts can pipe it in.
func (e *Env) promptPassword(label string) (string, error) {
	if e.Interactive {
		fmt.Fprintf(e.Stderr, "%s: ", label)
	}
	if f, ok := e.stdin.(*os.File); ok && isTerminalReader(f) && e.in.Buffered() == 0 {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(e.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}
	return e.readLine()
}
