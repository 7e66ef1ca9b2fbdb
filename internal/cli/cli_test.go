// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/config"
	"github.com/jeranaias/vscan-tui/internal/validate"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"list", "--conv", "abc123"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("conv") != "abc123" {
					t.Errorf("Flag(conv) = %q, want %q", p.Flag("conv"), "abc123")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"export", "--format=md"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("format") != "md" {
					t.Errorf("Flag(format) = %q, want %q", p.Flag("format"), "md")
				}
			},
		},
		{
			name:    "declared boolean does not consume the next argument",
			args:    []string{"--web", "what", "is", "xss"},
			bools:   []string{"web"},
			wantSub: "what",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("web") {
					t.Error("BoolFlag(web) should be true")
				}
				if got := JoinPositionalArgs(p, 0); got != "what is xss" {
					t.Errorf("JoinPositionalArgs = %q", got)
				}
			},
		},
		{
			name:    "undeclared flag consumes a value",
			args:    []string{"--web", "what"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("web") != "what" {
					t.Errorf("Flag(web) = %q, want %q", p.Flag("web"), "what")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"edit", "id", "0", "--", "--not-a-flag"},
			wantSub: "edit",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(3) != "--not-a-flag" {
					t.Errorf("Positional(3) = %q", p.Positional(3))
				}
			},
		},
		{
			name:    "negative number is positional",
			args:    []string{"edit", "-1"},
			wantSub: "edit",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(1) != "-1" {
					t.Errorf("Positional(1) = %q", p.Positional(1))
				}
			},
		},
		{
			name:    "equals false clears a boolean",
			args:    []string{"--yes=false"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("yes") {
					t.Error("BoolFlag(yes) should be false")
				}
				if !p.HasFlag("yes") {
					t.Error("HasFlag(yes) should be true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args, tt.bools...)
			if parser.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", parser.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, parser)
			}
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		defaultVal int
		want       int
	}{
		{"flag present", []string{"history", "--limit", "10"}, 5, 10},
		{"flag missing uses default", []string{"history"}, 5, 5},
		{"invalid int uses default", []string{"history", "--limit", "abc"}, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewArgParser(tt.args).FlagIntOrDefault("limit", tt.defaultVal)
			if got != tt.want {
				t.Errorf("FlagIntOrDefault = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseIndex(t *testing.T) {
	n, err := ParseIndex("3", "message index")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, bad := range []string{"", "-1", "two"} {
		_, err := ParseIndex(bad, "message index")
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), "ParseIndex(%q)", bad)
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		b, err := ParseBoolString(s)
		assert.NoError(t, err)
		assert.True(t, b, s)
	}
	for _, s := range []string{"false", "No", "n", "0", "off"} {
		b, err := ParseBoolString(s)
		assert.NoError(t, err)
		assert.False(t, b, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{nil, CmdTUI, nil},
		{[]string{"--json"}, CmdTUI, func(t *testing.T, a Args) { assert.True(t, a.JSON) }},
		{[]string{"chat", "--plain"}, CmdChat, func(t *testing.T, a Args) {
			assert.Equal(t, []string{"--plain"}, a.Raw)
			assert.Empty(t, a.Subcommand)
		}},
		{[]string{"conv", "List", "--json"}, CmdConv, func(t *testing.T, a Args) {
			assert.True(t, a.JSON)
			assert.Equal(t, "list", a.Subcommand)
			assert.Equal(t, []string{"List"}, a.Raw)
		}},
		{[]string{"-v", "signin", "ada@example.com"}, CmdLogin, func(t *testing.T, a Args) {
			assert.True(t, a.Verbose)
			assert.Equal(t, "signin", a.Name)
		}},
		{[]string{"-q", "conversations"}, CmdConv, func(t *testing.T, a Args) { assert.True(t, a.Quiet) }},
		{[]string{"ask", "--", "--json"}, CmdAsk, func(t *testing.T, a Args) {
			assert.False(t, a.JSON)
			assert.Equal(t, []string{"--", "--json"}, a.Raw)
		}},
		{[]string{"--version"}, CmdVersion, nil},
		{[]string{"-h"}, CmdHelp, nil},
		{[]string{"frobnicate"}, CmdUnknown, func(t *testing.T, a Args) { assert.Equal(t, "frobnicate", a.Name) }},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, " "), func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			assert.Equal(t, tt.wantCmd, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestUsageListsEveryCommand(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	for name, cmd := range commands {
		if strings.HasPrefix(name, "-") || cmd == CmdHelp {
			continue
		}
		switch name {
		case "tui", "signin", "signout", "register", "conversations":
			continue
		}
		assert.Contains(t, buf.String(), name, "usage should mention %q", name)
	}
}

// =============================================================================
// ERROR HANDLING TESTS (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitGeneralError},
		{"validation", NewValidationError("url", "x", "bad"), ExitUsageError},
		{"missing argument", ErrMissingArgument("id", "vscan conv show ID"), ExitUsageError},
		{"field error", validate.FieldError{Field: "email", Message: "bad"}, ExitUsageError},
		{"form errors", validate.Errors{{Field: "email", Message: "bad"}}, ExitUsageError},
		{"unknown config key", fmt.Errorf("set: %w", config.ErrUnknownKey), ExitConfigError},
		{"sign in required", api.ErrSignInRequired, ExitAuthError},
		{"wrapped sign in", apiError("conv", "list", api.ErrSignInRequired), ExitAuthError},
		{"timeout", api.ErrTimeout, ExitTimeoutError},
		{"deadline", context.DeadlineExceeded, ExitTimeoutError},
		{"not found", &NotFoundError{Resource: "conversation", ID: "x"}, ExitNotFoundError},
		{"http 404", apiError("conv", "show", &api.APIError{Status: http.StatusNotFound}), ExitNotFoundError},
		{"http 403", &api.APIError{Status: http.StatusForbidden}, ExitAuthError},
		{"network", &api.ClientError{Type: api.ErrTypeNetwork, Message: "connection refused"}, ExitNetworkError},
		{"http 500", &api.APIError{Status: http.StatusInternalServerError}, ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, apiError("conv", "list", api.ErrSignInRequired), false)
	out := buf.String()
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "vscan login")

	buf.Reset()
	DisplayError(&buf, nil, false)
	assert.Empty(t, buf.String())
}

func TestDisplayErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayErrorJSON(&buf, NewValidationError("url", "ftp://x", "must be http or https"))
	out := buf.String()
	assert.Contains(t, out, `"success": false`)
	assert.Contains(t, out, `"error_type": "validation_error"`)
	assert.Contains(t, out, `"field": "url"`)

	buf.Reset()
	DisplayErrorJSON(&buf, validate.Errors{{Field: "email", Message: "Email is required"}})
	assert.Contains(t, buf.String(), `"email": "Email is required"`)
}

func TestCommandErrorUnwraps(t *testing.T) {
	err := NewCommandError("scan", "submit", "backend unreachable", api.ErrTimeout)
	assert.True(t, errors.Is(err, api.ErrTimeout))
	assert.Equal(t, "scan submit failed: backend unreachable: request timed out", err.Error())
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func TestJSONResponse(t *testing.T) {
	resp := NewJSONResponse("version", VersionData{Version: "1.2.3"})
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Contains(t, resp.String(), `"version": "1.2.3"`)

	errResp := NewJSONErrorResponse("scan", NewValidationError("url", "", "required"))
	assert.False(t, errResp.Success)
	if assert.NotNil(t, errResp.Error) {
		assert.Contains(t, *errResp.Error, "invalid url")
	}
}

func TestWrapText(t *testing.T) {
	wrapped := WrapText("the quick brown fox jumps over the lazy dog", 10)
	lines := strings.Split(wrapped, "\n")
	assert.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), 10, line)
	}
	assert.Equal(t, "the quick brown fox jumps over the lazy dog", strings.Join(lines, " "))
}
