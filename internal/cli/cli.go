// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for vscan.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdLogin
	CmdLogout
	CmdSignup
	CmdForgot
	CmdReset
	CmdWhoami
	CmdProfile
	CmdScan
	CmdResults
	CmdHistory
	CmdConv
	CmdFiles
	CmdConfig
	CmdMockServer
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON    bool // Output in JSON format
	Verbose bool // Debug logging to stderr
	Quiet   bool

	// Name is the command as typed.
	Name string

	Subcommand string

	// Raw args after the command name, global flags removed
	Raw []string
}

const usageText = `vscan - terminal client for the vulnerability scanner

Usage:
  vscan                          Start the TUI (chat, tab for the scanner)
  vscan chat [--plain]           TUI chat, or a line-mode chat with --plain
  vscan ask "question"           One-shot question
    --conv ID                    Ask in an existing conversation
    --web                        Force a web search
    --file FILE_ID               Attach a previously uploaded file

Account:
  vscan login [--email E]        Sign in (password is prompted)
  vscan logout                   Sign out
  vscan signup                   Create an account
  vscan forgot-password [EMAIL]  Send a password reset code
  vscan reset-password [EMAIL]   Reset the password with the emailed code
  vscan whoami                   Show who is signed in
  vscan profile [show]           Show the profile
  vscan profile rename NAME      Change the user name
  vscan profile avatar FILE      Upload or replace the avatar

Scanner:
  vscan scan URL                 Scan a site and print the findings
  vscan results                  Show the latest scan
    --export md|html|json        Write a report
    --out FILE                   Report path (default: current directory)
  vscan history [--clear]        Previous scans (cached locally)

Conversations:
  vscan conv list
  vscan conv show ID
  vscan conv new [TITLE]
  vscan conv rename ID TITLE
  vscan conv delete ID [--yes]
  vscan conv search QUERY
  vscan conv edit ID INDEX TEXT  Edit one of your messages and regenerate
  vscan conv export ID --format md|html|json [--out FILE]

Files:
  vscan files list [--conv ID]
  vscan files show FILE_ID [--raw]
  vscan files upload --conv ID PATH

Configuration:
  vscan config show
  vscan config get KEY
  vscan config set KEY VALUE
  vscan config path
  vscan config keys

Development:
  vscan mock-server [--chat-addr :5000] [--user-addr :3000]
  vscan version                  Print version information
  vscan help                     Show this help

Global flags:
  --json                         Machine-readable output
  -v, --verbose                  Log requests to stderr
  -q, --quiet                    Suppress informational output

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "vscan version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// =============================================================================
// PARSING
// =============================================================================

var commands = map[string]Command{
	"tui":             CmdTUI,
	"chat":            CmdChat,
	"ask":             CmdAsk,
	"login":           CmdLogin,
	"signin":          CmdLogin,
	"logout":          CmdLogout,
	"signout":         CmdLogout,
	"signup":          CmdSignup,
	"register":        CmdSignup,
	"forgot-password": CmdForgot,
	"reset-password":  CmdReset,
	"whoami":          CmdWhoami,
	"profile":         CmdProfile,
	"scan":            CmdScan,
	"results":         CmdResults,
	"history":         CmdHistory,
	"conv":            CmdConv,
	"conversations":   CmdConv,
	"files":           CmdFiles,
	"config":          CmdConfig,
	"mock-server":     CmdMockServer,
	"version":         CmdVersion,
	"--version":       CmdVersion,
	"help":            CmdHelp,
	"--help":          CmdHelp,
	"-h":              CmdHelp,
}

// Parse parses command-line arguments (without the program name) and returns
// the command and args.
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		return CmdTUI, args
	}

	args.Name = strings.ToLower(remaining[0])
	args.Raw = remaining[1:]
	if len(args.Raw) > 0 && !strings.HasPrefix(args.Raw[0], "-") {
		args.Subcommand = strings.ToLower(args.Raw[0])
	}

	cmd, ok := commands[args.Name]
	if !ok {
		return CmdUnknown, args
	}
	return cmd, args
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
// Everything after "--" is passed through untouched.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var (
		remaining []string
		args      Args
	)
	for i, arg := range argv {
		switch arg {
		case "--":
			return append(remaining, argv[i:]...), args
		case "--json":
			args.JSON = true
		case "-v", "--verbose":
			args.Verbose = true
		case "-q", "--quiet":
			args.Quiet = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

// =============================================================================
// RUN
// =============================================================================

// Run executes the command line and returns the process exit code.
func Run(argv []string) int {
	cmd, args := Parse(argv)

	switch cmd {
	case CmdHelp:
		PrintUsage(os.Stdout)
		return ExitSuccess
	case CmdVersion:
		return exitCode(os.Stdout, handleVersion(os.Stdout, args), args.JSON)
	case CmdUnknown:
		PrintUsage(os.Stderr)
		return exitCode(os.Stderr, errUnknownCommand(args.Name), args.JSON)
	}

	env, err := NewEnv(args)
	if err != nil {
		return exitCode(os.Stderr, err, args.JSON)
	}
	defer env.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return env.Execute(ctx, cmd)
}

// Execute runs cmd and reports its error. JSON errors go to stdout so
// scripts always read one document.
func (e *Env) Execute(ctx context.Context, cmd Command) int {
	err := e.dispatch(ctx, cmd)
	if err == nil {
		return ExitSuccess
	}
	w := e.Stderr
	if e.Args.JSON {
		w = e.Stdout
	}
	return exitCode(w, err, e.Args.JSON)
}

func exitCode(w io.Writer, err error, jsonMode bool) int {
	if err == nil {
		return ExitSuccess
	}
	DisplayError(w, err, jsonMode)
	return GetExitCode(err)
}

func errUnknownCommand(name string) error {
	return &ValidationError{Field: "command", Value: name, Reason: "unknown command", Example: "vscan help"}
}

func (e *Env) dispatch(ctx context.Context, cmd Command) error {
	switch cmd {
	case CmdTUI:
		return e.runTUI(ctx)
	case CmdChat:
		return e.handleChat(ctx)
	case CmdAsk:
		return e.handleAsk(ctx)
	case CmdLogin:
		return e.handleLogin(ctx)
	case CmdLogout:
		return e.handleLogout(ctx)
	case CmdSignup:
		return e.handleSignup(ctx)
	case CmdForgot:
		return e.handleForgotPassword(ctx)
	case CmdReset:
		return e.handleResetPassword(ctx)
	case CmdWhoami:
		return e.handleWhoami(ctx)
	case CmdProfile:
		return e.handleProfile(ctx)
	case CmdScan:
		return e.handleScan(ctx)
	case CmdResults:
		return e.handleResults(ctx)
	case CmdHistory:
		return e.handleHistory(ctx)
	case CmdConv:
		return e.handleConv(ctx)
	case CmdFiles:
		return e.handleFiles(ctx)
	case CmdConfig:
		return e.handleConfig()
	case CmdMockServer:
		return e.handleMockServer(ctx)
	case CmdVersion:
		return handleVersion(e.Stdout, e.Args)
	case CmdHelp:
		PrintUsage(e.Stdout)
		return nil
	}
	return errUnknownCommand(e.Args.Name)
}

// handleVersion handles the "version" command with JSON output support.
func handleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(w)
	}
	PrintVersion(w)
	return nil
}
