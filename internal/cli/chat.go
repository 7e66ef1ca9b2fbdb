// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat: the full-screen TUI and a line-mode REPL.
//
// Examples:
//   vscan                 Start the TUI (tab switches to the scanner)
//   vscan chat            Same as above
//   vscan chat --plain    Line-mode chat for terminals without alt-screen
//   vscan chat --plain --conv 65f0c2a1b3e4d5f6a7b8c9d0
//
// REPL commands:
//   /new [TITLE]   /list   /open ID   /rename TITLE   /delete
//   /search QUERY  /reply INDEX   /web   /attach FILE_ID|PATH
//   /edit INDEX TEXT   /show   /help   /exit

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peterh/liner"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/auth"
	"github.com/jeranaias/vscan-tui/internal/logging"
	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/session"
	"github.com/jeranaias/vscan-tui/internal/ui/app"
	"github.com/jeranaias/vscan-tui/internal/ui/chat"
	"github.com/jeranaias/vscan-tui/internal/ui/components"
	"github.com/jeranaias/vscan-tui/internal/ui/dashboard"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
	"github.com/jeranaias/vscan-tui/internal/util"
)

func (e *Env) handleChat(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw, "plain")
	if p.BoolFlag("plain") {
		return e.runREPL(ctx, p.Flag("conv"))
	}
	return e.runTUI(ctx)
}

// =============================================================================
// TUI
// =============================================================================

// programSender forwards messages to the program once it exists.
type programSender struct {
	p atomic.Pointer[tea.Program]
}

func (s *programSender) Send(msg tea.Msg) {
	if p := s.p.Load(); p != nil {
		p.Send(msg)
	}
}

func (e *Env) runTUI(ctx context.Context) error {
	if !IsTTY() || !IsStdoutTTY() {
		return &TTYRequiredError{Operation: "start the chat UI (try 'vscan chat --plain')"}
	}

	// The TUI owns the terminal, so logs go to a file.
	logOpts := logging.Options{Level: e.Config.Logging.Level, Format: e.Config.Logging.Format}
	logger, logFile, err := logging.OpenFile(e.Config.LogPath(e.Dir), logOpts)
	if err != nil {
		logger = logging.Discard()
	} else {
		e.closers = append(e.closers, logFile)
	}
	client := api.NewClient(e.Config.APIConfig(), e.Session, logger)

	theme := styles.NewTheme(e.Config.UI.Theme)
	chatModel := chat.New(chat.Options{
		Manager:        session.NewManager(client, logger),
		Auth:           e.Session,
		Files:          client,
		Theme:          theme,
		Markdown:       components.NewMarkdownRenderer(theme.GlamourStyle(e.Config.UI.MarkdownStyle)),
		Logger:         logger,
		SidebarWidth:   e.Config.UI.SidebarWidth,
		ShowTimestamps: e.Config.UI.ShowTimestamps,
	})

	dashOpts := dashboard.Options{
		Scanner: client,
		UserID:  e.Session.UserID,
		Theme:   theme,
		Logger:  logger,
	}
	if cache, err := e.Cache(); err != nil {
		logger.Warn("scan cache unavailable", "err", err)
	} else if cache != nil {
		dashOpts.History = cache
	}

	root := app.New(chatModel, dashboard.New(dashOpts), app.ViewChat)
	sender := &programSender{}
	root.SetSender(sender)

	program := tea.NewProgram(root, tea.WithAltScreen(), tea.WithContext(ctx))
	sender.p.Store(program)

	e.Session.OnChange(func(signedIn bool) {
		sender.Send(chat.TokenChangedMsg{SignedIn: signedIn})
	})
	if e.Config.UI.WatchToken {
		watcher, err := auth.NewWatcher(e.Session, auth.DefaultWatchDebounce)
		if err == nil {
			err = watcher.Start()
		}
		if err != nil {
			logger.Warn("token watcher disabled", "err", err)
		} else {
			defer watcher.Close()
		}
	}

	logger.Info("starting TUI", "chat_url", e.Config.Backend.ChatURL, "user_url", e.Config.Backend.UserURL)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

// =============================================================================
// LINE-MODE REPL
// =============================================================================

// lineReader is the part of liner the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// repl is a line-mode chat over a session.Manager.
type repl struct {
	env   *Env
	mgr   *session.Manager
	lines lineReader

	// staged for the next message
	replyTo    *int
	webSearch  bool
	attachment *model.Attachment
}

func (e *Env) runREPL(ctx context.Context, convID string) error {
	if !e.Session.SignedIn() {
		return api.ErrSignInRequired
	}

	mgr := session.NewManager(e.Client, e.Logger)
	if convID != "" {
		if err := mgr.Select(ctx, convID); err != nil {
			return apiError("chat", "open conversation", err)
		}
	} else if err := mgr.Init(ctx); err != nil {
		return apiError("chat", "load conversations", err)
	}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	historyFile := filepath.Join(e.Dir, "chat_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
		line.Close()
	}()

	r := &repl{env: e, mgr: mgr, lines: line}
	return r.run(ctx)
}

func (r *repl) run(ctx context.Context) error {
	w := r.env.Stdout
	fmt.Fprintln(w, TitleStyle.Render("vscan chat"))
	fmt.Fprintln(w, DimStyle.Render("Type a message, /help for commands, /exit to quit."))
	r.printActive()

	for {
		input, err := r.lines.Prompt(r.promptText())
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.lines.AppendHistory(input)

		if input == "exit" || input == "quit" {
			return nil
		}
		if strings.HasPrefix(input, "/") {
			quit, err := r.command(ctx, input)
			if err != nil {
				DisplayError(r.env.Stderr, err, false)
			}
			if quit {
				return nil
			}
			continue
		}
		if err := r.send(ctx, input); err != nil {
			DisplayError(r.env.Stderr, err, false)
		}
	}
}

func (r *repl) promptText() string {
	var tags []string
	if r.replyTo != nil {
		tags = append(tags, fmt.Sprintf("reply %d", *r.replyTo))
	}
	if r.webSearch {
		tags = append(tags, "web")
	}
	if r.attachment != nil {
		tags = append(tags, r.attachment.DisplayName)
	}
	if len(tags) == 0 {
		return "> "
	}
	return "[" + strings.Join(tags, ", ") + "] > "
}

func (r *repl) send(ctx context.Context, text string) error {
	w := r.env.Stdout
	out := session.Outgoing{Text: text, WebSearch: r.webSearch, ReplyTo: r.replyTo, Attachment: r.attachment}

	printed := 0
	res, err := r.mgr.Send(ctx, out, func(buffer string) {
		if len(buffer) > printed {
			fmt.Fprint(w, buffer[printed:])
			printed = len(buffer)
		}
	})
	if printed > 0 {
		fmt.Fprintln(w)
	}
	if err != nil {
		return apiError("chat", "send", err)
	}
	if printed == 0 && res.Content != "" {
		fmt.Fprintln(w, res.Content)
	}
	if res.WebSearchUsed {
		fmt.Fprintln(w, DimStyle.Render("Web search used"))
	}

	r.replyTo, r.webSearch, r.attachment = nil, false, nil
	return nil
}

func (r *repl) printActive() {
	snap := r.mgr.Snapshot()
	if snap.Active == nil {
		return
	}
	fmt.Fprintln(r.env.Stdout, InfoStyle.Render(fmt.Sprintf("Conversation: %s (%s, %s)",
		snap.Active.GetTitle(), snap.Active.ID, util.Pluralize(len(snap.Messages), "message", "messages"))))
}

// command runs a slash command. It returns true to leave the REPL.
func (r *repl) command(ctx context.Context, input string) (bool, error) {
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	w := r.env.Stdout

	switch strings.ToLower(name) {
	case "/exit", "/quit", "/q":
		return true, nil

	case "/help", "/?":
		fmt.Fprintln(w, replHelp)

	case "/new":
		if _, err := r.mgr.NewConversation(ctx, rest); err != nil {
			return false, err
		}
		r.printActive()

	case "/list":
		active := r.mgr.ActiveID()
		for _, c := range r.mgr.Conversations() {
			marker := "  "
			if c.ID == active {
				marker = HighlightStyle.Render("* ")
			}
			fmt.Fprintf(w, "%s%s  %s  %s\n", marker, DimStyle.Render(c.ID), c.GetTitle(),
				DimStyle.Render(model.NewTimestamp(c.ActivityTime()).Sidebar()))
		}

	case "/open":
		if rest == "" {
			return false, ErrMissingArgument("conversation id", "/open ID")
		}
		if err := r.mgr.Select(ctx, rest); err != nil {
			return false, err
		}
		r.printActive()

	case "/show":
		snap := r.mgr.Snapshot()
		if snap.Active != nil {
			r.env.printConversation(snap.Active)
		}

	case "/rename":
		if err := r.mgr.Rename(ctx, r.mgr.ActiveID(), rest); err != nil {
			return false, err
		}
		r.printActive()

	case "/delete":
		if err := r.mgr.Delete(ctx, r.mgr.ActiveID()); err != nil {
			return false, err
		}
		r.printActive()

	case "/search":
		results, err := r.mgr.Search(ctx, rest)
		if err != nil {
			return false, err
		}
		for _, res := range results {
			fmt.Fprintf(w, "%s  %s  %s\n", DimStyle.Render(res.ID), res.Title, DimStyle.Render("("+string(res.MatchType)+")"))
		}

	case "/reply":
		index, err := ParseIndex(rest, "message index")
		if err != nil {
			return false, err
		}
		if index >= len(r.mgr.Snapshot().Messages) {
			return false, NewValidationError("message index", rest, "no such message")
		}
		r.replyTo = &index

	case "/web":
		r.webSearch = !r.webSearch

	case "/attach":
		return false, r.attach(ctx, rest)

	case "/edit":
		idx, text, _ := strings.Cut(rest, " ")
		index, err := ParseIndex(idx, "message index")
		if err != nil {
			return false, err
		}
		if err := r.mgr.Edit(ctx, index, text); err != nil {
			return false, err
		}
		if snap := r.mgr.Snapshot(); snap.Active != nil {
			if last := snap.Active.LastMessage(); last != nil {
				fmt.Fprintln(w, r.env.renderMarkdown(last.Content))
			}
		}

	default:
		return false, NewValidationError("command", name, "unknown command (try /help)")
	}
	return false, nil
}

// attach stages an earlier upload by id, or uploads a local file.
func (r *repl) attach(ctx context.Context, arg string) error {
	if arg == "" {
		return ErrMissingArgument("file", "/attach ./notes.txt")
	}
	if _, err := os.Stat(arg); err != nil {
		r.attachment = &model.Attachment{FileID: arg, DisplayName: arg}
		return nil
	}
	res, err := r.env.Client.UploadPath(ctx, r.mgr.ActiveID(), arg)
	if err != nil {
		return err
	}
	r.attachment = &model.Attachment{FileID: res.FileID, DisplayName: res.Filename}
	fmt.Fprintln(r.env.Stdout, DimStyle.Render("Attached "+res.Filename))
	return nil
}

const replHelp = `Commands:
  /new [TITLE]        Start a conversation
  /list               List conversations
  /open ID            Switch conversation
  /show               Print the conversation
  /rename TITLE       Rename the conversation
  /delete             Delete the conversation
  /search QUERY       Search conversations
  /reply INDEX        Quote a message in your next message
  /web                Toggle web search for the next message
  /attach FILE        Attach an uploaded file id or a local file
  /edit INDEX TEXT    Edit one of your messages and regenerate
  /exit               Leave`
