// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler for vscan CLI.
//
// Examples:
//   vscan ask "How do I fix a missing CSP header?"
//   vscan ask --conv 65f0c2a1b3e4d5f6a7b8c9d0 "And for nginx?"
//   vscan ask --web "Any recent CVEs for jQuery 3.4?"
//   vscan ask --file 3f2a... "Summarize this config"
//   echo "what is clickjacking" | vscan ask
//
// Without --conv a new conversation is started. On a terminal the reply is
// rendered as markdown once complete; piped output receives the raw text as
// it streams.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/session"
	"github.com/jeranaias/vscan-tui/internal/ui/components"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders markdown for terminal display. Output that is not a
// terminal gets the content unchanged.
func (e *Env) renderMarkdown(content string) string {
	if !isTerminalWriter(e.Stdout) {
		return content
	}
	if e.markdown == nil {
		theme := styles.NewTheme(e.Config.UI.Theme)
		e.markdown = components.NewMarkdownRenderer(theme.GlamourStyle(e.Config.UI.MarkdownStyle))
	}
	return strings.TrimRight(e.markdown.Render(content, GetTerminalWidth()-2), "\n")
}

// =============================================================================
// ASK
// =============================================================================

func (e *Env) handleAsk(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw, "web")
	question := JoinPositionalArgs(p, 0)
	if strings.TrimSpace(question) == "" && !isTerminalReader(e.stdin) {
		data, err := io.ReadAll(e.in)
		if err != nil {
			return fmt.Errorf("read question: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}
	if strings.TrimSpace(question) == "" {
		return ErrMissingArgument("question", `vscan ask "How do I fix a missing CSP header?"`)
	}

	mgr := session.NewManager(e.Client, e.Logger)
	if id := p.Flag("conv"); id != "" {
		if err := mgr.Select(ctx, id); err != nil {
			return apiError("ask", "open conversation", err)
		}
		if mgr.ActiveID() != id {
			fmt.Fprintln(e.Stderr, WarningStyle.Render("Conversation "+id+" no longer exists; started a new one."))
		}
	} else if _, err := mgr.NewConversation(ctx, ""); err != nil {
		return apiError("ask", "start conversation", err)
	}

	out := session.Outgoing{Text: question, WebSearch: p.BoolFlag("web")}
	if fileID := p.Flag("file"); fileID != "" {
		out.Attachment = &model.Attachment{FileID: fileID, DisplayName: fileID}
	}

	// Piped output streams; terminals render the finished markdown.
	streamRaw := !e.Args.JSON && !isTerminalWriter(e.Stdout)
	printed := 0
	onBuffer := func(buffer string) {
		if !streamRaw || len(buffer) <= printed {
			return
		}
		fmt.Fprint(e.Stdout, buffer[printed:])
		printed = len(buffer)
	}
	if !streamRaw && !e.Args.JSON && !e.Args.Quiet {
		fmt.Fprintln(e.Stderr, DimStyle.Render("Thinking..."))
	}

	res, err := mgr.Send(ctx, out, onBuffer)
	if err != nil {
		if streamRaw && printed > 0 {
			fmt.Fprintln(e.Stdout)
		}
		return apiError("ask", "send", err)
	}

	if e.Args.JSON {
		return e.printJSON("ask", AskData{
			ConversationID: mgr.ActiveID(),
			Response:       res.Content,
			WebSearchUsed:  res.WebSearchUsed,
			Chunks:         res.Chunks,
		})
	}
	if streamRaw {
		if printed < len(res.Content) {
			fmt.Fprint(e.Stdout, res.Content[printed:])
		}
		fmt.Fprintln(e.Stdout)
	} else {
		fmt.Fprintln(e.Stdout, e.renderMarkdown(res.Content))
	}
	if res.WebSearchUsed {
		fmt.Fprintln(e.Stderr, DimStyle.Render("Web search used"))
	}
	if !e.Args.Quiet {
		fmt.Fprintln(e.Stderr, DimStyle.Render("Conversation: "+mgr.ActiveID()))
	}
	return nil
}
