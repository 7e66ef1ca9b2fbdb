// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conv_cmd.go - Conversation management commands.
//
// Subcommands:
//   list (default)         Conversations, most recent activity first
//   show ID                Print a conversation
//   new [TITLE]            Start a conversation
//   rename ID TITLE        Rename a conversation
//   delete ID [--yes]      Delete a conversation
//   search QUERY           Search titles, then message text
//   edit ID INDEX TEXT     Edit one of your messages and regenerate the reply
//   export ID --format F   Write a transcript (md, html or json)

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/vscan-tui/internal/export"
	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/session"
	"github.com/jeranaias/vscan-tui/internal/util"
)

var convSubcommands = []string{"list", "show", "new", "rename", "delete", "search", "edit", "export"}

func (e *Env) handleConv(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw, "yes", "y")
	sub := p.Subcommand()
	if sub == "" {
		sub = "list"
	}

	switch sub {
	case "list", "ls":
		return e.convList(ctx)
	case "show":
		return e.convShow(ctx, p.Positional(1))
	case "new", "create":
		return e.convNew(ctx, JoinPositionalArgs(p, 1))
	case "rename":
		return e.convRename(ctx, p.Positional(1), JoinPositionalArgs(p, 2))
	case "delete", "rm":
		return e.convDelete(ctx, p.Positional(1), p.BoolFlag("yes") || p.BoolFlag("y"))
	case "search":
		return e.convSearch(ctx, JoinPositionalArgs(p, 1))
	case "edit":
		return e.convEdit(ctx, p)
	case "export":
		return e.convExport(ctx, p)
	}
	return ErrUnknownSubcommand("conv", sub, convSubcommands)
}

func requireID(id, usage string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingArgument("conversation id", usage)
	}
	return nil
}

func (e *Env) convList(ctx context.Context) error {
	convs, err := e.Client.ListConversations(ctx)
	if err != nil {
		return apiError("conv", "list", err)
	}
	session.SortByActivity(convs)

	if e.Args.JSON {
		return e.printJSON("conv list", convs)
	}
	if len(convs) == 0 {
		fmt.Fprintln(e.Stdout, DimStyle.Render("No conversations yet. Run 'vscan conv new' or 'vscan ask'."))
		return nil
	}
	for _, c := range convs {
		fmt.Fprintf(e.Stdout, "%s  %s  %s\n",
			DimStyle.Render(c.ID),
			ValueStyle.Render(util.PadRight(util.TruncateWidth(c.GetTitle(), 40), 40)),
			DimStyle.Render(fmt.Sprintf("%s, %s",
				model.NewTimestamp(c.ActivityTime()).Sidebar(),
				util.Pluralize(c.Count(), "message", "messages"))))
	}
	return nil
}

func (e *Env) convShow(ctx context.Context, id string) error {
	if err := requireID(id, "vscan conv show ID"); err != nil {
		return err
	}
	conv, err := e.Client.GetConversation(ctx, id)
	if err != nil {
		return apiError("conv", "show", err)
	}
	if e.Args.JSON {
		return e.printJSON("conv show", conv)
	}
	e.printConversation(conv)
	return nil
}

func (e *Env) printConversation(conv *model.Conversation) {
	w := e.Stdout
	fmt.Fprintln(w, TitleStyle.Render(conv.GetTitle()))
	for i := range conv.Messages {
		msg := &conv.Messages[i]
		header := fmt.Sprintf("[%d] %s", i, msg.Role.DisplayName())
		if !msg.Timestamp.IsZero() {
			header += "  " + msg.Timestamp.Sidebar()
		}
		if label := msg.VersionLabel(0); label != "" {
			header += "  (version " + label + ")"
		}
		if msg.IsUser() {
			fmt.Fprintln(w, HighlightStyle.Render(header))
		} else {
			fmt.Fprintln(w, InfoStyle.Render(header))
		}
		if msg.ReplyTo != nil {
			fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("  > replying to [%d]: %s",
				msg.ReplyTo.Index, model.ReplyPreview(msg.ReplyTo.Content, model.ReplyPreviewLength))))
		}
		if msg.HasFile {
			fmt.Fprintln(w, DimStyle.Render("  attached: "+msg.FileName))
		}
		if msg.IsUser() {
			fmt.Fprintln(w, msg.Content)
		} else {
			fmt.Fprintln(w, e.renderMarkdown(msg.Content))
		}
		if msg.WebSearchUsed {
			fmt.Fprintln(w, DimStyle.Render("  Web search used"))
		}
		fmt.Fprintln(w)
	}
}

func (e *Env) convNew(ctx context.Context, title string) error {
	conv, err := e.Client.CreateConversation(ctx, title)
	if err != nil {
		return apiError("conv", "create", err)
	}
	if e.Args.JSON {
		return e.printJSON("conv new", conv)
	}
	e.out("%s Created %q (%s)", SuccessStyle.Render("[OK]"), conv.GetTitle(), conv.ID)
	return nil
}

func (e *Env) convRename(ctx context.Context, id, title string) error {
	if err := requireID(id, `vscan conv rename ID "New title"`); err != nil {
		return err
	}
	if strings.TrimSpace(title) == "" {
		return ErrMissingArgument("title", `vscan conv rename ID "New title"`)
	}
	if err := e.Client.RenameConversation(ctx, id, title); err != nil {
		return apiError("conv", "rename", err)
	}
	if e.Args.JSON {
		return e.printJSON("conv rename", map[string]string{"id": id, "title": title})
	}
	e.out("%s Renamed to %q", SuccessStyle.Render("[OK]"), title)
	return nil
}

func (e *Env) convDelete(ctx context.Context, id string, yes bool) error {
	if err := requireID(id, "vscan conv delete ID --yes"); err != nil {
		return err
	}
	confirmed, err := e.RequireConfirmation("delete conversation "+id, ConfirmationOptions{Yes: yes, JSONMode: e.Args.JSON})
	if err != nil {
		return err
	}
	if !confirmed {
		e.ShowCancellationMessage()
		return nil
	}
	if err := e.Client.DeleteConversation(ctx, id); err != nil {
		return apiError("conv", "delete", err)
	}
	if e.Args.JSON {
		return e.printJSON("conv delete", map[string]string{"id": id})
	}
	e.out("%s Deleted %s", SuccessStyle.Render("[OK]"), id)
	return nil
}

func (e *Env) convSearch(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrMissingArgument("query", `vscan conv search "content security policy"`)
	}
	results, err := e.Client.SearchConversations(ctx, query)
	if err != nil {
		return apiError("conv", "search", err)
	}
	if e.Args.JSON {
		return e.printJSON("conv search", results)
	}
	if len(results) == 0 {
		fmt.Fprintln(e.Stdout, DimStyle.Render("No matches for "+query))
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(e.Stdout, "%s  %s  %s\n", DimStyle.Render(r.ID), ValueStyle.Render(r.Title), DimStyle.Render("("+string(r.MatchType)+")"))
		for i, snippet := range r.Matches {
			prefix := "   "
			if i < len(r.MatchIndexes) {
				prefix = fmt.Sprintf("   [%d] ", r.MatchIndexes[i])
			}
			fmt.Fprintln(e.Stdout, prefix+util.SingleLine(snippet))
		}
	}
	return nil
}

func (e *Env) convEdit(ctx context.Context, p *ArgParser) error {
	const usage = `vscan conv edit ID 0 "new text"`
	id := p.Positional(1)
	if err := requireID(id, usage); err != nil {
		return err
	}
	index, err := ParseIndex(p.Positional(2), "message index")
	if err != nil {
		return err
	}
	text := JoinPositionalArgs(p, 3)
	if strings.TrimSpace(text) == "" {
		return ErrMissingArgument("text", usage)
	}

	conv, err := e.Client.GetConversation(ctx, id)
	if err != nil {
		return apiError("conv", "edit", err)
	}
	if index >= len(conv.Messages) || !conv.Messages[index].IsUser() {
		return NewValidationError("message index", p.Positional(2), session.ErrNotEditable.Error())
	}

	updated, err := e.Client.EditMessage(ctx, id, index, text)
	if err != nil {
		return apiError("conv", "edit", err)
	}
	if e.Args.JSON {
		return e.printJSON("conv edit", updated)
	}
	e.printConversation(updated)
	return nil
}

func (e *Env) convExport(ctx context.Context, p *ArgParser) error {
	id := p.Positional(1)
	if err := requireID(id, "vscan conv export ID --format md"); err != nil {
		return err
	}
	opts := export.DefaultOptions()
	opts.OutputPath = p.Flag("out")
	format := p.FlagOrDefault("format", "md")
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return NewValidationError("format", format, err.Error())
	}

	conv, err := e.Client.GetConversation(ctx, id)
	if err != nil {
		return apiError("conv", "export", err)
	}
	path, err := export.WriteConversation(conv, exporter, opts)
	if err != nil {
		return NewCommandError("conv", "export", "the transcript could not be written", err)
	}
	if e.Args.JSON {
		return e.printJSON("conv export", map[string]string{"path": path})
	}
	e.out("%s Transcript written to %s", SuccessStyle.Render("[OK]"), path)
	return nil
}
