// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// files_cmd.go - Uploaded document commands.
//
// Examples:
//   vscan files list
//   vscan files list --conv 65f0c2a1b3e4d5f6a7b8c9d0
//   vscan files upload --conv 65f0c2a1b3e4d5f6a7b8c9d0 ./nginx.json
//   vscan files show 3f2a...        Highlighted preview of the extracted text
//   vscan files show 3f2a... --raw  Extracted text only

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/ui/components"
	"github.com/jeranaias/vscan-tui/internal/util"
)

func (e *Env) handleFiles(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw, "raw")
	sub := p.Subcommand()
	if sub == "" {
		sub = "list"
	}

	switch sub {
	case "list", "ls":
		return e.filesList(ctx, p.Flag("conv"))
	case "show", "cat":
		return e.filesShow(ctx, p.Positional(1), p.BoolFlag("raw"))
	case "upload":
		return e.filesUpload(ctx, p.Flag("conv"), p.Positional(1))
	}
	return ErrUnknownSubcommand("files", sub, []string{"list", "show", "upload"})
}

func (e *Env) filesList(ctx context.Context, convID string) error {
	var (
		files []model.FileRef
		err   error
	)
	if convID != "" {
		files, err = e.Client.ConversationFiles(ctx, convID)
	} else {
		files, err = e.Client.UserFiles(ctx)
	}
	if err != nil {
		return apiError("files", "list", err)
	}

	if e.Args.JSON {
		return e.printJSON("files list", files)
	}
	if len(files) == 0 {
		fmt.Fprintln(e.Stdout, DimStyle.Render("No uploaded files."))
		return nil
	}
	for _, f := range files {
		fmt.Fprintf(e.Stdout, "%s  %s  %s\n",
			DimStyle.Render(f.FileID),
			ValueStyle.Render(util.PadRight(util.TruncateWidth(f.Filename, 32), 32)),
			DimStyle.Render(f.UploadTime.Sidebar()))
	}
	return nil
}

func (e *Env) filesShow(ctx context.Context, fileID string, raw bool) error {
	if strings.TrimSpace(fileID) == "" {
		return ErrMissingArgument("file id", "vscan files show FILE_ID")
	}
	preview, err := e.Client.GetFile(ctx, fileID)
	if err != nil {
		return apiError("files", "show", err)
	}

	if e.Args.JSON {
		return e.printJSON("files show", preview)
	}
	if raw {
		fmt.Fprintln(e.Stdout, preview.Content)
		return nil
	}

	fmt.Fprintln(e.Stdout, TitleStyle.Render(preview.Filename))
	block := components.NewFileBlock(preview.Filename, preview.Content)
	block.MaxWidth = GetTerminalWidth()
	block.Plain = !isTerminalWriter(e.Stdout) || !ColorsEnabled()
	fmt.Fprintln(e.Stdout, block.Render())
	if preview.ContentTruncated {
		fmt.Fprintln(e.Stdout, WarningStyle.Render(fmt.Sprintf("Preview truncated to %d characters.", model.MaxPreviewChars)))
	}
	return nil
}

func (e *Env) filesUpload(ctx context.Context, convID, path string) error {
	const usage = "vscan files upload --conv ID ./report.json"
	if convID == "" {
		return ErrMissingArgument("--conv", usage)
	}
	if path == "" {
		return ErrMissingArgument("path", usage)
	}
	if !model.IsAllowedUpload(path) {
		return NewValidationError("file", path, "only "+strings.Join(model.AllowedUploadExtensions, ", ")+" files can be uploaded")
	}

	res, err := e.Client.UploadPath(ctx, convID, path)
	if err != nil {
		return apiError("files", "upload", err)
	}
	if e.Args.JSON {
		return e.printJSON("files upload", res)
	}
	e.out("%s Uploaded %s (%s)", SuccessStyle.Render("[OK]"), res.Filename, res.FileID)
	return nil
}
