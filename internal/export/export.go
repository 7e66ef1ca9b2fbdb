// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders scan reports and conversations in one format.
type Exporter interface {
	// ExportScan renders a vulnerability scan report.
	ExportScan(report *ScanReport) ([]byte, error)

	// ExportConversation renders a conversation transcript.
	ExportConversation(conv *model.Conversation) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrUnsupportedFormat is returned by ForFormat for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Formats lists the accepted format names.
var Formats = []string{"md", "html", "json"}

// ForFormat returns the exporter for a format name ("md", "markdown",
// "html", "htm" or "json").
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q (use %s)", ErrUnsupportedFormat, format, strings.Join(Formats, ", "))
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where generated file names are placed.
	// Default: current working directory
	OutputDir string

	// OutputPath, when set, is used as-is instead of a generated name.
	OutputPath string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata includes the metadata header (dates, counts).
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps in transcripts.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark").
	// Default: "dark"
	Theme string

	// Now stamps the generation time. Default: time.Now
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
		Now:               time.Now,
	}
}

func (o *Options) now() time.Time {
	if o == nil || o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func normalizeOptions(opts *Options) *Options {
	if opts == nil {
		return DefaultOptions()
	}
	if opts.Theme == "" {
		opts.Theme = "dark"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return opts
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// WriteScanReport renders report and writes it to a file.
// Returns the output file path.
func WriteScanReport(report *ScanReport, exporter Exporter, opts *Options) (string, error) {
	content, err := exporter.ExportScan(report)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	host := report.TargetURL
	if u, err := url.Parse(report.TargetURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return writeExport(content, "scan_report_"+sanitizeFilename(host, "scan"), exporter, opts)
}

// WriteConversation renders conv and writes it to a file.
// Returns the output file path.
func WriteConversation(conv *model.Conversation, exporter Exporter, opts *Options) (string, error) {
	content, err := exporter.ExportConversation(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	return writeExport(content, "conversation_"+sanitizeFilename(conv.GetTitle(), "conversation"), exporter, opts)
}

func writeExport(content []byte, stem string, exporter Exporter, opts *Options) (string, error) {
	opts = normalizeOptions(opts)

	outputPath := opts.OutputPath
	if outputPath == "" {
		filename := stem + "_" + opts.now().Format("20060102_150405") + exporter.FileExtension()
		outputPath = filepath.Join(opts.OutputDir, filename)
	}

	if err := util.WriteFileAtomic(outputPath, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// Non-fatal - file was still created successfully
			return outputPath, fmt.Errorf("exported to %s but could not open it: %w", outputPath, err)
		}
	}

	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s, fallback string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}

func validateConversation(conv *model.Conversation) error {
	if conv == nil {
		return fmt.Errorf("conversation is nil")
	}
	if len(conv.Messages) == 0 {
		return fmt.Errorf("conversation has no messages")
	}
	return nil
}
