// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/util"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports reports and conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	return &MarkdownExporter{options: normalizeOptions(opts)}
}

// ExportScan converts a scan report to Markdown format.
func (e *MarkdownExporter) ExportScan(r *ScanReport) ([]byte, error) {
	if err := validateReport(r); err != nil {
		return nil, err
	}

	var sb strings.Builder
	now := e.options.now()

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(r.Title))
		fmt.Fprintf(&sb, "target: %s\n", escapeYAML(r.TargetURL))
		if !r.ScannedAt.IsZero() {
			fmt.Fprintf(&sb, "scanned: %s\n", r.ScannedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "findings: %d\n", r.Total)
		fmt.Fprintf(&sb, "exported: %s\n", now.Format(time.RFC3339))
		sb.WriteString("generator: vscan\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(r.Title))
	fmt.Fprintf(&sb, "- **Target**: %s\n", r.TargetURL)
	fmt.Fprintf(&sb, "- **Scanned**: %s\n", formatTimestamp(r.ScannedAt))
	fmt.Fprintf(&sb, "- **Total findings**: %d\n\n", r.Total)

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Severity | Count |\n")
	sb.WriteString("|---|---|\n")
	for _, sev := range model.Severities {
		fmt.Fprintf(&sb, "| %s | %d |\n", sev.Label(), r.Stats.Count(sev))
	}
	if r.Stats.Other > 0 {
		fmt.Fprintf(&sb, "| Other | %d |\n", r.Stats.Other)
	}
	sb.WriteString("\n")

	sb.WriteString("## Findings\n\n")
	if len(r.Findings) == 0 {
		sb.WriteString("No vulnerabilities found.\n")
	}
	for i, v := range r.Findings {
		fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, escapeMarkdown(categoryOrDefault(v)))
		fmt.Fprintf(&sb, "**Severity**: %s\n\n", v.Severity.Label())
		fmt.Fprintf(&sb, "**Description**: %s\n\n", strings.TrimSpace(v.DescriptionOrDefault()))
		fmt.Fprintf(&sb, "**Remediation**: %s\n\n", strings.TrimSpace(v.RemediationOrDefault()))
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Generated by vscan on %s*\n", now.Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// ExportConversation converts a conversation to Markdown format.
func (e *MarkdownExporter) ExportConversation(conv *model.Conversation) ([]byte, error) {
	if err := validateConversation(conv); err != nil {
		return nil, err
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(conv.GetTitle()))
		if !conv.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "date: %s\n", conv.CreatedAt.Format(time.RFC3339))
		}
		if !conv.UpdatedAt.IsZero() {
			fmt.Fprintf(&sb, "updated: %s\n", conv.UpdatedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(conv.Messages))
		sb.WriteString("generator: vscan\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(conv.GetTitle()))

	for i, msg := range conv.Messages {
		label := msg.Role.DisplayName()
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp.Time))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		if msg.ReplyTo != nil {
			fmt.Fprintf(&sb, "> Replying to: %s\n\n", model.ReplyPreview(msg.ReplyTo.Content, model.ReplyPreviewLength))
		}
		if msg.HasFile && msg.FileName != "" {
			fmt.Fprintf(&sb, "*Attachment: %s*\n\n", msg.FileName)
		}
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")
		if n := msg.VersionCount(); n > 0 {
			fmt.Fprintf(&sb, "<sub>Edited, %s</sub>\n\n", util.Pluralize(n, "earlier version", "earlier versions"))
		}

		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

func categoryOrDefault(v model.Vulnerability) string {
	if strings.TrimSpace(v.Category) == "" {
		return "Uncategorized"
	}
	return v.Category
}

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	r := strings.NewReplacer("#", "\\#", "*", "\\*", "_", "\\_", "[", "\\[", "]", "\\]")
	return r.Replace(s)
}

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		r := strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n", "\r", "\\r")
		return "\"" + r.Replace(s) + "\""
	}
	return s
}
