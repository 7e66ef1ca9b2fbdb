// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/jeranaias/vscan-tui/internal/model"
)

var (
	codeBlockRegex  = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]*?)```")
	inlineCodeRegex = regexp.MustCompile("`([^`]+)`")
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports reports and conversations to HTML with embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	return &HTMLExporter{options: normalizeOptions(opts)}
}

// ExportScan converts a scan report to HTML format.
func (e *HTMLExporter) ExportScan(r *ScanReport) ([]byte, error) {
	if err := validateReport(r); err != nil {
		return nil, err
	}

	var sb strings.Builder
	e.writeHead(&sb, r.Title)

	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", html.EscapeString(r.Title))
	sb.WriteString("            <div class=\"metadata\">\n")
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Target:</strong> %s</span>\n", html.EscapeString(r.TargetURL))
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Scanned:</strong> %s</span>\n", formatTimestamp(r.ScannedAt))
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Findings:</strong> %d</span>\n", r.Total)
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	// Stat cards
	sb.WriteString("        <section class=\"stats\">\n")
	for _, sev := range model.Severities {
		fmt.Fprintf(&sb, "            <div class=\"stat-card\" style=\"border-color: %s\"><span class=\"stat-count\">%d</span><span class=\"stat-label\">%s</span></div>\n",
			sev.RiskColor(), r.Stats.Count(sev), sev.Label())
	}
	sb.WriteString("        </section>\n")

	sb.WriteString("        <main class=\"findings\">\n")
	if len(r.Findings) == 0 {
		sb.WriteString("            <p class=\"empty\">No vulnerabilities found.</p>\n")
	} else {
		sb.WriteString("            <table>\n")
		sb.WriteString("                <thead><tr><th>Category</th><th>Severity</th><th>Description</th><th>Remediation</th></tr></thead>\n")
		sb.WriteString("                <tbody>\n")
		for _, v := range r.Findings {
			fmt.Fprintf(&sb, "                    <tr><td>%s</td><td><span class=\"badge\" style=\"background: %s\">%s</span></td><td>%s</td><td>%s</td></tr>\n",
				html.EscapeString(categoryOrDefault(v)),
				v.Severity.RiskColor(),
				html.EscapeString(v.Severity.Label()),
				html.EscapeString(v.DescriptionOrDefault()),
				html.EscapeString(v.RemediationOrDefault()))
		}
		sb.WriteString("                </tbody>\n")
		sb.WriteString("            </table>\n")
	}
	sb.WriteString("        </main>\n")

	e.writeFoot(&sb)
	return []byte(sb.String()), nil
}

// ExportConversation converts a conversation to HTML format.
func (e *HTMLExporter) ExportConversation(conv *model.Conversation) ([]byte, error) {
	if err := validateConversation(conv); err != nil {
		return nil, err
	}

	var sb strings.Builder
	title := conv.GetTitle()
	e.writeHead(&sb, title)

	if e.options.IncludeMetadata {
		sb.WriteString("        <header class=\"header\">\n")
		fmt.Fprintf(&sb, "            <h1>%s</h1>\n", html.EscapeString(title))
		sb.WriteString("            <div class=\"metadata\">\n")
		fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt.Time))
		fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(conv.Messages))
		sb.WriteString("            </div>\n")
		sb.WriteString("        </header>\n")
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for i := range conv.Messages {
		sb.WriteString(e.renderMessage(&conv.Messages[i]))
	}
	sb.WriteString("        </main>\n")

	e.writeFoot(&sb)
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) writeHead(sb *strings.Builder, title string) {
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(sb, "    <title>%s</title>\n", html.EscapeString(title))
	sb.WriteString("    <meta name=\"generator\" content=\"vscan\">\n")
	sb.WriteString(reportCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(sb, "<body class=\"%s-theme\">\n", html.EscapeString(e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")
}

func (e *HTMLExporter) writeFoot(sb *strings.Builder) {
	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(sb, "            <p>Generated by <strong>vscan</strong> on %s</p>\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")
}

// renderMessage renders a single message.
func (e *HTMLExporter) renderMessage(msg *model.Message) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "            <div class=\"message %s-message\">\n", html.EscapeString(strings.ToLower(msg.Role.String())))
	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(&sb, "                    <span class=\"role-label\">%s</span>\n", html.EscapeString(msg.Role.DisplayName()))
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp.Time))
	}
	sb.WriteString("                </div>\n")

	if msg.ReplyTo != nil {
		fmt.Fprintf(&sb, "                <blockquote class=\"reply\">%s</blockquote>\n",
			html.EscapeString(model.ReplyPreview(msg.ReplyTo.Content, model.ReplyPreviewLength)))
	}

	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(formatContent(msg.Content))
	sb.WriteString("\n                </div>\n")
	sb.WriteString("            </div>\n")

	return sb.String()
}

// formatContent escapes message content and turns fenced and inline code
// into HTML code elements. Remaining lines become paragraphs.
func formatContent(content string) string {
	content = html.EscapeString(strings.TrimSpace(content))

	content = codeBlockRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeBlockRegex.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		lang, code := parts[1], parts[2]
		langLabel := ""
		if lang != "" {
			langLabel = fmt.Sprintf("<div class=\"code-lang\">%s</div>", lang)
		}
		// Newlines inside the block are kept out of paragraph handling.
		code = strings.ReplaceAll(strings.TrimSpace(code), "\n", "&#10;")
		return fmt.Sprintf("<div class=\"code-block\">%s<pre><code class=\"language-%s\">%s</code></pre></div>",
			langLabel, lang, code)
	})
	content = inlineCodeRegex.ReplaceAllString(content, "<code class=\"inline-code\">$1</code>")

	var out []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if strings.HasPrefix(para, "<div class=\"code-block\">") {
			out = append(out, para)
			continue
		}
		out = append(out, "<p>"+strings.ReplaceAll(para, "\n", "<br>")+"</p>")
	}
	return strings.Join(out, "\n")
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const reportCSS = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --bg-tertiary: #414868;
            --text-primary: #c0caf5;
            --text-muted: #565f89;
            --border-color: #414868;
        }

        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f7f8fa;
            --bg-tertiary: #e1e4e8;
            --text-primary: #24292e;
            --text-muted: #6a737d;
            --border-color: #e1e4e8;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif;
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
        }

        .container { max-width: 1000px; margin: 0 auto; background: var(--bg-secondary); border-radius: 12px; overflow: hidden; }
        .header { padding: 32px; background: var(--bg-tertiary); border-bottom: 2px solid var(--border-color); }
        .header h1 { font-size: 28px; margin-bottom: 16px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; }
        .stats { display: flex; gap: 16px; padding: 24px 32px; }
        .stat-card { flex: 1; border-left: 6px solid; padding: 12px 16px; background: var(--bg-primary); border-radius: 6px; }
        .stat-count { display: block; font-size: 28px; font-weight: 700; }
        .stat-label { font-size: 13px; color: var(--text-muted); }
        .findings { padding: 0 32px 32px; }
        table { width: 100%; border-collapse: collapse; font-size: 14px; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid var(--border-color); vertical-align: top; }
        .badge { color: #fff; padding: 2px 8px; border-radius: 4px; font-size: 12px; font-weight: 600; }
        .conversation { padding: 24px 32px; }
        .message { margin-bottom: 24px; padding: 16px; border-radius: 8px; background: var(--bg-primary); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 8px; font-weight: 600; }
        .timestamp { font-size: 12px; color: var(--text-muted); }
        .reply { border-left: 3px solid var(--border-color); padding-left: 8px; color: var(--text-muted); margin-bottom: 8px; }
        .message-content p { margin-bottom: 8px; }
        .code-block { margin: 8px 0; }
        .code-lang { font-size: 12px; color: var(--text-muted); }
        pre { white-space: pre-wrap; font-family: "Fira Code", monospace; padding: 12px; background: var(--bg-secondary); border-radius: 6px; }
        .inline-code { font-family: "Fira Code", monospace; padding: 1px 4px; background: var(--bg-secondary); border-radius: 3px; }
        .footer { padding: 16px 32px; font-size: 13px; color: var(--text-muted); border-top: 1px solid var(--border-color); }
    </style>
`
