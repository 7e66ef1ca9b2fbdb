// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vscan-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock is source text rendered with line numbers and highlighting.
type CodeBlock struct {
	// Language is a chroma lexer name; empty means detect.
	Language string

	// Filename helps pick a lexer when Language is empty.
	Filename string

	Code     string
	MaxWidth int

	// Plain disables ANSI highlighting (piped output).
	Plain bool
}

// NewCodeBlock creates a new code block.
func NewCodeBlock(language, code string) CodeBlock {
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 100,
	}
}

// NewFileBlock creates a code block whose language follows the file name.
func NewFileBlock(filename, code string) CodeBlock {
	cb := NewCodeBlock("", code)
	cb.Filename = filename
	return cb
}

// Render renders the code block with line numbers.
func (c CodeBlock) Render() string {
	code := strings.TrimRight(c.Code, "\n")

	lexer := c.lexer()
	highlighted := code
	if !c.Plain {
		highlighted = highlightCode(code, lexer)
	}
	lines := strings.Split(highlighted, "\n")

	width := len(strconv.Itoa(len(lines)))
	lineNumStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(width).
		Align(lipgloss.Right).
		MarginRight(1)

	rendered := make([]string, len(lines))
	for i, line := range lines {
		num := strconv.Itoa(i + 1)
		if c.Plain {
			rendered[i] = strings.Repeat(" ", width-len(num)) + num + " " + line
			continue
		}
		rendered[i] = lineNumStyle.Render(num) + line
	}
	content := strings.Join(rendered, "\n")

	if c.Plain {
		return content
	}

	header := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Bold(true).
		Render(lexer.Config().Name)

	maxWidth := c.MaxWidth
	if maxWidth < 20 {
		maxWidth = 20
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(header + "\n" + content)
}

// lexer picks a lexer by language, then file name, then content.
func (c CodeBlock) lexer() chroma.Lexer {
	var lexer chroma.Lexer
	if c.Language != "" {
		lexer = lexers.Get(c.Language)
	}
	if lexer == nil && c.Filename != "" {
		lexer = lexers.Match(c.Filename)
	}
	if lexer == nil {
		lexer = lexers.Analyse(c.Code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlightCode applies terminal syntax highlighting, returning the input
// unchanged when chroma fails.
func highlightCode(code string, lexer chroma.Lexer) string {
	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// DetectLanguage names the language of code, or "" when unknown.
func DetectLanguage(filename, code string) string {
	cb := CodeBlock{Filename: filename, Code: code}
	name := cb.lexer().Config().Name
	if name == lexers.Fallback.Config().Name {
		return ""
	}
	return name
}
