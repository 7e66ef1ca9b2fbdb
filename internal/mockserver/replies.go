// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"fmt"
	"strings"

	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/util"
)

// webSearchTriggers are words that make the assistant consult the web
// without being asked.
var webSearchTriggers = []string{"latest", "news", "today", "recent", "current", "cve-"}

// wantsWebSearch reports whether a message should trigger web search.
func wantsWebSearch(message string) bool {
	lower := strings.ToLower(message)
	for _, w := range webSearchTriggers {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// replyContext is what the canned assistant knows when answering.
type replyContext struct {
	Message   string
	WebSearch bool

	// ReplyTo is the quoted earlier message, if any.
	ReplyTo string

	// File is an attached upload.
	FileName    string
	FileContent string

	// Scan is the user's latest scan.
	Scan *model.ScanResult
}

// composeReply builds a Markdown answer from the context. The text is
// deterministic so tests can assert on it.
func composeReply(rc replyContext) string {
	var sb strings.Builder

	if rc.WebSearch {
		fmt.Fprintf(&sb, "I searched the web for \"%s\".\n\n", util.Preview(rc.Message, 60))
	}
	if rc.ReplyTo != "" {
		fmt.Fprintf(&sb, "Following up on: _%s_\n\n", model.ReplyPreview(rc.ReplyTo, model.ReplyPreviewLength))
	}

	switch {
	case rc.FileName != "":
		lines := strings.Split(strings.TrimSpace(rc.FileContent), "\n")
		if len(lines) > 5 {
			lines = lines[:5]
		}
		fmt.Fprintf(&sb, "I read **%s** (%s). It starts with:\n\n```\n%s\n```\n",
			rc.FileName,
			util.Pluralize(len([]rune(rc.FileContent)), "character", "characters"),
			strings.Join(lines, "\n"))

	case rc.Scan != nil:
		stats := model.ComputeStats(rc.Scan.Vulnerabilities)
		fmt.Fprintf(&sb, "Your latest scan of `%s` found %s: %d critical, %d high, %d medium and %d low.\n\n",
			rc.Scan.TargetURL,
			util.Pluralize(stats.Total(), "issue", "issues"),
			stats.Critical, stats.High, stats.Medium, stats.Low)
		if top := topFinding(rc.Scan.Vulnerabilities); top != nil {
			fmt.Fprintf(&sb, "Start with **%s** (%s): %s\n", top.Category, top.Severity.Label(), top.RemediationOrDefault())
		}

	default:
		fmt.Fprintf(&sb, "You asked:\n\n> %s\n\n", util.SingleLine(rc.Message))
		sb.WriteString("Run a scan of your site and I can walk through each finding, ")
		sb.WriteString("explain its impact, and suggest a fix.\n")
	}
	return sb.String()
}

// topFinding returns the most severe vulnerability.
func topFinding(vulns []model.Vulnerability) *model.Vulnerability {
	var top *model.Vulnerability
	for i := range vulns {
		if top == nil || vulns[i].Severity.Rank() < top.Severity.Rank() {
			top = &vulns[i]
		}
	}
	return top
}

// splitChunks cuts s into pieces of at most size runes.
func splitChunks(s string, size int) []string {
	if size <= 0 {
		return []string{s}
	}
	runes := []rune(s)
	chunks := make([]string, 0, len(runes)/size+1)
	for len(runes) > 0 {
		n := min(size, len(runes))
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
