// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vscan-tui/internal/model"
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func testOptions(dir string) *Options {
	opts := DefaultOptions()
	opts.OutputDir = dir
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func sampleScan() model.ScanResult {
	return model.ScanResult{
		ID:        "s1",
		TargetURL: "https://shop.example.com/login",
		CreatedAt: model.NewTimestamp(time.Date(2025, 5, 30, 14, 0, 0, 0, time.UTC)),
		Vulnerabilities: []model.Vulnerability{
			{Category: "Missing Header", Severity: "Low", Description: "No CSP"},
			{Category: "SQL Injection", Severity: "CRITICAL", Description: "id parameter", Remediation: "Use prepared statements"},
			{Category: "XSS <script>", Severity: "high"},
		},
	}
}

func sampleConversation() *model.Conversation {
	return &model.Conversation{
		ID:        "c1",
		Title:     "Header review",
		CreatedAt: model.NewTimestamp(time.Date(2025, 5, 30, 14, 0, 0, 0, time.UTC)),
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "Is `X-Frame-Options` enough?", Versions: []model.Version{{Content: "old"}}},
			{Role: model.RoleAssistant, Content: "Use CSP:\n\n```http\nContent-Security-Policy: frame-ancestors 'none'\n```"},
		},
	}
}

func TestNewScanReport_SortsAndCounts(t *testing.T) {
	r := NewScanReport(sampleScan())

	assert.Equal(t, ReportTitle, r.Title)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, model.Stats{Critical: 1, High: 1, Low: 1}, r.Stats)
	require.Len(t, r.Findings, 3)
	assert.Equal(t, "SQL Injection", r.Findings[0].Category)
	assert.Equal(t, "XSS <script>", r.Findings[1].Category)
	assert.Equal(t, "Missing Header", r.Findings[2].Category)
	assert.Equal(t, "3 findings: 1 critical, 1 high, 0 medium, 1 low", r.Summary())
}

func TestNewScanReport_Empty(t *testing.T) {
	r := NewScanReport(model.ScanResult{TargetURL: "https://example.com"})
	assert.Equal(t, "No vulnerabilities found", r.Summary())

	md, err := NewMarkdownExporter(nil).ExportScan(r)
	require.NoError(t, err)
	assert.Contains(t, string(md), "No vulnerabilities found.")
}

func TestMarkdownExporter_Scan(t *testing.T) {
	e := NewMarkdownExporter(testOptions(t.TempDir()))
	out, err := e.ExportScan(NewScanReport(sampleScan()))
	require.NoError(t, err)

	md := string(out)
	assert.Contains(t, md, "# Vulnerability Scan Report")
	assert.Contains(t, md, `target: "https://shop.example.com/login"`)
	assert.Contains(t, md, "| Critical | 1 |")
	assert.Contains(t, md, "| Medium | 0 |")
	assert.Contains(t, md, "### 1. SQL Injection")
	assert.Contains(t, md, "**Remediation**: Use prepared statements")
	assert.Contains(t, md, "**Remediation**: No remediation available")
	assert.Contains(t, md, "June 1, 2025 at 9:30 AM")
}

func TestMarkdownExporter_Conversation(t *testing.T) {
	e := NewMarkdownExporter(testOptions(t.TempDir()))
	out, err := e.ExportConversation(sampleConversation())
	require.NoError(t, err)

	md := string(out)
	assert.Contains(t, md, "# Header review")
	assert.Contains(t, md, "### You")
	assert.Contains(t, md, "### Assistant")
	assert.Contains(t, md, "Edited, 1 earlier version")
	assert.Contains(t, md, "```http")
}

func TestHTMLExporter_ScanEscapesAndColours(t *testing.T) {
	e := NewHTMLExporter(testOptions(t.TempDir()))
	out, err := e.ExportScan(NewScanReport(sampleScan()))
	require.NoError(t, err)

	page := string(out)
	assert.Contains(t, page, "<title>Vulnerability Scan Report</title>")
	assert.Contains(t, page, "XSS &lt;script&gt;")
	assert.NotContains(t, page, "XSS <script>")
	assert.Contains(t, page, "#DC3545")
	assert.Contains(t, page, "#E94A35")
	assert.Contains(t, page, "class=\"dark-theme\"")
}

func TestHTMLExporter_ConversationCodeBlocks(t *testing.T) {
	e := NewHTMLExporter(testOptions(t.TempDir()))
	out, err := e.ExportConversation(sampleConversation())
	require.NoError(t, err)

	page := string(out)
	assert.Contains(t, page, "<code class=\"inline-code\">X-Frame-Options</code>")
	assert.Contains(t, page, "<code class=\"language-http\">")
	assert.Contains(t, page, "frame-ancestors &#39;none&#39;")
}

func TestJSONExporter_Scan(t *testing.T) {
	e := NewJSONExporter(testOptions(t.TempDir()))
	out, err := e.ExportScan(NewScanReport(sampleScan()))
	require.NoError(t, err)

	var doc struct {
		Title       string                `json:"title"`
		TargetURL   string                `json:"targetUrl"`
		Stats       model.Stats           `json:"stats"`
		Total       int                   `json:"total"`
		Findings    []model.Vulnerability `json:"vulnerabilities"`
		GeneratedAt time.Time             `json:"generatedAt"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, ReportTitle, doc.Title)
	assert.Equal(t, 1, doc.Stats.Critical)
	assert.Equal(t, 3, doc.Total)
	assert.Len(t, doc.Findings, 3)
	assert.True(t, doc.GeneratedAt.Equal(fixedNow))
}

func TestExporters_RejectInvalidInput(t *testing.T) {
	for _, format := range Formats {
		e, err := ForFormat(format, nil)
		require.NoError(t, err)

		_, err = e.ExportScan(nil)
		assert.Error(t, err, format)
		_, err = e.ExportScan(&ScanReport{})
		assert.Error(t, err, format)
		_, err = e.ExportConversation(&model.Conversation{ID: "c1"})
		assert.Error(t, err, format)
	}
}

func TestForFormat(t *testing.T) {
	tests := map[string]string{
		"md":       ".md",
		"Markdown": ".md",
		"html":     ".html",
		"htm":      ".html",
		"JSON":     ".json",
	}
	for format, ext := range tests {
		e, err := ForFormat(format, nil)
		require.NoError(t, err, format)
		assert.Equal(t, ext, e.FileExtension())
	}

	_, err := ForFormat("pdf", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWriteScanReport_GeneratedName(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir)

	path, err := WriteScanReport(NewScanReport(sampleScan()), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scan_report_shop.example.com_20250601_093000.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\n"))
}

func TestWriteConversation_ExplicitPath(t *testing.T) {
	opts := testOptions(t.TempDir())
	opts.OutputPath = filepath.Join(t.TempDir(), "nested", "out.json")

	path, err := WriteConversation(sampleConversation(), NewJSONExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, opts.OutputPath, path)

	var conv model.Conversation
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &conv))
	assert.Equal(t, "Header review", conv.Title)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a/b:c", "a-b-c"},
		{"two words", "two_words"},
		{"", "fallback"},
		{strings.Repeat("x", 80), strings.Repeat("x", 47) + "..."},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, sanitizeFilename(tc.in, "fallback"), tc.in)
	}
}
