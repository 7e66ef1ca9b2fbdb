// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders vulnerability scan reports and conversation
// transcripts to files.
//
// # Supported Formats
//
//   - Markdown: Human-readable with formatting
//   - HTML: Styled for viewing in browsers, severity badges in risk colours
//   - JSON: Machine-readable with computed statistics
//
// # Usage
//
// Export the latest scan:
//
//	exporter, err := export.ForFormat("html", nil)
//	report := export.NewScanReport(scan)
//	path, err := export.WriteScanReport(report, exporter, opts)
//
// Export a conversation:
//
//	path, err := export.WriteConversation(conv, export.NewMarkdownExporter(nil), opts)
package export
