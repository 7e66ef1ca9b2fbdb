// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/vscan-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports reports and conversations to JSON format.
// JSON exports always carry the complete data and ignore display options.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	return &JSONExporter{options: normalizeOptions(opts)}
}

type scanDocument struct {
	*ScanReport
	GeneratedAt time.Time `json:"generatedAt"`
}

// ExportScan converts a scan report to JSON format.
func (e *JSONExporter) ExportScan(r *ScanReport) ([]byte, error) {
	if err := validateReport(r); err != nil {
		return nil, err
	}
	return json.MarshalIndent(scanDocument{ScanReport: r, GeneratedAt: e.options.now().UTC()}, "", "  ")
}

// ExportConversation converts a conversation to JSON format.
func (e *JSONExporter) ExportConversation(conv *model.Conversation) ([]byte, error) {
	if err := validateConversation(conv); err != nil {
		return nil, err
	}
	return json.MarshalIndent(conv, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
