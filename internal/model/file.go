// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"path/filepath"
	"strings"
)

// AllowedUploadExtensions lists the document types the chat backend can parse.
var AllowedUploadExtensions = []string{"txt", "json", "pdf", "docx"}

// MaxPreviewChars is the length at which the backend truncates file previews.
const MaxPreviewChars = 5000

// IsAllowedUpload reports whether name has an extension the backend accepts.
func IsAllowedUpload(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range AllowedUploadExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// FileRef is a reference to a document previously uploaded by the user.
type FileRef struct {
	FileID         string    `json:"file_id"`
	Filename       string    `json:"filename"`
	UploadTime     Timestamp `json:"upload_time"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Filetype       string    `json:"filetype,omitempty"`
}

// FilePreview is the extracted text of an uploaded document.
type FilePreview struct {
	FileID           string         `json:"file_id"`
	Filename         string         `json:"filename"`
	Content          string         `json:"content"`
	ContentTruncated bool           `json:"content_truncated"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// UploadResult is returned by a successful upload.
type UploadResult struct {
	Msg      string `json:"msg"`
	Filetype string `json:"filetype"`
	Filename string `json:"filename"`
	FileID   string `json:"file_id"`
}

// Attachment is the file staged for the next outgoing message.
type Attachment struct {
	FileID      string
	DisplayName string
}
