// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jeranaias/vscan-tui/internal/model"
)

// MaxUploadSize bounds documents read from disk for upload.
const MaxUploadSize = 16 * 1024 * 1024

type filesEnvelope struct {
	Files []model.FileRef `json:"files"`
}

// =============================================================================
// UPLOADS
// =============================================================================

// UploadFile uploads a document and attaches it to a conversation. The
// backend extracts its text for use as context in later messages.
func (c *Client) UploadFile(ctx context.Context, conversationID, filename string, content io.Reader) (*model.UploadResult, error) {
	if err := checkID("conversation", conversationID); err != nil {
		return nil, err
	}
	if !model.IsAllowedUpload(filename) {
		return nil, &ClientError{
			Type:    ErrTypeValidation,
			Message: fmt.Sprintf("unsupported file type %q (allowed: txt, json, pdf, docx)", filepath.Ext(filename)),
		}
	}

	body, contentType, err := multipartBody(map[string]string{"conversation_id": conversationID}, "file", filename, content)
	if err != nil {
		return nil, err
	}

	var result model.UploadResult
	err = c.do(ctx, call{
		backend:     chatBackend,
		method:      http.MethodPost,
		path:        "/upload",
		raw:         body,
		contentType: contentType,
		auth:        true,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Filename == "" {
		result.Filename = filepath.Base(filename)
	}
	return &result, nil
}

// UploadPath uploads a file from disk.
func (c *Client) UploadPath(ctx context.Context, conversationID, path string) (*model.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat upload: %w", err)
	}
	if info.Size() > MaxUploadSize {
		return nil, &ClientError{
			Type:    ErrTypeValidation,
			Message: fmt.Sprintf("file is %d bytes; the limit is %d", info.Size(), MaxUploadSize),
		}
	}
	return c.UploadFile(ctx, conversationID, filepath.Base(path), f)
}

// =============================================================================
// LISTING AND PREVIEW
// =============================================================================

// ConversationFiles lists documents uploaded into one conversation.
func (c *Client) ConversationFiles(ctx context.Context, conversationID string) ([]model.FileRef, error) {
	if err := checkID("conversation", conversationID); err != nil {
		return nil, err
	}
	var env filesEnvelope
	err := c.do(ctx, call{
		backend: chatBackend,
		method:  http.MethodGet,
		path:    "/upload/filename/" + conversationID,
		auth:    true,
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Files, nil
}

// UserFiles lists every document the user has uploaded.
func (c *Client) UserFiles(ctx context.Context) ([]model.FileRef, error) {
	var env filesEnvelope
	err := c.do(ctx, call{
		backend: chatBackend,
		method:  http.MethodGet,
		path:    "/user/files",
		auth:    true,
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Files, nil
}

// GetFile fetches the extracted text preview of a document. Missing files and
// files owned by someone else both come back as a 404; see IsNotFound.
func (c *Client) GetFile(ctx context.Context, fileID string) (*model.FilePreview, error) {
	if err := checkID("file", fileID); err != nil {
		return nil, err
	}
	var preview model.FilePreview
	err := c.do(ctx, call{
		backend: chatBackend,
		method:  http.MethodGet,
		path:    "/file/" + fileID,
		auth:    true,
	}, &preview)
	if err != nil {
		return nil, err
	}
	return &preview, nil
}

// =============================================================================
// MULTIPART
// =============================================================================

// multipartBody encodes fields plus one file part.
func multipartBody(fields map[string]string, fileField, filename string, content io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("multipart field %s: %w", k, err)
		}
	}

	part, err := w.CreateFormFile(fileField, filepath.Base(filename))
	if err != nil {
		return nil, "", fmt.Errorf("multipart file: %w", err)
	}
	if _, err := io.Copy(part, io.LimitReader(content, MaxUploadSize+1)); err != nil {
		return nil, "", fmt.Errorf("multipart copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("multipart close: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
