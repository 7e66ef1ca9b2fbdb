// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/model"
)

// ctxUserID is the gin context key holding the authenticated user id.
const ctxUserID = "user_id"

// chatRoutes registers the chat backend endpoints.
func (s *Server) chatRoutes(e *gin.Engine) {
	authed := e.Group("/", s.chatAuth())

	js := authed.Group("/", bodyLimit(MaxRequestBodySize))
	js.POST("/conversations/new", s.handleCreateConversation)
	js.GET("/conversations", s.handleListConversations)
	js.GET("/conversations/search", s.handleSearch)
	js.GET("/conversations/:id", s.handleGetConversation)
	js.DELETE("/conversations/:id", s.handleDeleteConversation)
	js.PUT("/conversations/:id/rename", s.handleRenameConversation)
	js.PUT("/conversations/:id/messages/:index/edit", s.handleEditMessage)
	js.POST("/conversations/:id/web_search", s.handleChat(true))
	js.POST("/chat/:id", s.handleChat(false))
	js.GET("/upload/filename/:id", s.handleConversationFiles)
	js.GET("/user/files", s.handleUserFiles)
	js.GET("/file/:id", s.handleGetFile)

	authed.POST("/upload", bodyLimit(MaxUploadSize), s.handleUpload)
}

// chatAuth requires a Bearer token naming an existing user. The statuses
// follow the chat backend's JWT layer: 401 for missing or expired tokens,
// 422 for malformed ones and 404 when the user is gone.
func (s *Server) chatAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Missing Authorization Header"})
			return
		}
		uid, err := s.tokens.Verify(token)
		switch {
		case errors.Is(err, ErrTokenExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Token has expired"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"msg": "Invalid token"})
			return
		}
		if !s.store.Exists(uid) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"msg": "User not found."})
			return
		}
		c.Set(ctxUserID, uid)
		c.Next()
	}
}

// chatError writes err in the chat backend's {"msg": ...} shape.
func (s *Server) chatError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error."
	switch {
	case errors.Is(err, ErrUserNotFound):
		status, msg = http.StatusNotFound, "User not found."
	case errors.Is(err, ErrConversationNotFound):
		status, msg = http.StatusNotFound, "Conversation not found."
	case errors.Is(err, ErrDuplicateTitle):
		status, msg = http.StatusConflict, "A conversation with this name already exists."
	case errors.Is(err, ErrNotUserMessage):
		status, msg = http.StatusBadRequest, "Invalid message index or not a user message."
	case errors.Is(err, ErrNoReply):
		status, msg = http.StatusBadRequest, "No assistant response after this message."
	case errors.Is(err, ErrFileNotFound):
		status, msg = http.StatusNotFound, "File not found or not authorized"
	default:
		s.logger.Error("chat backend error", "path", c.Request.URL.Path, "err", err)
	}
	c.JSON(status, gin.H{"msg": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"msg": msg})
}

// ============================================================================
// CONVERSATIONS
// ============================================================================

func (s *Server) handleCreateConversation(c *gin.Context) {
	var body struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body.")
		return
	}
	conv, err := s.store.CreateConversation(c.GetString(ctxUserID), strings.TrimSpace(body.Title))
	if err != nil {
		s.chatError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

func (s *Server) handleListConversations(c *gin.Context) {
	convs, err := s.store.Conversations(c.GetString(ctxUserID))
	if err != nil {
		s.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (s *Server) handleSearch(c *gin.Context) {
	results, err := s.store.Search(c.GetString(ctxUserID), c.Query("q"))
	if err != nil {
		s.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleGetConversation(c *gin.Context) {
	conv, err := s.store.Conversation(c.GetString(ctxUserID), c.Param("id"))
	if err != nil {
		s.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	if err := s.store.DeleteConversation(c.GetString(ctxUserID), c.Param("id")); err != nil {
		s.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Conversation deleted."})
}

func (s *Server) handleRenameConversation(c *gin.Context) {
	var body struct {
		Title string `json:"title"`
	}
	_ = c.ShouldBindJSON(&body)
	title := strings.TrimSpace(body.Title)
	if title == "" {
		badRequest(c, "Title required.")
		return
	}
	if err := s.store.RenameConversation(c.GetString(ctxUserID), c.Param("id"), title); err != nil {
		s.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Conversation renamed."})
}

func (s *Server) handleEditMessage(c *gin.Context) {
	uid, cid := c.GetString(ctxUserID), c.Param("id")
	conv, err := s.store.Conversation(uid, cid)
	if err != nil {
		s.chatError(c, err)
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 || index >= len(conv.Messages) || !conv.Messages[index].IsUser() {
		s.chatError(c, ErrNotUserMessage)
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	_ = c.ShouldBindJSON(&body)
	content := strings.TrimSpace(body.Content)
	if content == "" {
		badRequest(c, "Content required.")
		return
	}

	scan, _ := s.store.LatestScan(uid)
	updated, err := s.store.EditMessage(uid, cid, index, content, func(prompt string) string {
		return composeReply(replyContext{Message: prompt, WebSearch: wantsWebSearch(prompt), Scan: scan})
	})
	if err != nil {
		s.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": updated})
}

// ============================================================================
// STREAMING
// ============================================================================

// handleChat answers a message with a streamed plain-text reply. The user
// message is stored before streaming starts and the reply once it ends, so a
// client that disconnects mid-stream leaves the partial reply behind.
func (s *Server) handleChat(forceSearch bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, cid := c.GetString(ctxUserID), c.Param("id")
		if _, err := s.store.Conversation(uid, cid); err != nil {
			s.chatError(c, err)
			return
		}

		var req api.SendRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "Invalid request body.")
			return
		}
		message := strings.TrimSpace(req.Message)
		if message == "" {
			badRequest(c, "Message required.")
			return
		}

		rc := replyContext{
			Message:   message,
			WebSearch: forceSearch || req.ForceWebSearch || wantsWebSearch(message),
		}
		user := model.Message{Role: model.RoleUser, Content: message, Timestamp: model.Now()}
		if req.ReplyTo != nil {
			user.ReplyTo = &model.ReplyRef{Index: req.ReplyTo.Index, Content: req.ReplyTo.Content}
			rc.ReplyTo = req.ReplyTo.Content
		}
		if req.FileID != "" {
			ref, content, err := s.store.FileContent(uid, req.FileID)
			if err != nil {
				s.chatError(c, err)
				return
			}
			user.HasFile, user.FileName, user.FileID = true, ref.Filename, ref.FileID
			rc.FileName, rc.FileContent = ref.Filename, content
		}
		if scan, err := s.store.LatestScan(uid); err == nil {
			rc.Scan = scan
		}

		if err := s.store.AppendMessages(uid, cid, user); err != nil {
			s.chatError(c, err)
			return
		}

		h := c.Writer.Header()
		h.Set("Content-Type", "text/plain; charset=utf-8")
		h.Set(api.WebSearchHeader, strconv.FormatBool(rc.WebSearch))
		h.Set("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()

		ctx := c.Request.Context()
		var sent strings.Builder
		for i, chunk := range splitChunks(composeReply(rc), s.opts.ChunkSize) {
			if i > 0 && !pause(ctx, s.opts.ChunkDelay) {
				break
			}
			if _, err := c.Writer.WriteString(chunk); err != nil {
				break
			}
			c.Writer.Flush()
			sent.WriteString(chunk)
		}
		if ctx.Err() != nil {
			s.logger.Debug("client left mid-stream", "conversation", cid, "sent", sent.Len())
		}
		if sent.Len() == 0 {
			return
		}

		reply := model.Message{
			Role:          model.RoleAssistant,
			Content:       sent.String(),
			Timestamp:     model.Now(),
			WebSearchUsed: rc.WebSearch,
		}
		if err := s.store.AppendMessages(uid, cid, reply); err != nil {
			s.logger.Warn("save reply", "conversation", cid, "err", err)
		}
	}
}

// pause waits d, returning false if ctx ends first. A non-positive d only
// checks ctx.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ============================================================================
// FILES
// ============================================================================

func (s *Server) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "No file part")
		return
	}
	defer file.Close()

	cid := strings.TrimSpace(c.PostForm("conversation_id"))
	if cid == "" {
		badRequest(c, "Missing conversation_id parameter")
		return
	}
	name := filepath.Base(header.Filename)
	if header.Filename == "" || name == "." {
		badRequest(c, "No selected file")
		return
	}
	if !model.IsAllowedUpload(name) {
		badRequest(c, "File type not allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(c, "Could not read file")
		return
	}
	ref, err := s.store.AddFile(c.GetString(ctxUserID), cid, name, extractText(name, data))
	if err != nil {
		s.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"msg":      "File uploaded and parsed successfully",
		"filetype": ref.Filetype,
		"filename": ref.Filename,
		"file_id":  ref.FileID,
	})
}

// extractText returns the searchable text of an upload. Text formats are
// kept as-is; binary documents get a placeholder naming their size.
func extractText(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".json":
		return strings.ToValidUTF8(string(data), "�")
	default:
		return "[" + strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".") +
			" document, " + strconv.Itoa(len(data)) + " bytes, text extraction unavailable]"
	}
}

func (s *Server) handleConversationFiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"files": s.store.Files(c.GetString(ctxUserID), c.Param("id"))})
}

func (s *Server) handleUserFiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"files": s.store.Files(c.GetString(ctxUserID), "")})
}

func (s *Server) handleGetFile(c *gin.Context) {
	preview, err := s.store.File(c.GetString(ctxUserID), c.Param("id"))
	if err != nil {
		s.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}
