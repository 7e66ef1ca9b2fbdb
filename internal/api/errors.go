// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNetwork
	ErrTypeTimeout
	ErrTypeAuth
	ErrTypeNotFound
	ErrTypeValidation
	ErrTypeConflict
	ErrTypeServer
	ErrTypeInvalidResponse
	ErrTypeStream
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeNetwork:
		return "network"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeAuth:
		return "auth"
	case ErrTypeNotFound:
		return "not_found"
	case ErrTypeValidation:
		return "validation"
	case ErrTypeConflict:
		return "conflict"
	case ErrTypeServer:
		return "server"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeStream:
		return "stream"
	default:
		return "unknown"
	}
}

// ClientError represents a failure on the client side of a call: transport,
// decoding, an interrupted stream, or a rejected token.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same type, so callers can compare against
// the sentinels below with errors.Is.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Sentinel errors for easy checking.
var (
	ErrSignInRequired = &ClientError{Type: ErrTypeAuth, Message: "sign in required"}
	ErrTimeout        = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrStreamFailed   = &ClientError{Type: ErrTypeStream, Message: "stream interrupted"}
)

// APIError is a non-2xx response from a backend. Message carries the backend's
// own text ("msg", "errMsg", or "message" field) verbatim.
type APIError struct {
	Status  int
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
}

// Type maps the HTTP status to an ErrorType.
func (e *APIError) Type() ErrorType {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrTypeAuth
	case e.Status == http.StatusNotFound:
		return ErrTypeNotFound
	case e.Status == http.StatusConflict:
		return ErrTypeConflict
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return ErrTypeValidation
	case e.Status >= 500:
		return ErrTypeServer
	default:
		return ErrTypeUnknown
	}
}

// =============================================================================
// ERROR INSPECTION
// =============================================================================

// IsSignInRequired reports whether the user must sign in again.
func IsSignInRequired(err error) bool {
	return errors.Is(err, ErrSignInRequired)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsNotFound reports whether the backend answered 404 for the requested
// resource. A 404 that rejected the token counts as sign-in required instead.
func IsNotFound(err error) bool {
	return !IsSignInRequired(err) && statusOf(err) == http.StatusNotFound
}

// IsConflict reports whether the backend answered 409.
func IsConflict(err error) bool {
	return statusOf(err) == http.StatusConflict
}

// IsValidation reports whether the backend rejected the request body.
func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type() == ErrTypeValidation
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	return statusOf(err)
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// BackendMessage returns the backend-provided message carried by err, or "".
func BackendMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// UserMessage turns err into a one-line message for banners and status bars.
// action is the failed operation in the "Failed to <action>" form.
func UserMessage(err error, action string) string {
	switch {
	case err == nil:
		return ""
	case IsSignInRequired(err):
		return "Your session has expired. Please sign in again."
	case IsTimeout(err):
		return "The server took too long to respond. Please try again."
	}
	if msg := BackendMessage(err); msg != "" {
		return msg
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Type == ErrTypeNetwork {
		return "Network error: could not reach the server."
	}
	return "Failed to " + action + ". Please try again."
}

// =============================================================================
// RESPONSE MAPPING
// =============================================================================

// errorBody covers the error shapes both backends use.
type errorBody struct {
	Msg     string `json:"msg"`
	ErrMsg  string `json:"errMsg"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.Msg, b.ErrMsg, b.Message, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// parseErrorMessage extracts the backend message from an error body. Plain
// text bodies are returned trimmed; HTML error pages are dropped.
func parseErrorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		return eb.text()
	}
	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "<") || len(text) > 200 {
		return ""
	}
	return text
}

// wrapTransportError classifies a failed round trip.
func wrapTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeNetwork, Message: "request failed", Cause: err}
}
