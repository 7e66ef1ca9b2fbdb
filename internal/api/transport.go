// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request trace id.
const RequestIDHeader = "X-Request-Id"

// loggingRoundTripper tags every outbound call with a request id and logs
// method, path, status, and duration.
// SECURITY: never logs headers (they carry the token) or bodies (they carry
// conversation content and passwords).
type loggingRoundTripper struct {
	inner  http.RoundTripper
	logger *log.Logger
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		// RoundTrippers must not mutate the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, requestID)
	}

	resp, err := l.inner.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		l.logger.Warn("api request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"duration", duration,
			"request_id", requestID,
			"err", err,
		)
		return nil, err
	}

	l.logger.Debug("api request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", duration,
		"request_id", requestID,
	)
	return resp, nil
}
