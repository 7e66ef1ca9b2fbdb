// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/jeranaias/vscan-tui/internal/model"
)

type scanEnvelope struct {
	envelope
	Data *model.ScanResult `json:"data"`
}

type historyEnvelope struct {
	envelope
	Data []model.ScanResult `json:"data"`
}

const integrationPath = "/integration/IntegrationApi"

// SubmitScan asks the scanner to scan target and waits for the findings.
// The target is sent as given; validate it first with validate.ScanURL.
func (c *Client) SubmitScan(ctx context.Context, target string) (*model.ScanResult, error) {
	cl := call{
		backend:      userBackend,
		method:       http.MethodPost,
		path:         integrationPath,
		body:         map[string]string{"TargetUrl": target},
		optionalAuth: true,
	}
	var env scanEnvelope
	if err := c.do(ctx, cl, &env); err != nil {
		return nil, err
	}
	if err := env.check(cl, "Scan failed. Please try again."); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "scan: missing data in response"}
	}
	if env.Data.TargetURL == "" {
		env.Data.TargetURL = target
	}
	return env.Data, nil
}

// LatestScan re-reads the most recent scan result.
func (c *Client) LatestScan(ctx context.Context) (*model.ScanResult, error) {
	cl := call{backend: userBackend, method: http.MethodGet, path: integrationPath, optionalAuth: true}
	var env scanEnvelope
	if err := c.do(ctx, cl, &env); err != nil {
		return nil, err
	}
	if err := env.check(cl, "Failed to refresh results"); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "latest scan: missing data in response"}
	}
	return env.Data, nil
}

// ScanHistory lists the signed-in user's previous scans, newest first as
// returned by the backend.
func (c *Client) ScanHistory(ctx context.Context) ([]model.ScanResult, error) {
	cl := call{backend: userBackend, method: http.MethodGet, path: "/vulns/getScanHistoryForSpecificUser", auth: true}
	var env historyEnvelope
	if err := c.do(ctx, cl, &env); err != nil {
		return nil, err
	}
	if err := env.check(cl, "Failed to load scan history"); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []model.ScanResult{}, nil
	}
	return env.Data, nil
}
