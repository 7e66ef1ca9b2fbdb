// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/jeranaias/vscan-tui/internal/model"
)

// scanTarget produces findings from the shape of the target URL alone, so a
// given URL always yields the same report.
func scanTarget(target string, at model.Timestamp) model.ScanResult {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{}
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)

	var vulns []model.Vulnerability
	if u.RawQuery != "" {
		vulns = append(vulns, model.Vulnerability{
			Category:    "SQL Injection",
			Severity:    "Critical",
			Description: "Query parameters are reflected into a database query without parameterization.",
			Remediation: "Use prepared statements and validate every query parameter on the server.",
		})
	}
	if u.Scheme == "http" {
		vulns = append(vulns, model.Vulnerability{
			Category:    "Insecure Transport",
			Severity:    "High",
			Description: "The site is served over plain HTTP, exposing sessions to interception.",
			Remediation: "Redirect all traffic to HTTPS and send a Strict-Transport-Security header.",
		})
	}
	if strings.Contains(path, "admin") || strings.Contains(path, "login") {
		vulns = append(vulns, model.Vulnerability{
			Category:    "Exposed Login Page",
			Severity:    "Medium",
			Description: "An authentication page is reachable without rate limiting.",
			Remediation: "Throttle failed logins and place administrative pages behind a VPN or allowlist.",
		})
	}
	vulns = append(vulns,
		model.Vulnerability{
			Category:    "Missing Content-Security-Policy",
			Severity:    "Medium",
			Description: "No Content-Security-Policy header was returned.",
			Remediation: "Define a restrictive Content-Security-Policy for scripts, styles and frames.",
		},
		model.Vulnerability{
			Category:    "Clickjacking",
			Severity:    "Low",
			Description: "The page can be framed by other origins.",
			Remediation: "Send X-Frame-Options: DENY or a frame-ancestors directive.",
		},
	)
	if strings.Contains(host, "test") || strings.Contains(host, "staging") {
		vulns = append(vulns, model.Vulnerability{
			Category:    "Server Banner Disclosure",
			Severity:    "Informational",
			Description: "The Server header reveals the web server version.",
		})
	}

	return model.ScanResult{
		ID:              uuid.NewString(),
		TargetURL:       target,
		Vulnerabilities: vulns,
		CreatedAt:       at,
	}
}
