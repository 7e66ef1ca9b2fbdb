// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity is the risk level the scanner assigns to a finding.
// Values arrive in arbitrary case; compare through Normalize.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists the known levels from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

var titleCaser = cases.Title(language.English)

// Normalize lowercases and trims the severity.
func (s Severity) Normalize() Severity {
	return Severity(strings.ToLower(strings.TrimSpace(string(s))))
}

// Label returns the title-cased severity for display ("Critical").
func (s Severity) Label() string {
	n := s.Normalize()
	if n == "" {
		return "Unknown"
	}
	return titleCaser.String(string(n))
}

// Rank orders severities for sorting; unknown levels rank last.
func (s Severity) Rank() int {
	switch s.Normalize() {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// RiskColor returns the hex colour used for a severity badge.
func (s Severity) RiskColor() string {
	switch s.Normalize() {
	case SeverityCritical:
		return "#DC3545"
	case SeverityHigh:
		return "#E94A35"
	case SeverityMedium:
		return "#FFC107"
	case SeverityLow:
		return "#28A745"
	default:
		return "#636E97"
	}
}

// =============================================================================
// SCAN RESULTS
// =============================================================================

// Vulnerability is a single scanner finding.
type Vulnerability struct {
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Remediation string   `json:"remediation"`
}

// DescriptionOrDefault returns the description or a placeholder.
func (v Vulnerability) DescriptionOrDefault() string {
	if v.Description == "" {
		return "No description available"
	}
	return v.Description
}

// RemediationOrDefault returns the remediation or a placeholder.
func (v Vulnerability) RemediationOrDefault() string {
	if v.Remediation == "" {
		return "No remediation available"
	}
	return v.Remediation
}

// ScanResult is one completed scan of a target.
type ScanResult struct {
	ID              string          `json:"_id,omitempty"`
	TargetURL       string          `json:"TargetUrl,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	CreatedAt       Timestamp       `json:"createdAt"`
}

// Stats are per-severity finding counts.
type Stats struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Other    int `json:"other,omitempty"`
}

// ComputeStats counts findings by severity, case-insensitively.
func ComputeStats(vulns []Vulnerability) Stats {
	var s Stats
	for _, v := range vulns {
		switch v.Severity.Normalize() {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		default:
			s.Other++
		}
	}
	return s
}

// Total returns the number of findings counted.
func (s Stats) Total() int {
	return s.Critical + s.High + s.Medium + s.Low + s.Other
}

// Count returns the count for a known severity.
func (s Stats) Count(sev Severity) int {
	switch sev.Normalize() {
	case SeverityCritical:
		return s.Critical
	case SeverityHigh:
		return s.High
	case SeverityMedium:
		return s.Medium
	case SeverityLow:
		return s.Low
	default:
		return s.Other
	}
}
