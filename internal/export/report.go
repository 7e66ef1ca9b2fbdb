// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/jeranaias/vscan-tui/internal/model"
)

// ReportTitle heads every scan report.
const ReportTitle = "Vulnerability Scan Report"

// ScanReport is a scan result prepared for export: findings sorted by
// severity with per-severity counts.
type ScanReport struct {
	Title     string                `json:"title"`
	TargetURL string                `json:"targetUrl"`
	ScannedAt time.Time             `json:"scannedAt,omitempty"`
	Stats     model.Stats           `json:"stats"`
	Total     int                   `json:"total"`
	Findings  []model.Vulnerability `json:"vulnerabilities"`
}

// NewScanReport builds a report from a scan result. Findings are ordered
// critical first; equal severities keep the scanner's order.
func NewScanReport(scan model.ScanResult) *ScanReport {
	findings := make([]model.Vulnerability, len(scan.Vulnerabilities))
	copy(findings, scan.Vulnerabilities)
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() < findings[j].Severity.Rank()
	})

	stats := model.ComputeStats(scan.Vulnerabilities)
	return &ScanReport{
		Title:     ReportTitle,
		TargetURL: scan.TargetURL,
		ScannedAt: scan.CreatedAt.Time,
		Stats:     stats,
		Total:     stats.Total(),
		Findings:  findings,
	}
}

// Summary is a one-line description of the counts.
func (r *ScanReport) Summary() string {
	if r.Total == 0 {
		return "No vulnerabilities found"
	}
	return fmt.Sprintf("%d findings: %d critical, %d high, %d medium, %d low",
		r.Total, r.Stats.Critical, r.Stats.High, r.Stats.Medium, r.Stats.Low)
}

func validateReport(r *ScanReport) error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}
	if r.TargetURL == "" {
		return fmt.Errorf("report has no target URL")
	}
	return nil
}
