// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// scan_cmd.go - Scanner commands: submit a scan, show the latest result and
// list previous scans.
//
// Examples:
//   vscan scan https://example.com
//   vscan results --export html --out report.html
//   vscan history --json
//
// Results are written to the local scan cache so history and results still
// work when the backend is unreachable.

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/export"
	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/storage"
	"github.com/jeranaias/vscan-tui/internal/util"
	"github.com/jeranaias/vscan-tui/internal/validate"
)

// =============================================================================
// SCAN
// =============================================================================

func (e *Env) handleScan(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw)
	target := p.Positional(0)
	if err := validate.ScanURL(target); err != nil {
		return err
	}

	if !e.Args.JSON && !e.Args.Quiet {
		fmt.Fprintln(e.Stderr, DimStyle.Render("Scanning "+target+" ..."))
	}
	scan, err := e.Client.SubmitScan(ctx, target)
	if err != nil {
		return apiError("scan", "submit", err)
	}
	e.remember(ctx, *scan)

	if e.Args.JSON {
		return e.printJSON("scan", ScanData{Scan: *scan, Stats: model.ComputeStats(scan.Vulnerabilities)})
	}
	e.printScan(*scan)
	return nil
}

// remember caches a scan. Cache failures are logged, never returned.
func (e *Env) remember(ctx context.Context, scan model.ScanResult) {
	cache, err := e.Cache()
	if err != nil || cache == nil {
		if err != nil {
			e.Logger.Warn("scan cache unavailable", "err", err)
		}
		return
	}
	if err := cache.Put(ctx, e.Session.UserID(), scan); err != nil {
		e.Logger.Warn("failed to cache scan", "err", err)
	}
}

// =============================================================================
// RESULTS
// =============================================================================

func (e *Env) handleResults(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw)

	scan, cached, err := e.latestScan(ctx)
	if err != nil {
		return err
	}

	if format := p.Flag("export"); format != "" {
		opts := export.DefaultOptions()
		opts.OutputPath = p.Flag("out")
		opts.OutputDir = p.FlagOrDefault("dir", ".")
		exporter, err := export.ForFormat(format, opts)
		if err != nil {
			return NewValidationError("export", format, err.Error())
		}
		report := export.NewScanReport(*scan)
		path, err := export.WriteScanReport(report, exporter, opts)
		if err != nil {
			return NewCommandError("results", "export", "the report could not be written", err)
		}
		if e.Args.JSON {
			return e.printJSON("results", map[string]string{"path": path, "summary": report.Summary()})
		}
		e.out("%s Report written to %s (%s)", SuccessStyle.Render("[OK]"), path, report.Summary())
		return nil
	}

	if e.Args.JSON {
		return e.printJSON("results", ScanData{Scan: *scan, Stats: model.ComputeStats(scan.Vulnerabilities)})
	}
	if cached {
		fmt.Fprintln(e.Stderr, WarningStyle.Render("Backend unreachable; showing the cached result."))
	}
	e.printScan(*scan)
	return nil
}

// latestScan asks the backend for the latest scan and falls back to the
// cache when the backend cannot be reached.
func (e *Env) latestScan(ctx context.Context) (*model.ScanResult, bool, error) {
	scan, err := e.Client.LatestScan(ctx)
	if err == nil {
		e.remember(ctx, *scan)
		return scan, false, nil
	}
	if !isUnreachable(err) {
		return nil, false, apiError("results", "fetch", err)
	}

	cache, cerr := e.Cache()
	if cerr != nil || cache == nil {
		return nil, false, apiError("results", "fetch", err)
	}
	latest, cerr := cache.Latest(ctx, e.Session.UserID())
	if cerr != nil {
		return nil, false, apiError("results", "fetch", err)
	}
	return &latest.ScanResult, true, nil
}

func isUnreachable(err error) bool {
	var clientErr *api.ClientError
	return api.IsTimeout(err) || (errors.As(err, &clientErr) && clientErr.Type == api.ErrTypeNetwork)
}

// =============================================================================
// HISTORY
// =============================================================================

func (e *Env) handleHistory(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw, "clear")
	cache, err := e.Cache()
	if err != nil {
		return err
	}

	if p.BoolFlag("clear") {
		if cache == nil {
			return NewCommandError("history", "clear", "the scan cache is disabled", nil)
		}
		if err := cache.Clear(ctx, e.Session.UserID()); err != nil {
			return err
		}
		e.out("%s Cached history cleared", SuccessStyle.Render("[OK]"))
		return nil
	}

	data, err := e.history(ctx, cache)
	if err != nil {
		return err
	}
	if e.Args.JSON {
		return e.printJSON("history", data)
	}

	if data.Cached {
		fmt.Fprintln(e.Stderr, WarningStyle.Render("Showing cached history."))
	}
	if len(data.Scans) == 0 {
		fmt.Fprintln(e.Stdout, DimStyle.Render("No scans yet. Run 'vscan scan URL' to start one."))
		return nil
	}

	fmt.Fprintln(e.Stdout, TitleStyle.Render("Scan History"))
	for _, s := range data.Scans {
		fmt.Fprintf(e.Stdout, "%s  %s  %s\n",
			DimStyle.Render(util.PadRight(s.Scan.CreatedAt.Sidebar(), 22)),
			ValueStyle.Render(util.PadRight(util.TruncateWidth(s.Scan.TargetURL, 40), 40)),
			statsLine(s.Stats))
	}
	return nil
}

// history fetches the signed-in user's scans and refreshes the cache. When
// signed out or offline the cache is used instead.
func (e *Env) history(ctx context.Context, cache *storage.ScanCache) (HistoryData, error) {
	if e.Session.SignedIn() {
		scans, err := e.Client.ScanHistory(ctx)
		switch {
		case err == nil:
			if cache != nil {
				if err := cache.ReplaceHistory(ctx, e.Session.UserID(), scans); err != nil {
					e.Logger.Warn("failed to cache history", "err", err)
				}
			}
			data := HistoryData{Scans: make([]ScanData, 0, len(scans))}
			for _, s := range scans {
				data.Scans = append(data.Scans, ScanData{Scan: s, Stats: model.ComputeStats(s.Vulnerabilities)})
			}
			return data, nil
		case !isUnreachable(err) || cache == nil:
			return HistoryData{}, apiError("history", "fetch", err)
		}
	}

	data := HistoryData{Cached: true, Scans: []ScanData{}}
	if cache == nil {
		return data, nil
	}
	cached, err := cache.History(ctx, e.Session.UserID())
	if err != nil {
		return HistoryData{}, err
	}
	for _, s := range cached {
		data.Scans = append(data.Scans, ScanData{Scan: s.ScanResult, Stats: s.Stats})
	}
	return data, nil
}

// =============================================================================
// RENDERING
// =============================================================================

func statsLine(s model.Stats) string {
	parts := make([]string, 0, len(model.Severities))
	for _, sev := range model.Severities {
		parts = append(parts, fmt.Sprintf("%s %d", RenderSeverity(sev), s.Count(sev)))
	}
	return strings.Join(parts, "  ")
}

func (e *Env) printScan(scan model.ScanResult) {
	w := e.Stdout
	report := export.NewScanReport(scan)

	fmt.Fprintln(w, TitleStyle.Render(export.ReportTitle))
	fmt.Fprintln(w, RenderField("Target:", scan.TargetURL))
	if !scan.CreatedAt.IsZero() {
		fmt.Fprintln(w, RenderField("Scanned:", scan.CreatedAt.Sidebar()))
	}
	fmt.Fprintln(w, RenderField("Findings:", report.Summary()))
	fmt.Fprintln(w, statsLine(report.Stats))

	if len(report.Findings) == 0 {
		return
	}
	fmt.Fprintln(w, RenderSeparator(60))
	width := GetTerminalWidth() - 4
	for i, v := range report.Findings {
		fmt.Fprintf(w, "%d. %s %s\n", i+1, RenderSeverity(v.Severity), SectionStyle.UnsetMarginTop().Render(v.Category))
		fmt.Fprintln(w, indent(WrapText(v.DescriptionOrDefault(), width)))
		fmt.Fprintln(w, indent(InfoStyle.Render("Fix: ")+WrapText(v.RemediationOrDefault(), width)))
	}
}

func indent(s string) string {
	return "   " + strings.ReplaceAll(s, "\n", "\n   ")
}
