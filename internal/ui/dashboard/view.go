// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vscan-tui/internal/export"
	"github.com/jeranaias/vscan-tui/internal/ui/components"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
	"github.com/jeranaias/vscan-tui/internal/util"
)

func (m Model) render() string {
	width := m.width
	if width <= 0 {
		width = 100
	}

	sections := []string{
		m.theme.Header.Width(width).Render(m.theme.HeaderTitle.Render(export.ReportTitle)),
		m.renderInput(),
	}

	switch m.pane {
	case PaneHistory:
		sections = append(sections, m.renderHistory(width))
	default:
		sections = append(sections, m.renderResults(width))
	}

	sections = append(sections, m.renderMessageLine(width), m.renderStatusBar(width))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderInput() string {
	line := m.input.View()
	if m.scanning {
		line += " " + m.spinner.View()
	}
	if m.fieldErr != "" {
		line += "\n" + styles.RenderError(m.fieldErr)
	}
	return m.theme.InputContainer.Render(line)
}

func (m Model) renderResults(width int) string {
	if m.result == nil {
		return m.theme.Muted.Render("No scan yet. Enter a URL and press Enter, or Ctrl+R to load the latest result.")
	}

	target := fmt.Sprintf("%s  %s  %s",
		m.theme.HeaderTitle.Render(m.result.TargetURL),
		m.theme.Muted.Render(m.result.CreatedAt.Sidebar()),
		util.Pluralize(m.stats.Total(), "finding", "findings"),
	)

	parts := []string{
		target,
		components.StatCards(m.theme, m.stats),
		components.FindingsTable(m.theme, m.result.Vulnerabilities, width),
	}
	if n := len(m.result.Vulnerabilities); n > 0 && m.cursor < n {
		parts = append(parts, "", components.FindingDetail(m.theme, m.result.Vulnerabilities[m.cursor], width-2))
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderHistory(width int) string {
	if m.history == nil {
		return m.theme.Muted.Render("Scan history cache is disabled.")
	}
	if len(m.scans) == 0 {
		return m.theme.Muted.Render("No cached scans yet.")
	}

	lines := []string{m.theme.TableHead.Render(
		util.PadRight("Date", 22) + "  " + util.PadRight("Findings", 10) + "  Target")}
	for i, s := range m.scans {
		row := util.PadRight(s.CreatedAt.Sidebar(), 22) + "  " +
			util.PadRight(fmt.Sprintf("%d", s.Stats.Total()), 10) + "  " +
			util.TruncateWidth(s.TargetURL, width-38)
		if i == m.histCursor {
			row = m.theme.SidebarItemSelected.Render(row)
		} else {
			row = m.theme.TableRow.Render(row)
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMessageLine(width int) string {
	switch {
	case m.lastErr != "":
		return styles.RenderError(util.TruncateWidth(m.lastErr, width-4))
	case m.status != "":
		return m.theme.Muted.Render(util.TruncateWidth(m.status, width))
	}
	return ""
}

func (m Model) renderStatusBar(width int) string {
	k := m.keys
	var hs []components.KeyHint
	for _, b := range []key.Binding{k.Scan, k.Refresh, k.Toggle, k.Export, k.Up, k.Down} {
		h := b.Help()
		hs = append(hs, components.KeyHint{Key: h.Key, Desc: h.Desc})
	}
	mode := "results"
	if m.pane == PaneHistory {
		mode = "history"
	}
	return components.StatusBar{
		Mode:  mode,
		Hints: hs,
		Width: width,
	}.Render(m.theme)
}
