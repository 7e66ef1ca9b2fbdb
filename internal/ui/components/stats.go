// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
	"github.com/jeranaias/vscan-tui/internal/util"
)

// =============================================================================
// SCAN STATISTICS
// =============================================================================

// StatCards renders one card per severity with its finding count.
func StatCards(theme *styles.Theme, stats model.Stats) string {
	cards := make([]string, 0, len(model.Severities))
	for _, sev := range model.Severities {
		color := styles.SeverityColor(sev)
		count := theme.StatCount.Foreground(color).Render(strconv.Itoa(stats.Count(sev)))
		card := theme.StatCard.BorderForeground(color).Render(count + "\n" + sev.Label())
		cards = append(cards, card)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// FindingsTable lists vulnerabilities as Severity | Category | Description.
// Descriptions are truncated to fit width.
func FindingsTable(theme *styles.Theme, vulns []model.Vulnerability, width int) string {
	if len(vulns) == 0 {
		return theme.Muted.Render("No vulnerabilities found.")
	}

	const sevWidth = 10
	catWidth := 20
	for _, v := range vulns {
		if w := util.StringWidth(v.Category); w > catWidth {
			catWidth = w
		}
	}
	if catWidth > 28 {
		catWidth = 28
	}
	descWidth := width - sevWidth - catWidth - 4
	if descWidth < 12 {
		descWidth = 12
	}

	head := theme.TableHead.Render(
		util.PadRight("Severity", sevWidth) + "  " +
			util.PadRight("Category", catWidth) + "  " +
			util.PadRight("Description", descWidth))

	rows := []string{head}
	for _, v := range vulns {
		sev := lipgloss.NewStyle().
			Foreground(styles.SeverityColor(v.Severity)).
			Bold(true).
			Render(util.PadRight(v.Severity.Label(), sevWidth))
		row := sev + "  " +
			theme.TableRow.Render(util.PadRight(util.TruncateWidth(v.Category, catWidth), catWidth)) + "  " +
			theme.TableRow.Render(util.TruncateWidth(util.SingleLine(v.DescriptionOrDefault()), descWidth))
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

// FindingDetail renders one vulnerability with its remediation.
func FindingDetail(theme *styles.Theme, v model.Vulnerability, width int) string {
	wrap := lipgloss.NewStyle().Width(width)
	title := styles.SeverityBadge(v.Severity) + " " + theme.HeaderTitle.Render(v.Category)
	return strings.Join([]string{
		title,
		wrap.Render(v.DescriptionOrDefault()),
		theme.PromptLabel.Render("Remediation"),
		wrap.Render(v.RemediationOrDefault()),
	}, "\n")
}
