// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/vscan-tui/internal/model"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	if th := NewTheme(ModeLight); th.IsDark {
		t.Error("light theme reports dark background")
	}
	if th := NewTheme(ModeDark); !th.IsDark {
		t.Error("dark theme reports light background")
	}
	if th := NewTheme("unknown"); !th.IsDark {
		t.Error("unknown mode should fall back to dark")
	}
}

func TestGlamourStyle(t *testing.T) {
	th := &Theme{IsDark: true, ColorProfile: termenv.TrueColor}
	tests := map[string]string{
		"auto":  "dark",
		"Light": "light",
		"notty": "notty",
	}
	for in, want := range tests {
		if got := th.GlamourStyle(in); got != want {
			t.Errorf("GlamourStyle(%q) = %q, want %q", in, got, want)
		}
	}

	th.IsDark = false
	if got := th.GlamourStyle("auto"); got != "light" {
		t.Errorf("GlamourStyle(auto) on light = %q", got)
	}
	th.ColorProfile = termenv.Ascii
	if got := th.GlamourStyle("auto"); got != "notty" {
		t.Errorf("GlamourStyle(auto) on ascii = %q", got)
	}
}

func TestSeverityColor(t *testing.T) {
	if got := SeverityColor("CRITICAL"); got != lipgloss.Color("#DC3545") {
		t.Errorf("SeverityColor(CRITICAL) = %v", got)
	}
	if got := SeverityColor("info"); got != lipgloss.Color("#636E97") {
		t.Errorf("SeverityColor(info) = %v", got)
	}
}

func TestSeverityBadgeContainsLabel(t *testing.T) {
	for _, sev := range model.Severities {
		if badge := SeverityBadge(sev); !strings.Contains(badge, sev.Label()) {
			t.Errorf("SeverityBadge(%s) = %q, missing label", sev, badge)
		}
	}
}

func TestRenderHelpersIncludeIndicators(t *testing.T) {
	tests := []struct {
		got       string
		indicator string
	}{
		{RenderSuccess("saved"), StatusIndicators.Success},
		{RenderError("failed"), StatusIndicators.Error},
		{RenderWarning("careful"), StatusIndicators.Warning},
		{RenderInfo("note"), StatusIndicators.Info},
	}
	for _, tc := range tests {
		if !strings.Contains(tc.got, tc.indicator) {
			t.Errorf("%q missing indicator %q", tc.got, tc.indicator)
		}
	}
}
