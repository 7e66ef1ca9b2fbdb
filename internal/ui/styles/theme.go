// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeDark  = "dark"
	ModeLight = "light"
	ModeAuto  = "auto"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Header and status bar
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusDesc  lipgloss.Style
	WebSearch   lipgloss.Style

	// Sidebar
	Sidebar             lipgloss.Style
	SidebarFocused      lipgloss.Style
	SidebarItem         lipgloss.Style
	SidebarItemSelected lipgloss.Style
	SidebarItemActive   lipgloss.Style
	SidebarMeta         lipgloss.Style

	// Messages
	UserMessage      lipgloss.Style
	AssistantMessage lipgloss.Style
	PendingMessage   lipgloss.Style
	RoleLabel        lipgloss.Style
	VersionLabel     lipgloss.Style
	ReplyQuote       lipgloss.Style
	Attachment       lipgloss.Style
	SelectedMessage  lipgloss.Style

	// Input and prompts
	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	PromptLabel    lipgloss.Style

	// Feedback
	Spinner  lipgloss.Style
	ErrorBox lipgloss.Style
	Muted    lipgloss.Style

	// Dashboard
	StatCard  lipgloss.Style
	StatCount lipgloss.Style
	TableHead lipgloss.Style
	TableRow  lipgloss.Style
}

// NewTheme creates a theme for mode ("dark", "light" or "auto"). Auto
// follows the terminal background; the other modes force it.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case ModeLight:
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	case ModeAuto:
		isDark = termenv.HasDarkBackground()
	default:
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.StatusDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.WebSearch = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.SidebarFocused = t.Sidebar.
		BorderForeground(Cyan)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.SidebarItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)

	t.SidebarItemActive = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.SidebarMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Messages
	t.UserMessage = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBorder).
		PaddingLeft(1)

	t.AssistantMessage = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBorder).
		PaddingLeft(1)

	t.PendingMessage = t.UserMessage.
		BorderForeground(PendingBorder)

	t.SelectedMessage = lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(Cyan).
		PaddingLeft(1)

	t.RoleLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)

	t.VersionLabel = lipgloss.NewStyle().
		Foreground(Amber)

	t.ReplyQuote = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Attachment = lipgloss.NewStyle().
		Foreground(Cyan).
		Underline(true)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.PromptLabel = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	// Feedback
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.ErrorBox = lipgloss.NewStyle().
		Foreground(ErrorHighContrast).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)

	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Dashboard
	t.StatCard = lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		Padding(0, 2).
		Width(16)

	t.StatCount = lipgloss.NewStyle().
		Bold(true)

	t.TableHead = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay)

	t.TableRow = lipgloss.NewStyle().
		Foreground(TextPrimary)
}

// GlamourStyle maps the theme to a glamour standard style name when the
// configured markdown style is "auto".
func (t *Theme) GlamourStyle(configured string) string {
	switch strings.ToLower(configured) {
	case "dark", "light", "notty":
		return strings.ToLower(configured)
	}
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}
