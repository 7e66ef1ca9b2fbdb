// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/export"
	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/storage"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
	"github.com/jeranaias/vscan-tui/internal/validate"
)

// scanTimeout bounds a scan; the backend scans synchronously.
const scanTimeout = 3 * time.Minute

// Scanner submits scans and re-reads the latest result. *api.Client
// implements it.
type Scanner interface {
	SubmitScan(ctx context.Context, target string) (*model.ScanResult, error)
	LatestScan(ctx context.Context) (*model.ScanResult, error)
}

// History caches scan results per user. *storage.ScanCache implements it.
type History interface {
	History(ctx context.Context, userID string) ([]storage.CachedScan, error)
	Put(ctx context.Context, userID string, scan model.ScanResult) error
}

// Pane is the part of the dashboard being shown.
type Pane int

const (
	PaneResults Pane = iota
	PaneHistory
)

// =============================================================================
// KEYS
// =============================================================================

// KeyMap defines the dashboard key bindings.
type KeyMap struct {
	Scan    key.Binding
	Refresh key.Binding
	Toggle  key.Binding
	Up      key.Binding
	Down    key.Binding
	Export  key.Binding
	Back    key.Binding
}

// DefaultKeyMap returns the default dashboard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Scan:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "scan")),
		Refresh: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("C-r", "refresh")),
		Toggle:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "results/history")),
		Up:      key.NewBinding(key.WithKeys("up"), key.WithHelp("up", "previous")),
		Down:    key.NewBinding(key.WithKeys("down"), key.WithHelp("down", "next")),
		Export:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("C-s", "export report")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "clear")),
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

type scanDoneMsg struct {
	result  *model.ScanResult
	err     error
	refresh bool
}

type historyMsg struct {
	scans []storage.CachedScan
	err   error
}

type exportDoneMsg struct {
	path string
	err  error
}

// =============================================================================
// MODEL
// =============================================================================

// Options configures a dashboard Model.
type Options struct {
	Scanner Scanner

	// History may be nil to disable the local cache.
	History History

	// UserID names the cache partition; nil or "" means anonymous.
	UserID func() string

	Theme *styles.Theme

	// ExportFormat is "md", "html" or "json" (default "md").
	ExportFormat string
	ExportDir    string

	Logger *log.Logger
}

// Model is the Bubble Tea model for the scanner dashboard.
type Model struct {
	scanner      Scanner
	history      History
	userID       func() string
	theme        *styles.Theme
	keys         KeyMap
	logger       *log.Logger
	exportFormat string
	exportDir    string

	width  int
	height int

	input   textinput.Model
	spinner spinner.Model

	pane     Pane
	scanning bool
	result   *model.ScanResult
	stats    model.Stats
	cursor   int

	scans      []storage.CachedScan
	histCursor int

	fieldErr string
	status   string
	lastErr  string
}

// New creates a dashboard model.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto)
	}
	format := opts.ExportFormat
	if format == "" {
		format = "md"
	}

	input := textinput.New()
	input.Prompt = "Target URL: "
	input.Placeholder = "https://example.com"
	input.CharLimit = 2048
	input.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = theme.Spinner

	return Model{
		scanner:      opts.Scanner,
		history:      opts.History,
		userID:       opts.UserID,
		theme:        theme,
		keys:         DefaultKeyMap(),
		logger:       logger,
		exportFormat: format,
		exportDir:    opts.ExportDir,
		input:        input,
		spinner:      sp,
	}
}

// Init loads the cached history.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.historyCmd())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(20, msg.Width-20)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case scanDoneMsg:
		return m.handleScanDone(msg)

	case historyMsg:
		if msg.err != nil {
			m.logger.Warn("load scan history failed", "err", msg.err)
			m.lastErr = "Failed to load scan history"
			return m, nil
		}
		m.scans = msg.scans
		if m.histCursor >= len(m.scans) {
			m.histCursor = max(0, len(m.scans)-1)
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.lastErr = "Export failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "Report saved to " + msg.path
		return m, nil

	case spinner.TickMsg:
		if !m.scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the dashboard.
func (m Model) View() string {
	return m.render()
}

// Result returns the shown scan, or nil.
func (m Model) Result() *model.ScanResult { return m.result }

// Stats returns the counts of the shown scan.
func (m Model) Stats() model.Stats { return m.stats }

// Scanning reports whether a scan is running.
func (m Model) Scanning() bool { return m.scanning }

// FieldError returns the inline URL validation message.
func (m Model) FieldError() string { return m.fieldErr }

// Err returns the visible error text.
func (m Model) Err() string { return m.lastErr }

// Status returns the status line text.
func (m Model) Status() string { return m.status }

// Pane returns the visible pane.
func (m Model) Pane() Pane { return m.pane }

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Toggle):
		if m.pane == PaneResults {
			m.pane = PaneHistory
			return m, m.historyCmd()
		}
		m.pane = PaneResults
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.scanning {
			return m, nil
		}
		m.scanning = true
		m.lastErr = ""
		m.status = "Refreshing results..."
		return m, tea.Batch(m.refreshCmd(), m.spinner.Tick)

	case key.Matches(msg, m.keys.Export):
		if m.result == nil {
			m.lastErr = "Run a scan before exporting"
			return m, nil
		}
		return m, m.exportCmd(*m.result)

	case key.Matches(msg, m.keys.Up):
		if m.pane == PaneHistory {
			if m.histCursor > 0 {
				m.histCursor--
			}
		} else if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.pane == PaneHistory {
			if m.histCursor < len(m.scans)-1 {
				m.histCursor++
			}
		} else if m.result != nil && m.cursor < len(m.result.Vulnerabilities)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		m.input.Reset()
		m.fieldErr = ""
		m.lastErr = ""
		return m, nil

	case key.Matches(msg, m.keys.Scan):
		if m.pane == PaneHistory {
			return m.openHistoryEntry()
		}
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.fieldErr = ""
	return m, cmd
}

// submit validates the target and starts a scan.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.scanning {
		return m, nil
	}
	target := strings.TrimSpace(m.input.Value())
	if err := validate.ScanURL(target); err != nil {
		var fe validate.FieldError
		if errors.As(err, &fe) {
			m.fieldErr = fe.Message
		} else {
			m.fieldErr = err.Error()
		}
		return m, nil
	}
	m.fieldErr = ""
	m.lastErr = ""
	m.status = "Scanning " + target + "..."
	m.scanning = true
	return m, tea.Batch(m.scanCmd(target), m.spinner.Tick)
}

func (m Model) openHistoryEntry() (tea.Model, tea.Cmd) {
	if len(m.scans) == 0 {
		return m, nil
	}
	scan := m.scans[m.histCursor]
	m.show(&scan.ScanResult)
	m.pane = PaneResults
	m.status = "Showing cached scan of " + scan.TargetURL
	return m, nil
}

func (m Model) handleScanDone(msg scanDoneMsg) (tea.Model, tea.Cmd) {
	m.scanning = false
	m.status = ""
	if msg.err != nil {
		action := "run scan"
		if msg.refresh {
			action = "refresh results"
		}
		m.logger.Warn("scan failed", "action", action, "err", msg.err)
		m.lastErr = api.UserMessage(msg.err, action)
		return m, nil
	}
	m.show(msg.result)
	m.pane = PaneResults
	return m, m.historyCmd()
}

// show displays scan and recomputes its statistics.
func (m *Model) show(scan *model.ScanResult) {
	m.result = scan
	m.stats = model.ComputeStats(scan.Vulnerabilities)
	m.cursor = 0
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) user() string {
	if m.userID == nil {
		return ""
	}
	return m.userID()
}

func (m Model) scanCmd(target string) tea.Cmd {
	return m.scanWith(false, func(ctx context.Context) (*model.ScanResult, error) {
		return m.scanner.SubmitScan(ctx, target)
	})
}

func (m Model) refreshCmd() tea.Cmd {
	return m.scanWith(true, m.scanner.LatestScan)
}

// scanWith runs fn and caches a successful result.
func (m Model) scanWith(refresh bool, fn func(ctx context.Context) (*model.ScanResult, error)) tea.Cmd {
	hist := m.history
	user := m.user()
	logger := m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()
		res, err := fn(ctx)
		if err == nil && hist != nil {
			if putErr := hist.Put(ctx, user, *res); putErr != nil {
				logger.Warn("cache scan failed", "err", putErr)
			}
		}
		return scanDoneMsg{result: res, err: err, refresh: refresh}
	}
}

func (m Model) historyCmd() tea.Cmd {
	if m.history == nil {
		return nil
	}
	hist := m.history
	user := m.user()
	return func() tea.Msg {
		scans, err := hist.History(context.Background(), user)
		return historyMsg{scans: scans, err: err}
	}
}

func (m Model) exportCmd(scan model.ScanResult) tea.Cmd {
	format := m.exportFormat
	dir := m.exportDir
	return func() tea.Msg {
		opts := export.DefaultOptions()
		if dir != "" {
			opts.OutputDir = dir
		}
		exporter, err := export.ForFormat(format, opts)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		path, err := export.WriteScanReport(export.NewScanReport(scan), exporter, opts)
		return exportDoneMsg{path: path, err: err}
	}
}
