// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/jeranaias/vscan-tui/internal/auth"
	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/session"
	"github.com/jeranaias/vscan-tui/internal/ui/components"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
)

// =============================================================================
// FOCUS AND MODES
// =============================================================================

// Focus is the area receiving keys.
type Focus int

const (
	FocusInput Focus = iota
	FocusSidebar
	FocusMessages
)

// Mode is a prompt that temporarily takes over the input line.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeRename
	ModeEdit
	ModeAttach
	ModeConfirmDelete
)

func (m Mode) String() string {
	switch m {
	case ModeSearch:
		return "search"
	case ModeRename:
		return "rename"
	case ModeEdit:
		return "edit"
	case ModeAttach:
		return "attach"
	case ModeConfirmDelete:
		return "delete"
	default:
		return ""
	}
}

// FileService uploads documents and lists earlier uploads. *api.Client
// implements it.
type FileService interface {
	UploadPath(ctx context.Context, conversationID, path string) (*model.UploadResult, error)
	UserFiles(ctx context.Context) ([]model.FileRef, error)
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures a chat Model.
type Options struct {
	Manager *session.Manager
	Auth    *auth.Session
	Files   FileService
	Theme   *styles.Theme

	// Markdown renders assistant replies; nil shows them verbatim.
	Markdown *components.MarkdownRenderer

	Logger         *log.Logger
	SidebarWidth   int
	ShowTimestamps bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	manager *session.Manager
	auth    *auth.Session
	files   FileService
	theme   *styles.Theme
	md      *components.MarkdownRenderer
	logger  *log.Logger
	keys    KeyMap

	// sender delivers BufferMsg while a reply streams; may be nil.
	sender   Sender
	throttle *RenderThrottle
	cancels  *cancelHolder

	// Dimensions
	width        int
	height       int
	sidebarWidth int

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	prompt   textinput.Model
	spinner  spinner.Model

	focus Focus
	mode  Mode

	// snap is the last rendered session state.
	snap session.Snapshot

	// Sidebar
	cursor  int
	results []model.SearchResult
	query   string

	// Message selection, -1 when none
	selected int

	// Staged for the next send
	replyTo    *int
	attachment *model.Attachment
	webSearch  bool

	// Attach picker
	userFiles  []model.FileRef
	fileCursor int

	// Pending prompt targets
	renameID  string
	deleteID  string
	editIndex int

	// draft holds the unsent input while a message is being edited.
	draft string

	showTimestamps bool
	sending        bool
	// streamingID is the conversation the running send targets; sendSeq
	// tells its SendDoneMsg apart from one of an abandoned send.
	streamingID string
	sendSeq     int
	signedOut      bool
	ready          bool

	status    string
	lastError string
}

// New creates a chat model.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto)
	}
	sidebarWidth := opts.SidebarWidth
	if sidebarWidth <= 0 {
		sidebarWidth = 32
	}

	input := textarea.New()
	input.Placeholder = "Ask about your scan results..."
	input.ShowLineNumbers = false
	input.CharLimit = 8000
	input.SetHeight(3)
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	input.Focus()

	prompt := textinput.New()
	prompt.CharLimit = 512

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = theme.Spinner

	return Model{
		manager:        opts.Manager,
		auth:           opts.Auth,
		files:          opts.Files,
		theme:          theme,
		md:             opts.Markdown,
		logger:         logger,
		keys:           DefaultKeyMap(),
		throttle:       NewRenderThrottle(),
		cancels:        &cancelHolder{},
		sidebarWidth:   sidebarWidth,
		viewport:       viewport.New(80, 20),
		input:          input,
		prompt:         prompt,
		spinner:        sp,
		selected:       -1,
		editIndex:      -1,
		showTimestamps: opts.ShowTimestamps,
	}
}

// SetSender installs the handle used to report streaming progress. Call it
// with the *tea.Program before Run.
func (m *Model) SetSender(s Sender) {
	m.sender = s
}

// Init loads the conversations.
func (m Model) Init() tea.Cmd {
	if m.auth != nil && !m.auth.SignedIn() {
		return func() tea.Msg { return TokenChangedMsg{SignedIn: false} }
	}
	return tea.Batch(textarea.Blink, m.initCmd())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh(false)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case BufferMsg:
		m.refresh(true)
		return m, nil

	case SendDoneMsg:
		return m.handleSendDone(msg)

	case loadedMsg:
		return m.handleLoaded(msg)

	case searchResultsMsg:
		return m.handleSearchResults(msg)

	case filesMsg:
		return m.handleFiles(msg)

	case uploadDoneMsg:
		return m.handleUploadDone(msg)

	case TokenChangedMsg:
		return m.handleTokenChanged(msg)

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh(true)
		return m, cmd
	}

	return m.updateInputs(msg)
}

// View renders the chat view.
func (m Model) View() string {
	return m.render()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Focus returns the focused area.
func (m Model) Focus() Focus { return m.focus }

// Mode returns the active prompt mode.
func (m Model) Mode() Mode { return m.mode }

// Sending reports whether a reply is streaming.
func (m Model) Sending() bool { return m.sending }

// Status returns the status line text.
func (m Model) Status() string { return m.status }

// Err returns the visible error text.
func (m Model) Err() string { return m.lastError }

// Selected returns the selected message index, or -1.
func (m Model) Selected() int { return m.selected }

// WebSearch reports whether the next message forces a web search.
func (m Model) WebSearch() bool { return m.webSearch }

// ReplyTo returns the quoted message index for the next send, or nil.
func (m Model) ReplyTo() *int { return m.replyTo }

// Attachment returns the file staged for the next send, or nil.
func (m Model) Attachment() *model.Attachment { return m.attachment }

// Snapshot returns the last rendered session state.
func (m Model) Snapshot() session.Snapshot { return m.snap }

// =============================================================================
// STATE SYNC
// =============================================================================

// refresh re-reads the session and re-renders the transcript. follow keeps
// the viewport pinned to the bottom when it already was.
func (m *Model) refresh(follow bool) {
	if m.manager == nil {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.snap = m.manager.Snapshot()

	if m.results == nil && m.cursor >= len(m.snap.Conversations) {
		m.cursor = max(0, len(m.snap.Conversations)-1)
	}
	if m.selected >= len(m.snap.Messages) {
		m.selected = len(m.snap.Messages) - 1
	}

	m.viewport.SetContent(components.MessageList(
		m.theme, m.md, m.snap, m.viewport.Width-1, m.selected, m.showTimestamps, m.spinner.View(),
	))
	if !follow || atBottom {
		m.viewport.GotoBottom()
	}
}

// layout sizes the components for the current window.
func (m *Model) layout() {
	const (
		headerHeight = 1
		statusHeight = 1
		errorHeight  = 1
		stagedHeight = 1
		promptBorder = 1
	)
	inputHeight := m.input.Height()
	chatWidth := m.width - m.sidebarWidth
	if chatWidth < 20 {
		chatWidth = 20
	}

	vpHeight := m.height - headerHeight - statusHeight - errorHeight - stagedHeight - promptBorder - inputHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = chatWidth
	m.viewport.Height = vpHeight

	m.input.SetWidth(max(10, chatWidth-4))
	m.prompt.Width = max(10, chatWidth-20)
}
