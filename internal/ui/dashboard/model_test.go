// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/storage"
	"github.com/jeranaias/vscan-tui/internal/ui/styles"
	"github.com/jeranaias/vscan-tui/internal/validate"
)

// fakeScanner returns scripted results.
type fakeScanner struct {
	result  *model.ScanResult
	err     error
	targets []string
}

func (f *fakeScanner) SubmitScan(ctx context.Context, target string) (*model.ScanResult, error) {
	f.targets = append(f.targets, target)
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.TargetURL = target
	return &res, nil
}

func (f *fakeScanner) LatestScan(ctx context.Context) (*model.ScanResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	return &res, nil
}

func sampleScan() *model.ScanResult {
	return &model.ScanResult{
		ID:        "scan-1",
		TargetURL: "https://shop.example.com",
		CreatedAt: model.NewTimestamp(time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)),
		Vulnerabilities: []model.Vulnerability{
			{Category: "SQL Injection", Severity: "Critical", Description: "id is injectable"},
			{Category: "Missing CSP", Severity: "medium"},
			{Category: "Clickjacking", Severity: "low"},
		},
	}
}

func newTestModel(t *testing.T, sc Scanner, withHistory bool) (Model, *storage.ScanCache) {
	t.Helper()
	opts := Options{
		Scanner:   sc,
		Theme:     styles.NewTheme(styles.ModeDark),
		UserID:    func() string { return "u-1" },
		ExportDir: t.TempDir(),
	}
	var cache *storage.ScanCache
	if withHistory {
		var err error
		cache, err = storage.Open(filepath.Join(t.TempDir(), "scans.db"))
		require.NoError(t, err)
		t.Cleanup(func() { cache.Close() })
		opts.History = cache
	}
	m := New(opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), cache
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// scanMsg runs the batch returned by submit and returns its scanDoneMsg.
func scanMsg(t *testing.T, cmd tea.Cmd) scanDoneMsg {
	t.Helper()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		if c == nil {
			continue
		}
		if msg, ok := c().(scanDoneMsg); ok {
			return msg
		}
	}
	t.Fatal("no scanDoneMsg in batch")
	return scanDoneMsg{}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestSubmit_ValidatesURL(t *testing.T) {
	sc := &fakeScanner{result: sampleScan()}
	m, _ := newTestModel(t, sc, false)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, validate.MsgURLRequired, m.FieldError())

	m.input.SetValue("not a url")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, validate.MsgURLInvalid, m.FieldError())
	assert.Contains(t, m.View(), validate.MsgURLInvalid)
	assert.Empty(t, sc.targets)
}

// =============================================================================
// SCAN TESTS
// =============================================================================

func TestSubmit_ShowsStatsAndCachesResult(t *testing.T) {
	sc := &fakeScanner{result: sampleScan()}
	m, cache := newTestModel(t, sc, true)

	m.input.SetValue("  https://shop.example.com/login ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.Scanning())

	m, histCmd := update(t, m, scanMsg(t, cmd))
	assert.False(t, m.Scanning())
	require.NotNil(t, m.Result())
	assert.Equal(t, []string{"https://shop.example.com/login"}, sc.targets)
	assert.Equal(t, model.Stats{Critical: 1, Medium: 1, Low: 1}, m.Stats())

	view := m.View()
	assert.Contains(t, view, "SQL Injection")
	assert.Contains(t, view, "3 findings")

	cached, err := cache.History(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, cached, 1)

	require.NotNil(t, histCmd)
	m, _ = update(t, m, histCmd())
	assert.Len(t, m.scans, 1)
}

func TestScan_ErrorShowsBackendMessage(t *testing.T) {
	sc := &fakeScanner{err: &api.APIError{Status: http.StatusBadGateway, Message: "Target unreachable"}}
	m, _ := newTestModel(t, sc, false)

	m.input.SetValue("https://down.example.com")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, scanMsg(t, cmd))

	assert.Equal(t, "Target unreachable", m.Err())
	assert.Nil(t, m.Result())
}

func TestRefresh_LoadsLatest(t *testing.T) {
	sc := &fakeScanner{result: sampleScan()}
	m, _ := newTestModel(t, sc, false)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m, _ = update(t, m, scanMsg(t, cmd))

	require.NotNil(t, m.Result())
	assert.Equal(t, "https://shop.example.com", m.Result().TargetURL)
	assert.Empty(t, sc.targets)
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestHistory_OpenCachedScan(t *testing.T) {
	sc := &fakeScanner{result: sampleScan()}
	m, cache := newTestModel(t, sc, true)
	require.NoError(t, cache.Put(context.Background(), "u-1", *sampleScan()))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, PaneHistory, m.Pane())
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.View(), "shop.example.com")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, PaneResults, m.Pane())
	require.NotNil(t, m.Result())
	assert.Equal(t, 1, m.Stats().Critical)
}

func TestHistory_DisabledWithoutCache(t *testing.T) {
	m, _ := newTestModel(t, &fakeScanner{result: sampleScan()}, false)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "cache is disabled")
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestExport_WritesReport(t *testing.T) {
	m, _ := newTestModel(t, &fakeScanner{result: sampleScan()}, false)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd)

	m.show(sampleScan())
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	require.Empty(t, m.Err())
	path := m.Status()[len("Report saved to "):]
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Vulnerability Scan Report")
	assert.Equal(t, ".md", filepath.Ext(path))
}
