// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/vscan-tui/internal/auth"
	"github.com/jeranaias/vscan-tui/internal/config"
	"github.com/jeranaias/vscan-tui/internal/mockserver"
	"github.com/jeranaias/vscan-tui/internal/model"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "Secr3t!pass"
)

// testCLI runs commands against mock backends on httptest servers, with a
// config directory that persists between runs like a real home directory.
type testCLI struct {
	dir string
	cfg *config.Config

	mu    sync.Mutex
	codes map[string]string
}

type result struct {
	code   int
	stdout string
	stderr string
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	c := &testCLI{dir: t.TempDir(), codes: map[string]string{}}
	srv, err := mockserver.New(mockserver.Options{
		ChatAddr:   "chat",
		UserAddr:   "user",
		JWTSecret:  "test-secret",
		ChunkSize:  8,
		ChunkDelay: -1,
		BcryptCost: bcrypt.MinCost,
		RateLimit:  -1,
		OnResetCode: func(email, code string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.codes[email] = code
		},
	})
	require.NoError(t, err)

	chat := httptest.NewServer(srv.ChatHandler())
	t.Cleanup(chat.Close)
	user := httptest.NewServer(srv.UserHandler())
	t.Cleanup(user.Close)

	c.cfg = config.Default()
	c.cfg.Backend.ChatURL = chat.URL
	c.cfg.Backend.UserURL = user.URL
	c.cfg.Backend.ListRetryDelayMs = 1
	c.cfg.Backend.RequestsPerSecond = 0
	return c
}

// run executes one command line the way Run does, with stdin as piped input.
func (c *testCLI) run(t *testing.T, stdin string, argv ...string) result {
	t.Helper()
	cmd, args := Parse(argv)
	var stdout, stderr bytes.Buffer
	env := newEnv(args, c.dir, c.cfg, strings.NewReader(stdin), &stdout, &stderr)
	defer env.Close()
	code := env.Execute(context.Background(), cmd)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func (c *testCLI) signUpAndLogin(t *testing.T) {
	t.Helper()
	res := c.run(t, testPassword+"\n"+testPassword+"\n",
		"signup", "--name", "ada", "--email", testEmail, "--accept-terms")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	res = c.run(t, testPassword+"\n", "login", "--email", testEmail)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
}

func (c *testCLI) resetCode(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[email]
}

// decodeData unmarshals the data field of a JSON envelope.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	require.True(t, env.Success, out)
	require.NoError(t, json.Unmarshal(env.Data, v), out)
}

// =============================================================================
// ACCOUNT
// =============================================================================

func TestSignUpLoginWhoamiLogout(t *testing.T) {
	c := newTestCLI(t)

	res := c.run(t, "", "whoami", "--json")
	require.Equal(t, ExitSuccess, res.code)
	var who WhoamiData
	decodeData(t, res.stdout, &who)
	assert.False(t, who.SignedIn)

	c.signUpAndLogin(t)
	_, err := os.Stat(filepath.Join(c.dir, auth.TokenFileName))
	assert.NoError(t, err, "login should persist the token")

	res = c.run(t, "", "whoami", "--json")
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	decodeData(t, res.stdout, &who)
	assert.True(t, who.SignedIn)
	assert.Equal(t, "ada", who.UserName)
	assert.NotEmpty(t, who.UserID)
	assert.NotEmpty(t, who.ExpiresAt)

	res = c.run(t, "", "logout")
	assert.Equal(t, ExitSuccess, res.code)
	assert.Contains(t, res.stdout, "Signed out")

	res = c.run(t, "", "conv", "list")
	assert.Equal(t, ExitAuthError, res.code)
	assert.Contains(t, res.stderr, "vscan login")
}

func TestSignUpValidatesLocally(t *testing.T) {
	c := newTestCLI(t)

	res := c.run(t, "weak\nweak\n", "signup", "--name", "ada", "--email", testEmail, "--accept-terms")
	assert.Equal(t, ExitUsageError, res.code)

	res = c.run(t, testPassword+"\n"+testPassword+"\n", "signup", "--name", "ada", "--email", testEmail)
	assert.Equal(t, ExitUsageError, res.code, "terms must be accepted")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	c := newTestCLI(t)
	c.signUpAndLogin(t)
	c.run(t, "", "logout")

	res := c.run(t, "Wrong!pass1\n", "login", "--email", testEmail)
	assert.NotEqual(t, ExitSuccess, res.code)

	res = c.run(t, "", "login", "--email", testEmail)
	assert.NotEqual(t, ExitSuccess, res.code, "missing password on stdin")
}

func TestPasswordReset(t *testing.T) {
	c := newTestCLI(t)
	c.signUpAndLogin(t)

	res := c.run(t, "", "forgot-password", testEmail)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	code := c.resetCode(testEmail)
	require.NotEmpty(t, code)

	const newPassword = "N3w!password"
	res = c.run(t, newPassword+"\n"+newPassword+"\n", "reset-password", testEmail, "--otp", code)
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	res = c.run(t, newPassword+"\n", "login", "--email", testEmail)
	assert.Equal(t, ExitSuccess, res.code, res.stderr)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func TestConversationLifecycle(t *testing.T) {
	c := newTestCLI(t)
	c.signUpAndLogin(t)

	res := c.run(t, "", "--json", "conv", "new", "Header triage")
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	var conv model.Conversation
	decodeData(t, res.stdout, &conv)
	require.NotEmpty(t, conv.ID)
	assert.Equal(t, "Header triage", conv.Title)

	res = c.run(t, "", "conv", "list", "--json")
	require.Equal(t, ExitSuccess, res.code)
	var convs []model.Conversation
	decodeData(t, res.stdout, &convs)
	require.Len(t, convs, 1)
	assert.Equal(t, conv.ID, convs[0].ID)

	res = c.run(t, "", "conv", "rename", conv.ID, "CSP", "review")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	res = c.run(t, "", "conv", "show", conv.ID)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "CSP review")

	res = c.run(t, "", "conv", "rename", conv.ID)
	assert.Equal(t, ExitUsageError, res.code, "empty title")

	res = c.run(t, "", "conv", "delete", conv.ID, "--yes")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	res = c.run(t, "", "conv", "show", conv.ID)
	assert.Equal(t, ExitNotFoundError, res.code)

	res = c.run(t, "", "conv", "frobnicate")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestAskStreamsAndPersists(t *testing.T) {
	c := newTestCLI(t)
	c.signUpAndLogin(t)

	res := c.run(t, "", "--json", "ask", "how", "do", "I", "fix", "a", "missing", "CSP", "header?")
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	var data AskData
	decodeData(t, res.stdout, &data)
	assert.NotEmpty(t, data.ConversationID)
	assert.NotEmpty(t, data.Response)
	assert.Positive(t, data.Chunks)

	res = c.run(t, "", "--json", "conv", "show", data.ConversationID)
	require.Equal(t, ExitSuccess, res.code)
	var conv model.Conversation
	decodeData(t, res.stdout, &conv)
	require.Len(t, conv.Messages, 2)
	assert.True(t, conv.Messages[0].IsUser())
	assert.Equal(t, data.Response, conv.Messages[1].Content)

	// Piped stdin is the question when no words are given.
	res = c.run(t, "what is clickjacking?\n", "ask", "--conv", data.ConversationID)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.NotEmpty(t, strings.TrimSpace(res.stdout))

	res = c.run(t, "", "ask")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestConversationExport(t *testing.T) {
	c := newTestCLI(t)
	c.signUpAndLogin(t)

	res := c.run(t, "", "--json", "ask", "hello")
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	var data AskData
	decodeData(t, res.stdout, &data)

	out := filepath.Join(t.TempDir(), "transcript.md")
	res = c.run(t, "", "conv", "export", data.ConversationID, "--format", "md", "--out", out)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello")
}

// =============================================================================
// SCANNER
// =============================================================================

func TestScanResultsAndHistory(t *testing.T) {
	c := newTestCLI(t)
	c.signUpAndLogin(t)

	res := c.run(t, "", "scan", "not a url")
	assert.Equal(t, ExitUsageError, res.code)

	res = c.run(t, "", "--json", "scan", "https://example.com")
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	var scan ScanData
	decodeData(t, res.stdout, &scan)
	assert.Equal(t, "https://example.com", scan.Scan.TargetURL)
	assert.Equal(t, len(scan.Scan.Vulnerabilities), scan.Stats.Total())

	res = c.run(t, "", "--json", "results")
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	var latest ScanData
	decodeData(t, res.stdout, &latest)
	assert.Equal(t, scan.Scan.TargetURL, latest.Scan.TargetURL)

	res = c.run(t, "", "--json", "history")
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	var history HistoryData
	decodeData(t, res.stdout, &history)
	require.Len(t, history.Scans, 1)
	assert.False(t, history.Cached)

	report := filepath.Join(t.TempDir(), "report.html")
	res = c.run(t, "", "results", "--export", "html", "--out", report)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	_, err := os.Stat(report)
	assert.NoError(t, err)
}

func TestHistoryFallsBackToCache(t *testing.T) {
	c := newTestCLI(t)
	c.signUpAndLogin(t)

	res := c.run(t, "", "scan", "https://example.com")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	res = c.run(t, "", "history")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	// Point the user backend at a closed server.
	dead := httptest.NewServer(nil)
	dead.Close()
	c.cfg.Backend.UserURL = dead.URL
	c.cfg.Backend.ListRetries = 0

	res = c.run(t, "", "--json", "history")
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	var history HistoryData
	decodeData(t, res.stdout, &history)
	assert.True(t, history.Cached)
	require.Len(t, history.Scans, 1)
	assert.Equal(t, "https://example.com", history.Scans[0].Scan.TargetURL)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigSetGet(t *testing.T) {
	c := newTestCLI(t)

	res := c.run(t, "", "config", "set", "ui.theme", "light")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	saved, err := config.Load(c.dir)
	require.NoError(t, err)
	assert.Equal(t, "light", saved.UI.Theme)

	res = c.run(t, "", "config", "set", "ui.theme", "purple")
	assert.Equal(t, ExitUsageError, res.code)

	res = c.run(t, "", "config", "set", "no.such.key", "1")
	assert.Equal(t, ExitConfigError, res.code)

	res = c.run(t, "", "--json", "config", "get", "ui.sidebar_width")
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	assert.Contains(t, res.stdout, `"key": "ui.sidebar_width"`)

	res = c.run(t, "", "config", "show")
	require.Equal(t, ExitSuccess, res.code)
	assert.Contains(t, res.stdout, "[backend]")
}
