// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "warn"})

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=value") {
		t.Errorf("warn line missing or malformed: %q", out)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "debug", Format: "json"})
	logger.Debug("request", "status", 200)

	if !strings.Contains(buf.String(), `"msg":"request"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "loud"})
	logger.Debug("nope")
	logger.Info("yes")

	if strings.Contains(buf.String(), "nope") || !strings.Contains(buf.String(), "yes") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestOpenFile_CreatesPrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", DefaultFileName)

	logger, closer, err := OpenFile(path, Options{})
	if err != nil {
		t.Fatalf("OpenFile() error: %v", err)
	}
	logger.Info("hello")
	closer.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		t.Errorf("log file permissions = %o, want no group/other access", perm)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file content = %q", data)
	}
}
