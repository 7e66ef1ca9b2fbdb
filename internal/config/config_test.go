// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VSCAN_CHAT_URL", "VSCAN_USER_URL", "VSCAN_TIMEOUT", "VSCAN_INSECURE",
		"VSCAN_THEME", "VSCAN_LOG_LEVEL", "VSCAN_CACHE", "VSCAN_JWT_SECRET",
	} {
		t.Setenv(key, "")
	}
}

// TestConfig_Default tests that Default() returns a valid config with defaults.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:5000", cfg.Backend.ChatURL)
	assert.Equal(t, "http://localhost:3000", cfg.Backend.UserURL)
	assert.Equal(t, 3, cfg.Backend.ListRetries)
	assert.Equal(t, 500, cfg.Backend.ListRetryDelayMs)
	assert.True(t, cfg.Cache.Enabled)
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"bad chat url", func(c *Config) { c.Backend.ChatURL = "localhost:5000" }, "backend.chat_url"},
		{"ftp user url", func(c *Config) { c.Backend.UserURL = "ftp://x.example.com" }, "backend.user_url"},
		{"zero timeout", func(c *Config) { c.Backend.TimeoutSecs = 0 }, "backend.timeout_secs"},
		{"too many retries", func(c *Config) { c.Backend.ListRetries = 11 }, "backend.list_retries"},
		{"invalid theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"narrow sidebar", func(c *Config) { c.UI.SidebarWidth = 4 }, "ui.sidebar_width"},
		{"invalid level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field)
		})
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Formats(t *testing.T) {
	clearEnv(t)
	files := map[string]string{
		FileTOML: "[backend]\nchat_url = \"http://chat.example.com:8080\"\n[ui]\ntheme = \"light\"\n",
		FileYAML: "backend:\n  chat_url: http://chat.example.com:8080\nui:\n  theme: light\n",
		FileJSON: `{"backend": {"chat_url": "http://chat.example.com:8080"}, "ui": {"theme": "light"}}`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))

			cfg, err := Load(dir)
			require.NoError(t, err)
			assert.Equal(t, "http://chat.example.com:8080", cfg.Backend.ChatURL)
			assert.Equal(t, "light", cfg.UI.Theme)
			// Unset values are filled from defaults.
			assert.Equal(t, "http://localhost:3000", cfg.Backend.UserURL)
			assert.Equal(t, 32, cfg.UI.SidebarWidth)
		})
	}
}

func TestLoad_TOMLTakesPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileTOML), []byte("[ui]\ntheme = \"light\"\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileJSON), []byte(`{"ui": {"theme": "auto"}}`), 0600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestLoad_InvalidFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileTOML), []byte("[ui]\ntheme = \"neon\"\n"), 0600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.theme")
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VSCAN_CHAT_URL", "https://chat.example.com")
	t.Setenv("VSCAN_TIMEOUT", "30")
	t.Setenv("VSCAN_INSECURE", "yes")
	t.Setenv("VSCAN_CACHE", "0")
	t.Setenv("VSCAN_THEME", "light")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com", cfg.Backend.ChatURL)
	assert.Equal(t, 30, cfg.Backend.TimeoutSecs)
	assert.True(t, cfg.Backend.InsecureSkipVerify)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestLoadDotEnv(t *testing.T) {
	// godotenv never overrides a variable that exists, even when empty.
	t.Setenv("VSCAN_USER_URL", "")
	os.Unsetenv("VSCAN_USER_URL")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("VSCAN_USER_URL=http://users.example.com:3000\n"), 0600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "http://users.example.com:3000", os.Getenv("VSCAN_USER_URL"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestSaveAndReload(t *testing.T) {
	clearEnv(t)
	for _, name := range []string{FileTOML, FileYAML, FileJSON} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := Default()
			cfg.UI.Theme = "auto"
			cfg.Backend.RequestsPerSecond = 2.5

			path := filepath.Join(dir, name)
			require.NoError(t, SaveToPath(cfg, path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := LoadFromPath(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestSave_DefaultLocation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	path, err := Save(Default(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileTOML), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# vscan configuration file"))
}

// TestConfig_GetSet tests dot-notation access.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	require.NoError(t, cfg.Set("backend.chat_url", "http://10.0.0.5:5000"))
	assert.Equal(t, "http://10.0.0.5:5000", cfg.Backend.ChatURL)

	require.NoError(t, cfg.Set("ui.sidebar_width", "40"))
	assert.Equal(t, 40, cfg.UI.SidebarWidth)

	require.NoError(t, cfg.Set("cache.enabled", "false"))
	assert.False(t, cfg.Cache.Enabled)

	require.NoError(t, cfg.Set("backend.requests_per_second", 5))
	assert.Equal(t, 5.0, cfg.Backend.RequestsPerSecond)

	_, err = cfg.Get("backend.nope")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Error(t, cfg.Set("ui", "x"), "sections are not values")
	assert.Error(t, cfg.Set("ui.sidebar_width", "wide"))
}

func TestConfig_SetRestoresOnInvalid(t *testing.T) {
	cfg := Default()
	err := cfg.Set("ui.theme", "neon")
	require.Error(t, err)
	assert.Equal(t, "dark", cfg.UI.Theme)
}

func TestKeys_AllResolve(t *testing.T) {
	cfg := Default()
	for _, key := range Keys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestConfig_StringRedactsSecret(t *testing.T) {
	cfg := Default()
	cfg.Mock.JWTSecret = "s3cret"
	out := cfg.String()
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "s3cret", cfg.Mock.JWTSecret)
}

func TestConfig_APIConfig(t *testing.T) {
	cfg := Default()
	cfg.Backend.TimeoutSecs = 15
	ac := cfg.APIConfig()
	assert.Equal(t, 15*time.Second, ac.Timeout)
	assert.Equal(t, 500*time.Millisecond, ac.ListRetryDelay)
	assert.Equal(t, cfg.Backend.UserURL, ac.UserURL)
}

func TestPaths(t *testing.T) {
	t.Setenv(EnvHome, "/tmp/vscan-home")
	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/vscan-home", dir)

	cfg := Default()
	assert.Equal(t, filepath.Join(dir, "vscan.log"), cfg.LogPath(dir))
	assert.Equal(t, filepath.Join(dir, "scans.db"), cfg.CachePath(dir))
	cfg.Cache.Path = "/data/cache.db"
	assert.Equal(t, "/data/cache.db", cfg.CachePath(dir))
}
