// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/util"
)

// CurrentVersion is written to new config files.
const CurrentVersion = "1"

// EnvHome overrides the config directory.
const EnvHome = "VSCAN_HOME"

// File names searched inside the config directory, in order.
const (
	FileTOML = "config.toml"
	FileYAML = "config.yaml"
	FileYML  = "config.yml"
	FileJSON = "config.json"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete vscan configuration.
type Config struct {
	Version string `toml:"version" json:"version" yaml:"version"`

	Backend BackendConfig `toml:"backend" json:"backend" yaml:"backend"`
	UI      UIConfig      `toml:"ui" json:"ui" yaml:"ui"`
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
	Cache   CacheConfig   `toml:"cache" json:"cache" yaml:"cache"`
	Mock    MockConfig    `toml:"mock" json:"mock" yaml:"mock"`
}

// BackendConfig locates the two backend services.
type BackendConfig struct {
	// ChatURL is the chat backend base URL.
	ChatURL string `toml:"chat_url" json:"chat_url" yaml:"chat_url"`

	// UserURL is the user and scanner backend base URL.
	UserURL string `toml:"user_url" json:"user_url" yaml:"user_url"`

	// TimeoutSecs bounds non-streaming requests. Scans are slow.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" yaml:"timeout_secs"`

	ListRetries      int `toml:"list_retries" json:"list_retries" yaml:"list_retries"`
	ListRetryDelayMs int `toml:"list_retry_delay_ms" json:"list_retry_delay_ms" yaml:"list_retry_delay_ms"`

	// RequestsPerSecond caps outgoing requests; 0 disables the limiter.
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second" yaml:"requests_per_second"`

	InsecureSkipVerify bool `toml:"insecure_skip_verify" json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// UIConfig contains TUI settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto" (detect from the terminal).
	Theme string `toml:"theme" json:"theme" yaml:"theme"`

	// MarkdownStyle is the glamour style: "auto", "dark", "light", "notty".
	MarkdownStyle string `toml:"markdown_style" json:"markdown_style" yaml:"markdown_style"`

	SidebarWidth   int  `toml:"sidebar_width" json:"sidebar_width" yaml:"sidebar_width"`
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps" yaml:"show_timestamps"`
	WatchToken     bool `toml:"watch_token" json:"watch_token" yaml:"watch_token"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`

	// File is the TUI log file; empty means vscan.log in the config directory.
	File string `toml:"file" json:"file" yaml:"file"`
}

// CacheConfig controls the local scan history cache.
type CacheConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite file; empty means scans.db in the config directory.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// MockConfig configures "vscan mock-server".
type MockConfig struct {
	ChatAddr  string `toml:"chat_addr" json:"chat_addr" yaml:"chat_addr"`
	UserAddr  string `toml:"user_addr" json:"user_addr" yaml:"user_addr"`
	JWTSecret string `toml:"jwt_secret" json:"jwt_secret" yaml:"jwt_secret"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Backend: BackendConfig{
			ChatURL:           api.DefaultChatURL,
			UserURL:           api.DefaultUserURL,
			TimeoutSecs:       int(api.DefaultTimeout / time.Second),
			ListRetries:       api.DefaultListRetries,
			ListRetryDelayMs:  int(api.DefaultListRetryDelay / time.Millisecond),
			RequestsPerSecond: 10,
		},
		UI: UIConfig{
			Theme:          "dark",
			MarkdownStyle:  "auto",
			SidebarWidth:   32,
			ShowTimestamps: true,
			WatchToken:     true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Mock: MockConfig{
			ChatAddr: ":5000",
			UserAddr: ":3000",
		},
	}
}

// fillDefaults fills zero values left by a partial config file.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Backend.ChatURL == "" {
		c.Backend.ChatURL = d.Backend.ChatURL
	}
	if c.Backend.UserURL == "" {
		c.Backend.UserURL = d.Backend.UserURL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = d.Backend.TimeoutSecs
	}
	if c.Backend.ListRetries == 0 {
		c.Backend.ListRetries = d.Backend.ListRetries
	}
	if c.Backend.ListRetryDelayMs == 0 {
		c.Backend.ListRetryDelayMs = d.Backend.ListRetryDelayMs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.MarkdownStyle == "" {
		c.UI.MarkdownStyle = d.UI.MarkdownStyle
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Mock.ChatAddr == "" {
		c.Mock.ChatAddr = d.Mock.ChatAddr
	}
	if c.Mock.UserAddr == "" {
		c.Mock.UserAddr = d.Mock.UserAddr
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the config directory: $VSCAN_HOME or ~/.vscan.
func Dir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".vscan"), nil
}

// LogPath returns the TUI log file inside dir unless overridden.
func (c *Config) LogPath(dir string) string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(dir, "vscan.log")
}

// CachePath returns the scan cache file inside dir unless overridden.
func (c *Config) CachePath(dir string) string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(dir, "scans.db")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FindFile returns the first config file present in dir, or "" if none.
func FindFile(dir string) string {
	for _, name := range []string{FileTOML, FileYAML, FileYML, FileJSON} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads the first config file found in dir, applies environment
// overrides and defaults, and validates the result. With no file present
// the defaults (plus overrides) are returned.
func Load(dir string) (*Config, error) {
	path := FindFile(dir)
	if path == "" {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format follows the extension; anything else is TOML.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		_, err = toml.Decode(string(data), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to config.toml in dir.
func Save(cfg *Config, dir string) (string, error) {
	path := filepath.Join(dir, FileTOML)
	return path, SaveToPath(cfg, path)
}

// SaveToPath writes the configuration in the format given by the extension.
// SECURITY: config files are written 0600 (owner read/write only).
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		enc.Close()
	default:
		buf.WriteString("# vscan configuration file\n")
		buf.WriteString("# Values here are overridden by VSCAN_* environment variables.\n\n")
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	}

	if err := util.WriteFileAtomic(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - VSCAN_CHAT_URL: overrides backend.chat_url
//   - VSCAN_USER_URL: overrides backend.user_url
//   - VSCAN_TIMEOUT: overrides backend.timeout_secs
//   - VSCAN_INSECURE: overrides backend.insecure_skip_verify
//   - VSCAN_THEME: overrides ui.theme
//   - VSCAN_LOG_LEVEL: overrides logging.level
//   - VSCAN_CACHE: overrides cache.enabled
//   - VSCAN_JWT_SECRET: overrides mock.jwt_secret
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("VSCAN_CHAT_URL"); v != "" {
		c.Backend.ChatURL = v
	}
	if v := os.Getenv("VSCAN_USER_URL"); v != "" {
		c.Backend.UserURL = v
	}
	if v := os.Getenv("VSCAN_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Backend.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("VSCAN_INSECURE"); v != "" {
		c.Backend.InsecureSkipVerify = parseBool(v)
	}
	if v := os.Getenv("VSCAN_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("VSCAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VSCAN_CACHE"); v != "" {
		c.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("VSCAN_JWT_SECRET"); v != "" {
		c.Mock.JWTSecret = v
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	for field, raw := range map[string]string{
		"backend.chat_url": c.Backend.ChatURL,
		"backend.user_url": c.Backend.UserURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid URL %q, must be http(s)://host[:port]", raw),
			})
		}
	}

	if c.Backend.TimeoutSecs < 1 || c.Backend.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: fmt.Sprintf("must be 1-3600, got %d", c.Backend.TimeoutSecs),
		})
	}
	if c.Backend.ListRetries < 0 || c.Backend.ListRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "backend.list_retries",
			Message: fmt.Sprintf("must be 0-10, got %d", c.Backend.ListRetries),
		})
	}
	if c.Backend.ListRetryDelayMs < 0 {
		errs = append(errs, ValidationError{Field: "backend.list_retry_delay_ms", Message: "cannot be negative"})
	}
	if c.Backend.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{Field: "backend.requests_per_second", Message: "cannot be negative"})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	validStyles := map[string]bool{"auto": true, "dark": true, "light": true, "notty": true}
	if !validStyles[strings.ToLower(c.UI.MarkdownStyle)] {
		errs = append(errs, ValidationError{
			Field:   "ui.markdown_style",
			Message: fmt.Sprintf("invalid style '%s', must be one of: auto, dark, light, notty", c.UI.MarkdownStyle),
		})
	}
	if c.UI.SidebarWidth < 16 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{
			Field:   "ui.sidebar_width",
			Message: fmt.Sprintf("must be 16-80, got %d", c.UI.SidebarWidth),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}
	validFormats := map[string]bool{"text": true, "json": true, "logfmt": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: text, json, logfmt", c.Logging.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// APIConfig converts the backend section into an api client config.
func (c *Config) APIConfig() *api.Config {
	return &api.Config{
		ChatURL:            c.Backend.ChatURL,
		UserURL:            c.Backend.UserURL,
		Timeout:            time.Duration(c.Backend.TimeoutSecs) * time.Second,
		ListRetries:        c.Backend.ListRetries,
		ListRetryDelay:     time.Duration(c.Backend.ListRetryDelayMs) * time.Millisecond,
		RequestsPerSecond:  c.Backend.RequestsPerSecond,
		InsecureSkipVerify: c.Backend.InsecureSkipVerify,
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// ErrUnknownKey is returned by Get and Set for keys not in Keys().
var ErrUnknownKey = errors.New("unknown config key")

// lookup walks a dotted key to the struct field it names.
func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(strings.TrimSpace(key), ".")
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("%s is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Get retrieves a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field type. The result is validated; on failure the
// previous value is restored.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	old := reflect.New(field.Type()).Elem()
	old.Set(field)

	if err := setFieldValue(field, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := c.Validate(); err != nil {
		field.Set(old)
		return err
	}
	return nil
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from a value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strings.TrimSpace(strVal), 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %w", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns all configuration keys in dot notation.
func Keys() []string {
	return []string{
		"version",
		"backend.chat_url",
		"backend.user_url",
		"backend.timeout_secs",
		"backend.list_retries",
		"backend.list_retry_delay_ms",
		"backend.requests_per_second",
		"backend.insecure_skip_verify",
		"ui.theme",
		"ui.markdown_style",
		"ui.sidebar_width",
		"ui.show_timestamps",
		"ui.watch_token",
		"logging.level",
		"logging.format",
		"logging.file",
		"cache.enabled",
		"cache.path",
		"mock.chat_addr",
		"mock.user_addr",
		"mock.jwt_secret",
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as TOML with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Mock.JWTSecret != "" {
		safe.Mock.JWTSecret = "[REDACTED]"
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}
