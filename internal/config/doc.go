// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for vscan.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Chat and user/scanner backend endpoints
//   - UIConfig: Theme and layout settings for the TUI
//   - MockConfig: Listen addresses for the in-memory mock backend
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (VSCAN_*), including those set by a .env file
//   - ~/.vscan/config.toml
//   - ~/.vscan/config.yaml or config.yml
//   - ~/.vscan/config.json
//   - Built-in defaults
//
// # Usage
//
//	dir, err := config.Dir()
//	cfg, err := config.Load(dir)
//	client := api.NewClient(cfg.APIConfig(), session, logger)
//
// Values can be read and written by dotted key, as "vscan config get|set" does:
//
//	cfg.Set("backend.chat_url", "http://chat.internal:5000")
//	v, err := cfg.Get("ui.theme")
package config
