// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - The "config" command.
//
// Subcommands:
//   show (default)   Print the effective configuration (secrets redacted)
//   get KEY          Print one value, e.g. "ui.theme"
//   set KEY VALUE    Change one value and save config.toml
//   path             Print the config file path
//   keys             List every key

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/vscan-tui/internal/config"
)

func (e *Env) handleConfig() error {
	p := NewArgParser(e.Args.Raw)
	sub := p.Subcommand()
	if sub == "" {
		sub = "show"
	}

	switch sub {
	case "show":
		return e.configShow()
	case "get":
		return e.configGet(p.Positional(1))
	case "set":
		return e.configSet(p.Positional(1), JoinPositionalArgs(p, 2), p.PositionalCount() > 2)
	case "path":
		return e.configPath()
	case "keys":
		if e.Args.JSON {
			return e.printJSON("config keys", config.Keys())
		}
		for _, k := range config.Keys() {
			fmt.Fprintln(e.Stdout, k)
		}
		return nil
	}
	return ErrUnknownSubcommand("config", sub, []string{"show", "get", "set", "path", "keys"})
}

// configFile is the file config is read from, or where set will write.
func (e *Env) configFile() string {
	if path := config.FindFile(e.Dir); path != "" {
		return path
	}
	return filepath.Join(e.Dir, config.FileTOML)
}

func (e *Env) configShow() error {
	if e.Args.JSON {
		safe := e.Config.Clone()
		if safe.Mock.JWTSecret != "" {
			safe.Mock.JWTSecret = "[REDACTED]"
		}
		return e.printJSON("config show", map[string]any{"path": e.configFile(), "config": safe})
	}
	fmt.Fprintln(e.Stdout, DimStyle.Render("# "+e.configFile()))
	fmt.Fprint(e.Stdout, e.Config.String())
	return nil
}

func (e *Env) configGet(key string) error {
	if key == "" {
		return ErrMissingArgument("key", "vscan config get ui.theme")
	}
	value, err := e.Config.Get(key)
	if err != nil {
		return err
	}
	if key == "mock.jwt_secret" && value != "" {
		value = "[REDACTED]"
	}
	if e.Args.JSON {
		return e.printJSON("config get", map[string]any{"key": key, "value": value})
	}
	fmt.Fprintln(e.Stdout, value)
	return nil
}

func (e *Env) configSet(key, value string, hasValue bool) error {
	if key == "" || !hasValue {
		return ErrMissingArgument("key and value", "vscan config set ui.theme light")
	}
	if err := e.Config.Set(key, value); err != nil {
		if errors.Is(err, config.ErrUnknownKey) {
			return err
		}
		return NewValidationError(key, value, err.Error())
	}
	path, err := config.Save(e.Config, e.Dir)
	if err != nil {
		return NewCommandError("config", "set", "the config file could not be written", err)
	}
	if e.Args.JSON {
		return e.printJSON("config set", map[string]string{"key": key, "value": value, "path": path})
	}
	e.out("%s %s = %s (%s)", SuccessStyle.Render("[OK]"), key, value, path)
	return nil
}

func (e *Env) configPath() error {
	path := e.configFile()
	_, err := os.Stat(path)
	exists := err == nil
	if e.Args.JSON {
		return e.printJSON("config path", map[string]any{"path": path, "exists": exists})
	}
	fmt.Fprintln(e.Stdout, path)
	return nil
}
