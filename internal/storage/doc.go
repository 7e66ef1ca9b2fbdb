// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage caches scan results locally in SQLite so "vscan history"
// and the results view work when the scanner backend is unreachable.
//
// The cache is never authoritative: a successful history fetch replaces the
// cached rows for that user.
//
// # Usage
//
//	cache, err := storage.Open(storage.DefaultPath(configDir))
//	if err != nil {
//	    return err
//	}
//	defer cache.Close()
//	err = cache.ReplaceHistory(ctx, userID, scans)
package storage
