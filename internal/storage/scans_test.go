// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vscan-tui/internal/model"
)

func openTestCache(t *testing.T) *ScanCache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "cache", DefaultFileName))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func scanAt(id, target string, day int, sevs ...model.Severity) model.ScanResult {
	s := model.ScanResult{
		ID:        id,
		TargetURL: target,
		CreatedAt: model.NewTimestamp(time.Date(2025, 3, day, 12, 0, 0, 0, time.UTC)),
	}
	for _, sev := range sevs {
		s.Vulnerabilities = append(s.Vulnerabilities, model.Vulnerability{Category: "XSS", Severity: sev})
	}
	return s
}

func TestScanCache_ReplaceAndHistory(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.ReplaceHistory(ctx, "u1", []model.ScanResult{
		scanAt("a", "https://old.example.com", 1, model.SeverityLow),
		scanAt("b", "https://new.example.com", 5, model.SeverityCritical, model.SeverityHigh, "info"),
	}))

	history, err := cache.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "b", history[0].ID, "newest first")
	assert.Equal(t, "https://new.example.com", history[0].TargetURL)
	assert.Equal(t, model.Stats{Critical: 1, High: 1, Other: 1}, history[0].Stats)
	assert.Len(t, history[0].Vulnerabilities, 3)
	assert.True(t, history[0].CreatedAt.Equal(time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)))

	// Replacing drops scans the backend no longer reports.
	require.NoError(t, cache.ReplaceHistory(ctx, "u1", []model.ScanResult{scanAt("c", "https://x.example.com", 9)}))
	history, err = cache.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "c", history[0].ID)
	assert.Empty(t, history[0].Vulnerabilities)
}

func TestScanCache_UsersAreSeparate(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "u1", scanAt("a", "https://a.example.com", 1)))
	require.NoError(t, cache.Put(ctx, "", scanAt("", "https://anon.example.com", 2)))

	u2, err := cache.History(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, u2)

	anon, err := cache.Latest(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "https://anon.example.com", anon.TargetURL)
	assert.Empty(t, anon.ID, "hash keys are not exposed as ids")
}

func TestScanCache_PutUpserts(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	scan := scanAt("", "https://a.example.com", 1)
	require.NoError(t, cache.Put(ctx, "u1", scan))
	scan.Vulnerabilities = []model.Vulnerability{{Severity: model.SeverityMedium}}
	require.NoError(t, cache.Put(ctx, "u1", scan))

	history, err := cache.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Stats.Medium)
}

func TestScanCache_LatestEmptyAndClear(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	_, err := cache.Latest(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoScans)

	require.NoError(t, cache.Put(ctx, "u1", scanAt("a", "https://a.example.com", 1)))
	require.NoError(t, cache.Clear(ctx, "u1"))
	_, err = cache.Latest(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoScans)
}

func TestScanCache_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	ctx := context.Background()

	cache, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, "u1", scanAt("a", "https://a.example.com", 1)))
	require.NoError(t, cache.Close())

	cache, err = Open(path)
	require.NoError(t, err)
	defer cache.Close()
	history, err := cache.History(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
