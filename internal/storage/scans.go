// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/vscan-tui/internal/model"
)

// DefaultFileName is the cache database inside the config directory.
const DefaultFileName = "scans.db"

// AnonymousUser keys scans submitted without signing in.
const AnonymousUser = "anonymous"

// ErrNoScans is returned by Latest when nothing is cached.
var ErrNoScans = errors.New("storage: no cached scans")

// DefaultPath returns the cache path inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, DefaultFileName)
}

// =============================================================================
// SCAN CACHE
// =============================================================================

// CachedScan is a scan result with the time it was cached.
type CachedScan struct {
	model.ScanResult
	Stats    model.Stats
	CachedAt time.Time
}

// ScanCache stores scan results per user.
//
// ScanCache is safe for concurrent use.
type ScanCache struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the cache at path.
func Open(path string) (*ScanCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open scan cache: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("init metadata: %w", err)
	}

	return &ScanCache{db: db, path: path, now: time.Now}, nil
}

// Path returns the database path.
func (c *ScanCache) Path() string {
	return c.path
}

// Close closes the database.
func (c *ScanCache) Close() error {
	return c.db.Close()
}

// scanKey identifies a scan: the backend id when present, otherwise a hash
// of target and creation time.
func scanKey(scan model.ScanResult) string {
	if scan.ID != "" {
		return scan.ID
	}
	sum := sha256.Sum256([]byte(scan.TargetURL + "|" + scan.CreatedAt.Time.UTC().Format(time.RFC3339Nano)))
	return "h:" + hex.EncodeToString(sum[:8])
}

func userKey(userID string) string {
	if userID == "" {
		return AnonymousUser
	}
	return userID
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

const upsertScan = `
INSERT INTO scans (user_id, scan_key, target_url, created_at, critical, high, medium, low, vulnerabilities, cached_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, scan_key) DO UPDATE SET
    target_url = excluded.target_url,
    created_at = excluded.created_at,
    critical = excluded.critical,
    high = excluded.high,
    medium = excluded.medium,
    low = excluded.low,
    vulnerabilities = excluded.vulnerabilities,
    cached_at = excluded.cached_at
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (c *ScanCache) put(ctx context.Context, ex execer, user string, scan model.ScanResult) error {
	vulns := scan.Vulnerabilities
	if vulns == nil {
		vulns = []model.Vulnerability{}
	}
	data, err := json.Marshal(vulns)
	if err != nil {
		return fmt.Errorf("encode vulnerabilities: %w", err)
	}
	stats := model.ComputeStats(scan.Vulnerabilities)
	_, err = ex.ExecContext(ctx, upsertScan,
		user, scanKey(scan), scan.TargetURL, millis(scan.CreatedAt.Time),
		stats.Critical, stats.High, stats.Medium, stats.Low,
		string(data), c.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	return nil
}

// Put caches one scan for userID ("" is the anonymous user).
func (c *ScanCache) Put(ctx context.Context, userID string, scan model.ScanResult) error {
	return c.put(ctx, c.db, userKey(userID), scan)
}

// ReplaceHistory replaces every cached scan of userID with scans.
func (c *ScanCache) ReplaceHistory(ctx context.Context, userID string, scans []model.ScanResult) error {
	user := userKey(userID)
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM scans WHERE user_id = ?", user); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	for _, scan := range scans {
		if err := c.put(ctx, tx, user, scan); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const selectScans = `
SELECT scan_key, target_url, created_at, critical, high, medium, low, vulnerabilities, cached_at
FROM scans WHERE user_id = ?
ORDER BY created_at DESC, cached_at DESC
`

// History returns the cached scans of userID, newest first.
func (c *ScanCache) History(ctx context.Context, userID string) ([]CachedScan, error) {
	rows, err := c.db.QueryContext(ctx, selectScans, userKey(userID))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []CachedScan
	for rows.Next() {
		var (
			key, target, vulnsJSON string
			created, cached        int64
			cs                     CachedScan
		)
		if err := rows.Scan(&key, &target, &created, &cs.Stats.Critical, &cs.Stats.High,
			&cs.Stats.Medium, &cs.Stats.Low, &vulnsJSON, &cached); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(vulnsJSON), &cs.Vulnerabilities); err != nil {
			return nil, fmt.Errorf("decode vulnerabilities: %w", err)
		}
		if len(key) < 2 || key[:2] != "h:" {
			cs.ID = key
		}
		cs.TargetURL = target
		if created != 0 {
			cs.CreatedAt = model.NewTimestamp(time.UnixMilli(created).UTC())
		}
		cs.Stats.Other = len(cs.Vulnerabilities) - cs.Stats.Critical - cs.Stats.High - cs.Stats.Medium - cs.Stats.Low
		cs.CachedAt = time.UnixMilli(cached)
		out = append(out, cs)
	}
	return out, rows.Err()
}

// Latest returns the newest cached scan of userID.
func (c *ScanCache) Latest(ctx context.Context, userID string) (*CachedScan, error) {
	scans, err := c.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(scans) == 0 {
		return nil, ErrNoScans
	}
	return &scans[0], nil
}

// Clear removes every cached scan of userID.
func (c *ScanCache) Clear(ctx context.Context, userID string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM scans WHERE user_id = ?", userKey(userID)); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
