// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// Schema creates the scan cache tables.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- One row per scan per user; vulnerabilities are stored as a JSON array
CREATE TABLE IF NOT EXISTS scans (
    user_id TEXT NOT NULL,
    scan_key TEXT NOT NULL,
    target_url TEXT NOT NULL,
    created_at INTEGER NOT NULL,   -- Unix milliseconds, 0 when unknown
    critical INTEGER NOT NULL DEFAULT 0,
    high INTEGER NOT NULL DEFAULT 0,
    medium INTEGER NOT NULL DEFAULT 0,
    low INTEGER NOT NULL DEFAULT 0,
    vulnerabilities TEXT NOT NULL,
    cached_at INTEGER NOT NULL,    -- Unix milliseconds
    PRIMARY KEY (user_id, scan_key)
);

CREATE INDEX IF NOT EXISTS idx_scans_user_created ON scans(user_id, created_at DESC);
`

// InitMetadata records the schema version on first open.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
