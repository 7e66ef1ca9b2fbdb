// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dashboard provides the scanner view of the TUI: a target URL
// input, per-severity statistics for the latest scan, the findings table,
// and the locally cached scan history.
package dashboard
