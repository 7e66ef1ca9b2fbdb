// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures exchanged with the scanner backends.
//
// The backend owns every entity here. The client only mirrors what the API
// returns and never treats its local copy as authoritative.
//
// # Key Types
//
//   - Conversation: titled, timestamped sequence of chat messages
//   - Message: single chat message with optional reply reference, attached file,
//     and edit history (Versions, oldest first)
//   - FileRef / FilePreview: uploaded document references
//   - ScanResult / Vulnerability: findings returned by the scanner integration
//   - Profile: the signed-in user's account information
//
// # Usage
//
// Resolve which content to show for a message whose history is being browsed:
//
//	content := msg.ContentAt(versionIdx) // 0 is the current content
//
// Count findings for the results dashboard:
//
//	stats := model.ComputeStats(scan.Vulnerabilities)
//	fmt.Printf("%d critical, %d high\n", stats.Critical, stats.High)
package model
