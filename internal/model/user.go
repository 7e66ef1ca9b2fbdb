// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// Image is a hosted avatar image.
type Image struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// Profile is the signed-in user's account information.
type Profile struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	UserImg  *Image `json:"userImg,omitempty"`
}

// AvatarURL returns the avatar URL, or "" when none is set.
func (p *Profile) AvatarURL() string {
	if p == nil || p.UserImg == nil {
		return ""
	}
	return p.UserImg.SecureURL
}

// AvatarID returns the hosted image id used when replacing the avatar.
func (p *Profile) AvatarID() string {
	if p == nil || p.UserImg == nil {
		return ""
	}
	return p.UserImg.PublicID
}

// MaskEmail hides all but the first three characters of the local part:
// "alice.smith@example.com" becomes "ali********@example.com".
// Local parts of three characters or fewer are masked entirely.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	local, domain := []rune(email[:at]), email[at:]
	if len(local) <= 3 {
		return strings.Repeat("*", len(local)) + domain
	}
	return string(local[:3]) + strings.Repeat("*", len(local)-3) + domain
}
