// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package validate checks user input before it is sent to a backend:
// scan targets, sign-up and sign-in forms, password resets and profile edits.
// Messages are the ones shown next to the offending field.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// =============================================================================
// ERRORS
// =============================================================================

// FieldError is a validation failure for one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is a collection of field errors, in form order.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Error())
	}
	return strings.Join(msgs, "; ")
}

// For returns the message for field, or "".
func (e Errors) For(field string) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// orNil returns nil for an empty collection so callers can test err != nil.
func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// =============================================================================
// RULES
// =============================================================================

// Field-level messages.
const (
	MsgURLRequired      = "URL is required"
	MsgURLInvalid       = "Please enter a valid URL"
	MsgUserNameRequired = "User name is required"
	MsgUserNameShort    = "The minimum length for user name is 3 characters"
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Invalid email"
	MsgPasswordRequired = "Password is required"
	MsgPasswordShort    = "The minimum length for password is 8 characters"
	MsgPasswordWeak     = "Password must contain uppercase, lowercase, number and special character"
	MsgPasswordMismatch = "Passwords do not match"
	MsgTermsRequired    = "You must accept the Terms of Service and Privacy Policy"
	MsgOTPRequired      = "OTP is required"
)

// Minimum lengths.
const (
	MinUserNameLength = 3
	MinPasswordLength = 8
)

// passwordSpecials are the characters that satisfy the special-character rule.
const passwordSpecials = `!@#$%^&*()-_=+{};:,<.>/?\|[]`

var (
	// urlPattern accepts http(s) URLs whose host has a dotted name ending in a
	// letters-only TLD, with optional port, path, query and fragment.
	urlPattern = regexp.MustCompile(
		`^(https?://)(?:[\w-]+\.)+[a-z]{2,}(?::\d+)?` +
			`(?:/[\w\-.~!$&'()*+,;=:@%]*)*` +
			`(?:\?[\w\-.~!$&'()*+,;=:@%/?]*)?` +
			`(?:#[\w\-.~!$&'()*+,;=:@%/?]*)?$`)

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ScanURL checks a scan target. The input is trimmed first.
func ScanURL(raw string) error {
	u := strings.TrimSpace(raw)
	if u == "" {
		return FieldError{Field: "url", Message: MsgURLRequired}
	}
	if !urlPattern.MatchString(u) {
		return FieldError{Field: "url", Message: MsgURLInvalid}
	}
	return nil
}

// Email checks an email address.
func Email(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return FieldError{Field: "email", Message: MsgEmailRequired}
	}
	if !emailPattern.MatchString(email) {
		return FieldError{Field: "email", Message: MsgEmailInvalid}
	}
	return nil
}

// UserName checks a display name.
func UserName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return FieldError{Field: "userName", Message: MsgUserNameRequired}
	}
	if len([]rune(name)) < MinUserNameLength {
		return FieldError{Field: "userName", Message: MsgUserNameShort}
	}
	return nil
}

// Password checks the password policy: at least 8 characters with a
// lowercase letter, an uppercase letter, a digit and a special character.
func Password(pw string) error {
	return passwordField("password", pw)
}

func passwordField(field, pw string) error {
	if pw == "" {
		return FieldError{Field: field, Message: MsgPasswordRequired}
	}
	if len([]rune(pw)) < MinPasswordLength {
		return FieldError{Field: field, Message: MsgPasswordShort}
	}
	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return FieldError{Field: field, Message: MsgPasswordWeak}
	}
	return nil
}

// =============================================================================
// FORMS
// =============================================================================

// SignUpForm is the registration form.
type SignUpForm struct {
	UserName        string
	Email           string
	Password        string
	ConfirmPassword string
	AcceptTerms     bool
}

// Validate returns every failing field, or nil.
func (f SignUpForm) Validate() error {
	var errs Errors
	add := func(err error) {
		if fe, ok := err.(FieldError); ok {
			errs = append(errs, fe)
		}
	}
	add(UserName(f.UserName))
	add(Email(f.Email))
	add(Password(f.Password))
	if f.Password != f.ConfirmPassword {
		errs = append(errs, FieldError{Field: "confirmPassword", Message: MsgPasswordMismatch})
	}
	if !f.AcceptTerms {
		errs = append(errs, FieldError{Field: "acceptTerms", Message: MsgTermsRequired})
	}
	return errs.orNil()
}

// SignInForm is the sign-in form.
type SignInForm struct {
	Email    string
	Password string
}

// Validate returns every failing field, or nil.
func (f SignInForm) Validate() error {
	var errs Errors
	if fe, ok := Email(f.Email).(FieldError); ok {
		errs = append(errs, fe)
	}
	if fe, ok := Password(f.Password).(FieldError); ok {
		errs = append(errs, fe)
	}
	return errs.orNil()
}

// ResetForm is the second step of the forgot-password flow.
type ResetForm struct {
	Email           string
	OTP             string
	NewPassword     string
	ConfirmPassword string
}

// Validate returns every failing field, or nil.
func (f ResetForm) Validate() error {
	var errs Errors
	if fe, ok := Email(f.Email).(FieldError); ok {
		errs = append(errs, fe)
	}
	if strings.TrimSpace(f.OTP) == "" {
		errs = append(errs, FieldError{Field: "otp", Message: MsgOTPRequired})
	}
	if fe, ok := passwordField("newPassword", f.NewPassword).(FieldError); ok {
		errs = append(errs, fe)
	}
	if f.NewPassword != f.ConfirmPassword {
		errs = append(errs, FieldError{Field: "confirmPassword", Message: MsgPasswordMismatch})
	}
	return errs.orNil()
}
