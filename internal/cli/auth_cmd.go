// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Account commands: sign in and out, registration, password
// reset and the profile.
//
// Examples:
//   vscan login --email ada@example.com
//   vscan signup --name ada --email ada@example.com --accept-terms
//   vscan forgot-password ada@example.com
//   vscan reset-password ada@example.com --otp 123456
//   vscan profile rename "Ada L"
//   vscan profile avatar ./me.png
//
// Passwords are never taken from flags. They are prompted without echo, or
// read line by line from piped stdin.

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/validate"
)

// =============================================================================
// SIGN IN / OUT
// =============================================================================

func (e *Env) handleLogin(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw)
	email, err := e.prompt("Email", p.FlagOrDefault("email", p.Positional(0)))
	if err != nil {
		return err
	}
	password, err := e.promptPassword("Password")
	if err != nil {
		return err
	}

	form := validate.SignInForm{Email: email, Password: password}
	if err := form.Validate(); err != nil {
		return err
	}

	token, err := e.Client.SignIn(ctx, api.SignInRequest{Email: email, Password: password})
	if err != nil {
		return apiError("login", "sign in", err)
	}
	if err := e.Session.SignIn(token); err != nil {
		return NewCommandError("login", "store token", "the token could not be saved", err)
	}

	if e.Args.JSON {
		return e.printJSON("login", e.whoami(ctx))
	}
	e.out("%s Signed in as %s", SuccessStyle.Render("[OK]"), model.MaskEmail(email))
	return nil
}

func (e *Env) handleLogout(_ context.Context) error {
	wasSignedIn := e.Session.SignedIn()
	if err := e.Session.SignOut(); err != nil {
		return NewCommandError("logout", "remove token", "the token file could not be removed", err)
	}
	if e.Args.JSON {
		return e.printJSON("logout", map[string]bool{"signed_out": wasSignedIn})
	}
	if !wasSignedIn {
		e.out("%s", DimStyle.Render("Not signed in."))
		return nil
	}
	e.out("%s Signed out", SuccessStyle.Render("[OK]"))
	return nil
}

// =============================================================================
// REGISTRATION AND PASSWORD RESET
// =============================================================================

func (e *Env) handleSignup(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw, "accept-terms")
	name, err := e.prompt("User name", p.Flag("name"))
	if err != nil {
		return err
	}
	email, err := e.prompt("Email", p.Flag("email"))
	if err != nil {
		return err
	}
	password, err := e.promptPassword("Password")
	if err != nil {
		return err
	}
	confirm, err := e.promptPassword("Confirm password")
	if err != nil {
		return err
	}

	accept := p.BoolFlag("accept-terms")
	if !accept && e.Interactive {
		answer, err := e.prompt("Accept the Terms of Service and Privacy Policy? [y/N]", "")
		if err != nil {
			return err
		}
		accept, _ = ParseBoolString(answer)
	}

	form := validate.SignUpForm{
		UserName:        name,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
		AcceptTerms:     accept,
	}
	if err := form.Validate(); err != nil {
		return err
	}

	if err := e.Client.SignUp(ctx, api.SignUpRequest{UserName: name, Email: email, Password: password}); err != nil {
		return apiError("signup", "register", err)
	}

	if e.Args.JSON {
		return e.printJSON("signup", map[string]string{"user_name": name, "email": email})
	}
	e.out("%s Account created for %s. Run 'vscan login' to sign in.", SuccessStyle.Render("[OK]"), model.MaskEmail(email))
	return nil
}

func (e *Env) handleForgotPassword(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw)
	email, err := e.prompt("Email", p.FlagOrDefault("email", p.Positional(0)))
	if err != nil {
		return err
	}
	if err := validate.Email(email); err != nil {
		return err
	}
	if err := e.Client.ForgetPassword(ctx, email); err != nil {
		return apiError("forgot-password", "request code", err)
	}

	if e.Args.JSON {
		return e.printJSON("forgot-password", map[string]string{"email": email})
	}
	e.out("%s A reset code was sent to %s", SuccessStyle.Render("[OK]"), model.MaskEmail(email))
	e.out("%s", DimStyle.Render("Run 'vscan reset-password' with the code to choose a new password."))
	return nil
}

func (e *Env) handleResetPassword(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw)
	email, err := e.prompt("Email", p.FlagOrDefault("email", p.Positional(0)))
	if err != nil {
		return err
	}
	otp, err := e.prompt("Reset code", p.Flag("otp"))
	if err != nil {
		return err
	}
	password, err := e.promptPassword("New password")
	if err != nil {
		return err
	}
	confirm, err := e.promptPassword("Confirm password")
	if err != nil {
		return err
	}

	form := validate.ResetForm{Email: email, OTP: otp, NewPassword: password, ConfirmPassword: confirm}
	if err := form.Validate(); err != nil {
		return err
	}
	req := api.ResetPasswordRequest{Email: email, OTP: otp, NewPassword: password}
	if err := e.Client.ResetPassword(ctx, req); err != nil {
		return apiError("reset-password", "reset", err)
	}

	if e.Args.JSON {
		return e.printJSON("reset-password", map[string]string{"email": email})
	}
	e.out("%s Password updated. Run 'vscan login' to sign in.", SuccessStyle.Render("[OK]"))
	return nil
}

// =============================================================================
// PROFILE
// =============================================================================

// whoami describes the session, fetching the profile when signed in. A
// profile that cannot be fetched is left out.
func (e *Env) whoami(ctx context.Context) WhoamiData {
	data := WhoamiData{SignedIn: e.Session.SignedIn(), UserID: e.Session.UserID()}
	if c := e.Session.Claims(); c != nil && !c.ExpiresAt.IsZero() {
		data.ExpiresAt = c.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if !data.SignedIn {
		return data
	}
	profile, err := e.Client.GetProfile(ctx)
	if err != nil {
		e.Logger.Debug("profile unavailable", "err", err)
		data.SignedIn = e.Session.SignedIn()
		return data
	}
	e.Session.SetProfile(profile)
	data.UserName = profile.UserName
	data.Email = profile.Email
	data.AvatarURL = profile.AvatarURL()
	return data
}

func (e *Env) handleWhoami(ctx context.Context) error {
	data := e.whoami(ctx)
	if e.Args.JSON {
		return e.printJSON("whoami", data)
	}
	if !data.SignedIn {
		fmt.Fprintln(e.Stdout, DimStyle.Render("Not signed in."))
		return nil
	}
	e.printWhoami(data)
	return nil
}

func (e *Env) printWhoami(data WhoamiData) {
	w := e.Stdout
	if data.UserName != "" {
		fmt.Fprintln(w, RenderField("User:", data.UserName))
	}
	if data.Email != "" {
		fmt.Fprintln(w, RenderField("Email:", model.MaskEmail(data.Email)))
	}
	fmt.Fprintln(w, RenderField("User ID:", data.UserID))
	if data.AvatarURL != "" {
		fmt.Fprintln(w, RenderField("Avatar:", data.AvatarURL))
	}
	if data.ExpiresAt != "" {
		fmt.Fprintln(w, RenderField("Token expires:", data.ExpiresAt))
	}
}

func (e *Env) handleProfile(ctx context.Context) error {
	p := NewArgParser(e.Args.Raw)
	sub := p.Subcommand()
	if sub == "" {
		sub = "show"
	}

	switch sub {
	case "show":
		if !e.Session.SignedIn() {
			return api.ErrSignInRequired
		}
		profile, err := e.Client.GetProfile(ctx)
		if err != nil {
			return apiError("profile", "show", err)
		}
		e.Session.SetProfile(profile)
		data := WhoamiData{
			SignedIn:  true,
			UserID:    e.Session.UserID(),
			UserName:  profile.UserName,
			Email:     profile.Email,
			AvatarURL: profile.AvatarURL(),
		}
		if e.Args.JSON {
			return e.printJSON("profile", data)
		}
		fmt.Fprintln(e.Stdout, TitleStyle.Render("Profile"))
		e.printWhoami(data)
		return nil

	case "rename":
		name := JoinPositionalArgs(p, 1)
		if err := validate.UserName(name); err != nil {
			return err
		}
		if err := e.Client.UpdateUserName(ctx, name); err != nil {
			return apiError("profile", "rename", err)
		}
		if e.Args.JSON {
			return e.printJSON("profile", map[string]string{"user_name": name})
		}
		e.out("%s User name changed to %s", SuccessStyle.Render("[OK]"), name)
		return nil

	case "avatar":
		path := p.Positional(1)
		if path == "" {
			return ErrMissingArgument("file", "vscan profile avatar ./me.png")
		}
		// The old image is replaced, so its id is needed first.
		profile, err := e.Client.GetProfile(ctx)
		if err != nil {
			return apiError("profile", "avatar", err)
		}
		oldID := ""
		if profile.UserImg != nil {
			oldID = profile.UserImg.PublicID
		}
		if err := e.Client.SetAvatarPath(ctx, path, oldID); err != nil {
			return apiError("profile", "avatar", err)
		}
		if e.Args.JSON {
			return e.printJSON("profile", map[string]string{"avatar": path})
		}
		e.out("%s Avatar updated", SuccessStyle.Render("[OK]"))
		return nil
	}
	return ErrUnknownSubcommand("profile", sub, []string{"show", "rename", "avatar"})
}
