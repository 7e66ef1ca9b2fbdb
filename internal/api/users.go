// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jeranaias/vscan-tui/internal/model"
)

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// SignUpRequest registers a new account.
type SignUpRequest struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest exchanges credentials for a token.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetPasswordRequest completes a password reset with the emailed OTP.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"OTP"`
	NewPassword string `json:"newPassword"`
}

// envelope is the user backend's common response wrapper.
type envelope struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
	ErrMsg  string `json:"errMsg,omitempty"`
}

// check turns a 2xx response with success=false into an APIError.
func (e envelope) check(cl call, fallback string) error {
	if e.Success {
		return nil
	}
	msg := e.ErrMsg
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = fallback
	}
	return &APIError{Status: http.StatusOK, Message: msg, Method: cl.method, Path: cl.path}
}

type profileEnvelope struct {
	envelope
	Data *model.Profile `json:"data"`
}

// =============================================================================
// ACCOUNT
// =============================================================================

// SignUp registers an account. Backend rejections (duplicate email, weak
// password) come back with the backend's errMsg.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) error {
	cl := call{backend: userBackend, method: http.MethodPost, path: "/user/signUp", body: req}
	var env envelope
	if err := c.do(ctx, cl, &env); err != nil {
		return err
	}
	return env.check(cl, "Registration failed")
}

// SignIn exchanges credentials for a bearer token. The caller stores it.
func (c *Client) SignIn(ctx context.Context, req SignInRequest) (string, error) {
	cl := call{backend: userBackend, method: http.MethodPost, path: "/user/signIn", body: req}
	var env envelope
	if err := c.do(ctx, cl, &env); err != nil {
		return "", err
	}
	if err := env.check(cl, "Sign in failed"); err != nil {
		return "", err
	}
	if env.Token == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "sign in: missing token in response"}
	}
	return env.Token, nil
}

// ForgetPassword asks the backend to email a one-time reset code.
func (c *Client) ForgetPassword(ctx context.Context, email string) error {
	cl := call{backend: userBackend, method: http.MethodPatch, path: "/user/forgetPassword", body: map[string]string{"email": email}}
	var env envelope
	if err := c.do(ctx, cl, &env); err != nil {
		return err
	}
	return env.check(cl, "Something went wrong")
}

// ResetPassword sets a new password using the emailed code.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	cl := call{backend: userBackend, method: http.MethodPatch, path: "/user/resetPassword", body: req}
	var env envelope
	if err := c.do(ctx, cl, &env); err != nil {
		return err
	}
	return env.check(cl, "Something went wrong")
}

// =============================================================================
// PROFILE
// =============================================================================

// GetProfile fetches the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*model.Profile, error) {
	cl := call{backend: userBackend, method: http.MethodGet, path: "/user/getProfile", auth: true}
	var env profileEnvelope
	if err := c.do(ctx, cl, &env); err != nil {
		return nil, err
	}
	if err := env.check(cl, "Failed to load profile"); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "get profile: missing data in response"}
	}
	return env.Data, nil
}

// UpdateUserName changes the display name.
func (c *Client) UpdateUserName(ctx context.Context, userName string) error {
	cl := call{
		backend: userBackend,
		method:  http.MethodPut,
		path:    "/user/updateUserProfile",
		body:    map[string]string{"userName": userName},
		auth:    true,
	}
	var env envelope
	if err := c.do(ctx, cl, &env); err != nil {
		return err
	}
	return env.check(cl, "Failed to update profile")
}

// SetAvatar uploads a new avatar. When oldPublicID is set the existing hosted
// image is replaced, otherwise a first image is uploaded.
func (c *Client) SetAvatar(ctx context.Context, filename string, content io.Reader, oldPublicID string) error {
	fields := map[string]string{}
	method, endpoint := http.MethodPost, "/user/uploadImg"
	if oldPublicID != "" {
		fields["oldPublicId"] = oldPublicID
		method, endpoint = http.MethodPatch, "/user/updateImg"
	}

	body, contentType, err := multipartBody(fields, "img", filename, content)
	if err != nil {
		return err
	}
	cl := call{
		backend:     userBackend,
		method:      method,
		path:        endpoint,
		raw:         body,
		contentType: contentType,
		auth:        true,
	}
	var env envelope
	if err := c.do(ctx, cl, &env); err != nil {
		return err
	}
	return env.check(cl, "Failed to update photo")
}

// SetAvatarPath uploads an avatar image from disk.
func (c *Client) SetAvatarPath(ctx context.Context, path, oldPublicID string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return c.SetAvatar(ctx, filepath.Base(path), f, oldPublicID)
}
