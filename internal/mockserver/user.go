// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/model"
	"github.com/jeranaias/vscan-tui/internal/validate"
)

// otpOpts shapes password-reset codes: six digits valid for five minutes,
// with one period of clock skew accepted.
var otpOpts = totp.ValidateOpts{
	Period:    300,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// userRoutes registers the user and scanner backend endpoints.
func (s *Server) userRoutes(e *gin.Engine) {
	e.GET("/images/:id", s.handleImage)

	js := e.Group("/", bodyLimit(MaxRequestBodySize))
	js.POST("/user/signUp", s.handleSignUp)
	js.POST("/user/signIn", s.handleSignIn)
	js.PATCH("/user/forgetPassword", s.handleForgetPassword)
	js.PATCH("/user/resetPassword", s.handleResetPassword)

	js.GET("/user/getProfile", s.userAuth(true), s.handleGetProfile)
	js.PUT("/user/updateUserProfile", s.userAuth(true), s.handleUpdateProfile)
	js.GET("/vulns/getScanHistoryForSpecificUser", s.userAuth(true), s.handleScanHistory)

	js.POST("/integration/IntegrationApi", s.userAuth(false), s.handleSubmitScan)
	js.GET("/integration/IntegrationApi", s.userAuth(false), s.handleLatestScan)

	img := e.Group("/", bodyLimit(MaxUploadSize), s.userAuth(true))
	img.POST("/user/uploadImg", s.handleAvatar)
	img.PATCH("/user/updateImg", s.handleAvatar)
}

// userAuth reads the token from the accesstoken header or a Bearer header.
// When required is false an absent or bad token leaves the request
// anonymous instead of rejecting it.
func (s *Server) userAuth(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader("accesstoken"))
		if t, ok := strings.CutPrefix(token, "accessToken_"); ok {
			token = t
		}
		if token == "" {
			token, _ = strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
			token = strings.TrimSpace(token)
		}

		if token == "" {
			if required {
				userFail(c, http.StatusUnauthorized, "Please login first")
				return
			}
			c.Next()
			return
		}

		uid, err := s.tokens.Verify(token)
		if err == nil && !s.store.Exists(uid) {
			err = ErrUserNotFound
		}
		if err != nil {
			if !required {
				c.Next()
				return
			}
			if errors.Is(err, ErrUserNotFound) {
				userFail(c, http.StatusNotFound, "User not found")
			} else {
				userFail(c, http.StatusUnauthorized, "Unauthorized")
			}
			return
		}
		c.Set(ctxUserID, uid)
		c.Next()
	}
}

// userFail aborts with the user backend's error envelope.
func userFail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "errMsg": msg})
}

// fieldMessage returns the human message of a validation error.
func fieldMessage(err error) string {
	var fe validate.FieldError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}

// ============================================================================
// ACCOUNT
// ============================================================================

func (s *Server) handleSignUp(c *gin.Context) {
	var req api.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		userFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, err := range []error{
		validate.UserName(req.UserName),
		validate.Email(req.Email),
		validate.Password(req.Password),
	} {
		if err != nil {
			userFail(c, http.StatusBadRequest, fieldMessage(err))
			return
		}
	}

	if _, err := s.store.CreateAccount(req.UserName, req.Email, req.Password); err != nil {
		if errors.Is(err, ErrEmailExists) {
			userFail(c, http.StatusConflict, "Email already exists")
			return
		}
		s.logger.Error("create account", "err", err)
		userFail(c, http.StatusInternalServerError, "Something went wrong")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User registered successfully"})
}

func (s *Server) handleSignIn(c *gin.Context) {
	var req api.SignInRequest
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		userFail(c, http.StatusBadRequest, "Email and password are required")
		return
	}
	uid, err := s.store.Authenticate(req.Email, req.Password)
	if err != nil {
		userFail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	token, err := s.tokens.Issue(uid)
	if err != nil {
		s.logger.Error("issue token", "err", err)
		userFail(c, http.StatusInternalServerError, "Something went wrong")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "message": "Login successful"})
}

func (s *Server) handleForgetPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := validate.Email(req.Email); err != nil {
		userFail(c, http.StatusBadRequest, fieldMessage(err))
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "vscan",
		AccountName: req.Email,
		Period:      otpOpts.Period,
		Digits:      otpOpts.Digits,
		Algorithm:   otpOpts.Algorithm,
	})
	if err != nil {
		s.logger.Error("generate otp secret", "err", err)
		userFail(c, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := s.store.SetResetSecret(req.Email, key.Secret()); err != nil {
		userFail(c, http.StatusNotFound, "User not found")
		return
	}
	code, err := totp.GenerateCodeCustom(key.Secret(), time.Now(), otpOpts)
	if err != nil {
		s.logger.Error("generate otp code", "err", err)
		userFail(c, http.StatusInternalServerError, "Something went wrong")
		return
	}

	s.logger.Info("password reset code", "email", req.Email, "code", code)
	if s.opts.OnResetCode != nil {
		s.opts.OnResetCode(req.Email, code)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP sent to your email"})
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req api.ResetPasswordRequest
	_ = c.ShouldBindJSON(&req)
	if err := validate.Email(req.Email); err != nil {
		userFail(c, http.StatusBadRequest, fieldMessage(err))
		return
	}
	if strings.TrimSpace(req.OTP) == "" {
		userFail(c, http.StatusBadRequest, validate.MsgOTPRequired)
		return
	}
	if err := validate.Password(req.NewPassword); err != nil {
		userFail(c, http.StatusBadRequest, fieldMessage(err))
		return
	}

	secret, err := s.store.ResetSecret(req.Email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		userFail(c, http.StatusNotFound, "User not found")
		return
	case err != nil:
		userFail(c, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(req.OTP), secret, time.Now(), otpOpts)
	if err != nil || !ok {
		userFail(c, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}
	if err := s.store.ResetPassword(req.Email, req.NewPassword); err != nil {
		s.logger.Error("reset password", "err", err)
		userFail(c, http.StatusInternalServerError, "Something went wrong")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successfully"})
}

// ============================================================================
// PROFILE
// ============================================================================

func (s *Server) handleGetProfile(c *gin.Context) {
	p, err := s.store.Profile(c.GetString(ctxUserID))
	if err != nil {
		userFail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req struct {
		UserName string `json:"userName"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := validate.UserName(req.UserName); err != nil {
		userFail(c, http.StatusBadRequest, fieldMessage(err))
		return
	}
	if err := s.store.RenameUser(c.GetString(ctxUserID), req.UserName); err != nil {
		userFail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated successfully"})
}

// handleAvatar serves both first upload and replacement. Images are kept in
// memory and served back from /images/:id on this backend.
func (s *Server) handleAvatar(c *gin.Context) {
	file, _, err := c.Request.FormFile("img")
	if err != nil {
		userFail(c, http.StatusBadRequest, "Image is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		userFail(c, http.StatusBadRequest, "Image is required")
		return
	}
	ctype := http.DetectContentType(data)
	if !strings.HasPrefix(ctype, "image/") {
		userFail(c, http.StatusBadRequest, "Only image files are allowed")
		return
	}

	uid := c.GetString(ctxUserID)
	if old := c.PostForm("oldPublicId"); old != "" {
		if p, err := s.store.Profile(uid); err == nil && (p.UserImg == nil || p.UserImg.PublicID != old) {
			s.logger.Debug("avatar replace with stale public id", "old", old)
		}
	}

	publicID := "avatar_" + uuid.NewString()
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	url := scheme + "://" + c.Request.Host + "/images/" + publicID
	if err := s.store.SetAvatar(uid, publicID, url, data, ctype); err != nil {
		userFail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Image uploaded successfully",
		"data":    model.Image{SecureURL: url, PublicID: publicID},
	})
}

func (s *Server) handleImage(c *gin.Context) {
	data, ctype, ok := s.store.Image(c.Param("id"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, ctype, data)
}

// ============================================================================
// SCANS
// ============================================================================

func (s *Server) handleSubmitScan(c *gin.Context) {
	var req struct {
		TargetURL string `json:"TargetUrl"`
	}
	_ = c.ShouldBindJSON(&req)
	target := strings.TrimSpace(req.TargetURL)
	if err := validate.ScanURL(target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fieldMessage(err)})
		return
	}

	uid := c.GetString(ctxUserID)
	scan := scanTarget(target, model.Now())
	s.store.AddScan(uid, scan)
	s.logger.Debug("scan complete", "target", target, "findings", len(scan.Vulnerabilities), "user", uid)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": scan})
}

func (s *Server) handleLatestScan(c *gin.Context) {
	scan, err := s.store.LatestScan(c.GetString(ctxUserID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No scan results found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": scan})
}

func (s *Server) handleScanHistory(c *gin.Context) {
	history, err := s.store.ScanHistory(c.GetString(ctxUserID))
	if err != nil {
		userFail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": history})
}
