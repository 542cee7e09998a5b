// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/render"
	"blogapi/internal/session"
)

// totpIssuer is shown in authenticator apps next to the account name.
const totpIssuer = "BlogAPI"

const (
	msgBadCredentials = "Unable to log in with provided credentials."
	msgOTPRequired    = "A one-time password is required."
	msgOTPInvalid     = "Invalid one-time password."
)

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	users    UserRepo
	sessions SessionStore
}

// NewAuth creates a new Auth handler group.
func NewAuth(users UserRepo, sessions SessionStore) *Auth {
	return &Auth{
		users:    users,
		sessions: sessions,
	}
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OTP      string `json:"otp" validate:"omitempty,len=6,numeric"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type verifyInput struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type setupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	QRPNG      string `json:"qr_png"`
}

// Login exchanges credentials for an API token. Users with two-factor
// authentication enabled must also supply a current TOTP code.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	in.OTP = strings.TrimSpace(in.OTP)
	if errs := validateStruct(in); errs != nil {
		render.Fields(w, errs)
		return
	}

	user, err := a.users.FindByEmail(r.Context(), in.Email)
	if err != nil {
		render.ServerError(w, r, err)
		return
	}
	if user == nil || !a.users.CheckPassword(user, in.Password) {
		slog.Warn("login failed", "email", in.Email)
		render.Detail(w, http.StatusUnauthorized, msgBadCredentials)
		return
	}

	if user.RequiresOTP() {
		if in.OTP == "" {
			render.Detail(w, http.StatusUnauthorized, msgOTPRequired)
			return
		}
		if !totp.Validate(in.OTP, *user.TOTPSecret) {
			slog.Warn("login otp rejected", "user_id", user.ID)
			render.Detail(w, http.StatusUnauthorized, msgOTPInvalid)
			return
		}
	}

	token, err := a.sessions.Create(r.Context(), &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		render.ServerError(w, r, err)
		return
	}

	slog.Info("user logged in", "user_id", user.ID)
	render.JSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout revokes the token that authenticated the request.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), middleware.TokenFromCtx(r.Context())); err != nil {
		render.ServerError(w, r, err)
		return
	}
	render.NoContent(w)
}

// Me returns the authenticated user.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	render.JSON(w, http.StatusOK, user)
}

// TwoFASetup generates a new TOTP secret for the requester and returns it
// along with a QR code. The secret is inactive until confirmed through
// TwoFAVerify.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	if user.TOTPEnabled {
		render.Detail(w, http.StatusConflict, "Two-factor authentication is already enabled.")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		render.ServerError(w, r, err)
		return
	}

	if err := a.users.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		render.ServerError(w, r, err)
		return
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		render.ServerError(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, setupResponse{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRPNG:      base64.StdEncoding.EncodeToString(qrPNG),
	})
}

// TwoFAVerify confirms a pending TOTP secret with a current code and
// enables two-factor login for the requester.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	var in verifyInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.Code = strings.TrimSpace(in.Code)
	if errs := validateStruct(in); errs != nil {
		render.Fields(w, errs)
		return
	}

	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		render.Detail(w, http.StatusBadRequest, "Two-factor setup has not been started.")
		return
	}

	if !totp.Validate(in.Code, *user.TOTPSecret) {
		render.Fields(w, render.FieldErrors{"code": {"Invalid code."}})
		return
	}

	if !user.TOTPEnabled {
		if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
			render.ServerError(w, r, err)
			return
		}
		slog.Info("two-factor enabled", "user_id", user.ID)
	}

	render.NoContent(w)
}

// currentUser loads the requester's account. A token whose user has since
// been deleted is treated as unauthenticated.
func (a *Auth) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		render.Unauthorized(w)
		return nil, false
	}

	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil {
		render.ServerError(w, r, err)
		return nil, false
	}
	if user == nil {
		render.Unauthorized(w)
		return nil, false
	}
	return user, true
}
