// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"

	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/session"
)

type fakeUsers struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*models.User
	passwords map[uuid.UUID]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:     make(map[uuid.UUID]*models.User),
		passwords: make(map[uuid.UUID]string),
	}
}

func (f *fakeUsers) add(email, password string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: uuid.New(), Email: email, DisplayName: "Test User"}
	f.users[u.ID] = u
	f.passwords[u.ID] = password
	return u
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.TOTPSecret = &secret
	u.TOTPEnabled = false
	return nil
}

func (f *fakeUsers) EnableTOTP(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id].TOTPEnabled = true
	return nil
}

func (f *fakeUsers) CheckPassword(user *models.User, password string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passwords[user.ID] == password
}

type authEnv struct {
	users    *fakeUsers
	sessions *session.Store
	h        *Auth
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	env := &authEnv{
		users:    newFakeUsers(),
		sessions: session.NewStore(client, time.Hour),
	}
	env.h = NewAuth(env.users, env.sessions)
	return env
}

// enableTOTP gives user an active TOTP secret and returns it.
func (e *authEnv) enableTOTP(t *testing.T, user *models.User) string {
	t.Helper()
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "test", AccountName: user.Email})
	if err != nil {
		t.Fatalf("generate totp: %v", err)
	}
	ctx := context.Background()
	e.users.SetTOTPSecret(ctx, user.ID, key.Secret())
	e.users.EnableTOTP(ctx, user.ID)
	return key.Secret()
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	return code
}

func staleCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	return code
}

func TestLogin_Success(t *testing.T) {
	env := newAuthEnv(t)
	user := env.users.add("alice@blogapi.local", "alice")

	rec := httptest.NewRecorder()
	env.h.Login(rec, newRequest(http.MethodPost, "/auth/login",
		`{"email":"Alice@blogapi.local","password":"alice"}`, uuid.Nil))
	assertStatus(t, rec, http.StatusOK)

	resp := decodeBody[loginResponse](t, rec)
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	if resp.User == nil || resp.User.ID != user.ID {
		t.Errorf("user = %+v, want %s", resp.User, user.ID)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response exposes password data")
	}

	sess, err := env.sessions.Get(context.Background(), resp.Token)
	if err != nil || sess == nil {
		t.Fatalf("token not stored: %v", err)
	}
	if sess.UserID != user.ID {
		t.Errorf("session user = %s, want %s", sess.UserID, user.ID)
	}
}

func TestLogin_Rejected(t *testing.T) {
	env := newAuthEnv(t)
	env.users.add("alice@blogapi.local", "alice")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"wrong password", `{"email":"alice@blogapi.local","password":"nope"}`, http.StatusUnauthorized},
		{"unknown email", `{"email":"mallory@blogapi.local","password":"alice"}`, http.StatusUnauthorized},
		{"missing email", `{"password":"alice"}`, http.StatusBadRequest},
		{"invalid email", `{"email":"alice","password":"alice"}`, http.StatusBadRequest},
		{"missing password", `{"email":"alice@blogapi.local"}`, http.StatusBadRequest},
		{"malformed json", `{"email":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.h.Login(rec, newRequest(http.MethodPost, "/auth/login", tt.body, uuid.Nil))
			assertStatus(t, rec, tt.want)
			if strings.Contains(rec.Body.String(), "token") {
				t.Error("rejected login returned a token")
			}
		})
	}
}

func TestLogin_TOTP(t *testing.T) {
	env := newAuthEnv(t)
	user := env.users.add("bob@blogapi.local", "bob")
	secret := env.enableTOTP(t, user)

	login := func(otp string) *httptest.ResponseRecorder {
		body := `{"email":"bob@blogapi.local","password":"bob"`
		if otp != "" {
			body += `,"otp":"` + otp + `"`
		}
		body += "}"
		rec := httptest.NewRecorder()
		env.h.Login(rec, newRequest(http.MethodPost, "/auth/login", body, uuid.Nil))
		return rec
	}

	rec := login("")
	assertStatus(t, rec, http.StatusUnauthorized)
	if got := decodeBody[map[string]string](t, rec)["detail"]; got != msgOTPRequired {
		t.Errorf("detail = %q, want %q", got, msgOTPRequired)
	}

	rec = login(staleCode(t, secret))
	assertStatus(t, rec, http.StatusUnauthorized)

	rec = login("12ab56")
	assertStatus(t, rec, http.StatusBadRequest)

	rec = login(currentCode(t, secret))
	assertStatus(t, rec, http.StatusOK)
}

func TestLogout(t *testing.T) {
	env := newAuthEnv(t)
	user := env.users.add("alice@blogapi.local", "alice")
	token, err := env.sessions.Create(context.Background(), testSession(user.ID))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := newRequest(http.MethodPost, "/auth/logout", "", user.ID)
	req = req.WithContext(context.WithValue(req.Context(), middleware.TokenKey, token))
	rec := httptest.NewRecorder()
	env.h.Logout(rec, req)
	assertStatus(t, rec, http.StatusNoContent)

	if sess, _ := env.sessions.Get(context.Background(), token); sess != nil {
		t.Error("token still valid after logout")
	}
}

func TestMe(t *testing.T) {
	env := newAuthEnv(t)
	user := env.users.add("alice@blogapi.local", "alice")

	rec := httptest.NewRecorder()
	env.h.Me(rec, newRequest(http.MethodGet, "/auth/me", "", user.ID))
	assertStatus(t, rec, http.StatusOK)
	if got := decodeBody[models.User](t, rec); got.Email != user.Email {
		t.Errorf("email = %q, want %q", got.Email, user.Email)
	}

	rec = httptest.NewRecorder()
	env.h.Me(rec, newRequest(http.MethodGet, "/auth/me", "", uuid.Nil))
	assertStatus(t, rec, http.StatusUnauthorized)

	rec = httptest.NewRecorder()
	env.h.Me(rec, newRequest(http.MethodGet, "/auth/me", "", uuid.New()))
	assertStatus(t, rec, http.StatusUnauthorized)
}

func TestTwoFASetupAndVerify(t *testing.T) {
	env := newAuthEnv(t)
	user := env.users.add("alice@blogapi.local", "alice")

	rec := httptest.NewRecorder()
	env.h.TwoFASetup(rec, newRequest(http.MethodPost, "/auth/2fa/setup", "", user.ID))
	assertStatus(t, rec, http.StatusOK)

	setup := decodeBody[setupResponse](t, rec)
	if setup.Secret == "" {
		t.Fatal("empty secret")
	}
	if !strings.HasPrefix(setup.OTPAuthURL, "otpauth://totp/"+totpIssuer+":") {
		t.Errorf("otpauth_url = %q", setup.OTPAuthURL)
	}
	png, err := base64.StdEncoding.DecodeString(setup.QRPNG)
	if err != nil || !strings.HasPrefix(string(png), "\x89PNG") {
		t.Errorf("qr_png is not a base64 PNG (err %v)", err)
	}

	stored, _ := env.users.FindByID(context.Background(), user.ID)
	if stored.TOTPSecret == nil || *stored.TOTPSecret != setup.Secret {
		t.Fatal("secret not saved")
	}
	if stored.TOTPEnabled {
		t.Fatal("TOTP enabled before verification")
	}

	verify := func(code string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		env.h.TwoFAVerify(rec, newRequest(http.MethodPost, "/auth/2fa/verify", `{"code":"`+code+`"}`, user.ID))
		return rec
	}

	rec = verify("abc")
	assertStatus(t, rec, http.StatusBadRequest)

	rec = verify(staleCode(t, setup.Secret))
	assertStatus(t, rec, http.StatusBadRequest)
	if errs := decodeBody[map[string][]string](t, rec); len(errs["code"]) == 0 {
		t.Errorf("errors = %v, want code error", errs)
	}

	rec = verify(currentCode(t, setup.Secret))
	assertStatus(t, rec, http.StatusNoContent)

	stored, _ = env.users.FindByID(context.Background(), user.ID)
	if !stored.TOTPEnabled {
		t.Error("TOTP not enabled after verification")
	}

	rec = httptest.NewRecorder()
	env.h.TwoFASetup(rec, newRequest(http.MethodPost, "/auth/2fa/setup", "", user.ID))
	assertStatus(t, rec, http.StatusConflict)
}

func TestTwoFAVerify_NotStarted(t *testing.T) {
	env := newAuthEnv(t)
	user := env.users.add("alice@blogapi.local", "alice")

	rec := httptest.NewRecorder()
	env.h.TwoFAVerify(rec, newRequest(http.MethodPost, "/auth/2fa/verify", `{"code":"123456"}`, user.ID))
	assertStatus(t, rec, http.StatusBadRequest)
}
