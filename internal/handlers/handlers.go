// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API endpoints. Each handler group
// depends on small interfaces satisfied by the store, session and storage
// packages, so the groups can be exercised with in-memory fakes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blogapi/internal/access"
	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/render"
	"blogapi/internal/session"
	"blogapi/internal/store"
)

// maxJSONBody caps the size of JSON request bodies.
const maxJSONBody = 1 << 20

// UserRepo is the subset of store.UserStore used by the auth handlers.
type UserRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
	CheckPassword(user *models.User, password string) bool
}

// SessionStore issues and revokes API tokens.
type SessionStore interface {
	Create(ctx context.Context, data *session.Data) (string, error)
	Destroy(ctx context.Context, token string) error
}

// CategoryRepo is the subset of store.CategoryStore used by the handlers.
type CategoryRepo interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// PostRepo is the subset of store.PostStore used by the handlers.
type PostRepo interface {
	List(ctx context.Context, f store.PostFilter) ([]models.Post, error)
	ListPage(ctx context.Context, f store.PostFilter, limit, offset int) ([]models.Post, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostImageRepo is the subset of store.PostImageStore used by the handlers.
type PostImageRepo interface {
	Create(ctx context.Context, m *models.PostImage) (*models.PostImage, error)
	List(ctx context.Context) ([]models.PostImage, error)
	ListByPost(ctx context.Context, postID uuid.UUID) ([]models.PostImage, error)
}

// ObjectStorage stores uploaded image files. Implemented by storage.Client.
type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	FileURL(key string) string
	Bucket() string
}

// allowRequest runs the record-independent authorization stage and writes
// 401/403 when it fails.
func allowRequest(w http.ResponseWriter, r *http.Request, res access.Resource, act access.Action) bool {
	err := access.CheckRequest(res, act, middleware.UserIDFromCtx(r.Context()))
	return writeAccessError(w, err)
}

// allowRecord runs the full authorization check against a loaded record
// owned by owner and writes 401/403 when it fails.
func allowRecord(w http.ResponseWriter, r *http.Request, res access.Resource, act access.Action, owner uuid.UUID) bool {
	err := access.Check(res, act, middleware.UserIDFromCtx(r.Context()), owner)
	return writeAccessError(w, err)
}

func writeAccessError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, access.ErrUnauthenticated):
		render.Unauthorized(w)
	default:
		render.Forbidden(w)
	}
	return false
}

// decodeJSON reads a JSON request body into dst. Unknown fields are
// ignored. Writes a 400 and returns false on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		render.Detail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	return true
}

// idParam parses the {id} URL parameter. An unparsable ID is reported as
// not found, the same as an unknown one.
func idParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// requestURL reconstructs the absolute URL of r for pagination links.
func requestURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
}

// invalidPK is the field error for a reference to a missing record.
func invalidPK(raw string) string {
	return `Invalid pk "` + raw + `" - object does not exist.`
}
