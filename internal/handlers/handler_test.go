// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure: in-memory
// implementations of the store and storage interfaces and request helpers.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/session"
	"blogapi/internal/store"
)

var errStoreDown = errors.New("store unavailable")

// clock hands out strictly increasing timestamps so creation order is
// deterministic.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// ---------- posts ----------

type fakePosts struct {
	mu    sync.Mutex
	clock *clock
	posts map[uuid.UUID]models.Post
	err   error
}

func newFakePosts(c *clock) *fakePosts {
	return &fakePosts{clock: c, posts: make(map[uuid.UUID]models.Post)}
}

func (f *fakePosts) matching(flt store.PostFilter) []models.Post {
	var out []models.Post
	q := strings.ToLower(flt.Search)
	for _, p := range f.posts {
		if flt.Since != nil && p.CreatedAt.Before(*flt.Since) {
			continue
		}
		if flt.AuthorID != nil && p.AuthorID != *flt.AuthorID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Text), q) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakePosts) List(_ context.Context, flt store.PostFilter) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.matching(flt), nil
}

func (f *fakePosts) ListPage(_ context.Context, flt store.PostFilter, limit, offset int) ([]models.Post, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	all := f.matching(flt)
	if offset >= len(all) {
		return []models.Post{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (f *fakePosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePosts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	created := *p
	created.ID = uuid.New()
	created.CreatedAt = f.clock.Now()
	created.UpdatedAt = created.CreatedAt
	f.posts[created.ID] = created
	return &created, nil
}

func (f *fakePosts) Update(_ context.Context, p *models.Post) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	existing, ok := f.posts[p.ID]
	if !ok {
		return nil, nil
	}
	existing.Title = p.Title
	existing.Text = p.Text
	existing.CategoryID = p.CategoryID
	existing.UpdatedAt = f.clock.Now()
	f.posts[p.ID] = existing
	return &existing, nil
}

func (f *fakePosts) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.posts, id)
	return nil
}

// seed stores a post created at the given time directly.
func (f *fakePosts) seed(author uuid.UUID, title, text string, createdAt time.Time) models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := models.Post{
		ID:        uuid.New(),
		Title:     title,
		Text:      text,
		AuthorID:  author,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	f.posts[p.ID] = p
	return p
}

func (f *fakePosts) get(id uuid.UUID) (models.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	return p, ok
}

// ---------- categories ----------

type fakeCategories struct {
	items []models.Category
	err   error
}

func (f *fakeCategories) List(context.Context) ([]models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := append([]models.Category(nil), f.items...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.items {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

// ---------- post images ----------

type fakeImages struct {
	mu    sync.Mutex
	clock *clock
	items []models.PostImage
	err   error
}

func (f *fakeImages) Create(_ context.Context, m *models.PostImage) (*models.PostImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	created := *m
	created.ID = uuid.New()
	created.CreatedAt = f.clock.Now()
	f.items = append(f.items, created)
	return &created, nil
}

func (f *fakeImages) List(context.Context) ([]models.PostImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.PostImage, 0, len(f.items))
	for i := len(f.items) - 1; i >= 0; i-- {
		out = append(out, f.items[i])
	}
	return out, nil
}

func (f *fakeImages) ListByPost(_ context.Context, postID uuid.UUID) ([]models.PostImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.PostImage{}
	for _, img := range f.items {
		if img.PostID == postID {
			out = append(out, img)
		}
	}
	return out, nil
}

// ---------- object storage ----------

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	deleted   []string
	uploadErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeObjects) Upload(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) FileURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeObjects) Bucket() string {
	return "test-bucket"
}

// ---------- requests ----------

// testSession creates a session.Data for the given user.
func testSession(userID uuid.UUID) *session.Data {
	return &session.Data{
		UserID:      userID,
		Email:       "user@blogapi.local",
		DisplayName: "Test User",
	}
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// newRequest builds a request authenticated as user. uuid.Nil yields an
// anonymous request.
func newRequest(method, target, body string, user uuid.UUID) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != uuid.Nil {
		req = req.WithContext(ctxWithSession(req.Context(), testSession(user)))
	}
	return req
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeBody unmarshals a JSON response body.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

// assertStatus fails the test when rec has an unexpected status code.
func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
