// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"blogapi/internal/access"
	"blogapi/internal/markdown"
	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/pagination"
	"blogapi/internal/render"
	"blogapi/internal/store"
)

const (
	// PostPageSize is the number of posts on each page of the list endpoint.
	PostPageSize = 3

	// PreviewLength is the number of characters of text kept in list previews.
	PreviewLength = 10
)

// Posts groups the post resource handlers.
type Posts struct {
	posts      PostRepo
	categories CategoryRepo
	images     PostImageRepo
	objects    ObjectStorage
	now        func() time.Time
}

// NewPosts creates a Posts handler group. objects may be nil when image
// storage is not configured.
func NewPosts(posts PostRepo, categories CategoryRepo, images PostImageRepo, objects ObjectStorage) *Posts {
	return &Posts{
		posts:      posts,
		categories: categories,
		images:     images,
		objects:    objects,
		now:        time.Now,
	}
}

// postDetail is the single-post representation.
type postDetail struct {
	models.Post
	TextHTML string          `json:"text_html"`
	Images   []postImageView `json:"images"`
}

// optionalUUID tracks whether a nullable ID field was present in a JSON
// body, and whether it held null, a valid UUID or garbage.
type optionalUUID struct {
	Set     bool
	Value   *uuid.UUID
	Raw     string
	Invalid bool
}

func (o *optionalUUID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		o.Raw = string(b)
		o.Invalid = true
		return nil
	}
	o.Raw = s
	id, err := uuid.Parse(s)
	if err != nil {
		o.Invalid = true
		return nil
	}
	o.Value = &id
	return nil
}

// postInput is the writable subset of a post. Other fields in the body,
// such as author or created_at, are ignored.
type postInput struct {
	Title    *string      `json:"title"`
	Text     *string      `json:"text"`
	Category optionalUUID `json:"category"`
}

// postFields holds the merged values that are validated before a write.
type postFields struct {
	Title string `json:"title" validate:"required,max=255"`
	Text  string `json:"text" validate:"required,max=100000"`
}

// maxFilterWeeks bounds the weeks filter. A window this long reaches back
// roughly two thousand years, so every stored post falls inside it, and the
// cutoff stays well within the timestamp range PostgreSQL accepts.
const maxFilterWeeks = 100_000

// baseFilter builds the filter shared by every listing from the weeks
// query parameter. A positive weeks value restricts posts to those created
// within that many weeks; zero, negative or absent means no restriction,
// as does a value above maxFilterWeeks.
func (h *Posts) baseFilter(r *http.Request) (store.PostFilter, render.FieldErrors) {
	var f store.PostFilter

	raw := r.URL.Query().Get("weeks")
	if raw == "" {
		return f, nil
	}
	weeks, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return f, render.FieldErrors{"weeks": {msgInvalidInt}}
	}
	if weeks > 0 && weeks <= maxFilterWeeks {
		since := h.now().AddDate(0, 0, -7*weeks)
		f.Since = &since
	}
	return f, nil
}

// previewPost shortens the text of a post shown on a list page.
func previewPost(p models.Post) models.Post {
	p.Text = pagination.Truncate(p.Text, PreviewLength)
	return p
}

// List returns a page of posts with text previews.
func (h *Posts) List(w http.ResponseWriter, r *http.Request) {
	if !allowRequest(w, r, access.Posts, access.List) {
		return
	}

	f, ferrs := h.baseFilter(r)
	if ferrs != nil {
		render.Fields(w, ferrs)
		return
	}

	req, err := pagination.ParseRequest(r.URL.Query(), PostPageSize)
	if err != nil {
		render.Detail(w, http.StatusNotFound, render.MsgInvalidPage)
		return
	}

	items, total, err := h.posts.ListPage(r.Context(), f, req.Limit(), req.Offset())
	if err != nil {
		render.ServerError(w, r, err)
		return
	}

	page, err := pagination.Assemble(requestURL(r), req, items, total, previewPost)
	if errors.Is(err, pagination.ErrInvalidPage) {
		render.Detail(w, http.StatusNotFound, render.MsgInvalidPage)
		return
	}
	if err != nil {
		render.ServerError(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, page)
}

// Own returns every post authored by the requester, unpaginated.
func (h *Posts) Own(w http.ResponseWriter, r *http.Request) {
	if !allowRequest(w, r, access.Posts, access.Own) {
		return
	}

	f, ferrs := h.baseFilter(r)
	if ferrs != nil {
		render.Fields(w, ferrs)
		return
	}
	author := middleware.UserIDFromCtx(r.Context())
	f.AuthorID = &author

	h.writeList(w, r, f)
}

// Search returns every post whose title or text contains the q parameter,
// case-insensitively, unpaginated. An empty q matches all posts.
func (h *Posts) Search(w http.ResponseWriter, r *http.Request) {
	if !allowRequest(w, r, access.Posts, access.Search) {
		return
	}

	f, ferrs := h.baseFilter(r)
	if ferrs != nil {
		render.Fields(w, ferrs)
		return
	}
	f.Search = r.URL.Query().Get("q")

	h.writeList(w, r, f)
}

func (h *Posts) writeList(w http.ResponseWriter, r *http.Request, f store.PostFilter) {
	items, err := h.posts.List(r.Context(), f)
	if err != nil {
		render.ServerError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Post{}
	}
	render.JSON(w, http.StatusOK, items)
}

// Retrieve returns a single post with its rendered HTML and images.
func (h *Posts) Retrieve(w http.ResponseWriter, r *http.Request) {
	if !allowRequest(w, r, access.Posts, access.Retrieve) {
		return
	}

	post, ok := h.load(w, r)
	if !ok {
		return
	}
	if !allowRecord(w, r, access.Posts, access.Retrieve, post.AuthorID) {
		return
	}

	html, err := markdown.ToHTML(post.Text)
	if err != nil {
		render.ServerError(w, r, err)
		return
	}

	images, err := h.images.ListByPost(r.Context(), post.ID)
	if err != nil {
		render.ServerError(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, postDetail{
		Post:     *post,
		TextHTML: html,
		Images:   imageViews(images, h.objects),
	})
}

// Create stores a new post authored by the requester.
func (h *Posts) Create(w http.ResponseWriter, r *http.Request) {
	if !allowRequest(w, r, access.Posts, access.Create) {
		return
	}

	var in postInput
	if !decodeJSON(w, r, &in) {
		return
	}

	post := &models.Post{AuthorID: middleware.UserIDFromCtx(r.Context())}
	if !h.apply(w, r, post, in, false) {
		return
	}

	created, err := h.posts.Create(r.Context(), post)
	if err != nil {
		render.ServerError(w, r, err)
		return
	}

	slog.Info("post created", "post_id", created.ID, "author_id", created.AuthorID)
	render.JSON(w, http.StatusCreated, created)
}

// Update replaces the editable fields of a post. Author only.
func (h *Posts) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, access.Update, false)
}

// PartialUpdate changes any subset of the editable fields. Author only.
func (h *Posts) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, access.PartialUpdate, true)
}

func (h *Posts) update(w http.ResponseWriter, r *http.Request, act access.Action, partial bool) {
	if !allowRequest(w, r, access.Posts, act) {
		return
	}

	post, ok := h.load(w, r)
	if !ok {
		return
	}
	if !allowRecord(w, r, access.Posts, act, post.AuthorID) {
		return
	}

	var in postInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if !h.apply(w, r, post, in, partial) {
		return
	}

	updated, err := h.posts.Update(r.Context(), post)
	if err != nil {
		render.ServerError(w, r, err)
		return
	}
	if updated == nil {
		render.NotFound(w)
		return
	}

	render.JSON(w, http.StatusOK, updated)
}

// Delete removes a post and, best effort, the stored files of its images.
// Author only.
func (h *Posts) Delete(w http.ResponseWriter, r *http.Request) {
	if !allowRequest(w, r, access.Posts, access.Delete) {
		return
	}

	post, ok := h.load(w, r)
	if !ok {
		return
	}
	if !allowRecord(w, r, access.Posts, access.Delete, post.AuthorID) {
		return
	}

	images, err := h.images.ListByPost(r.Context(), post.ID)
	if err != nil {
		render.ServerError(w, r, err)
		return
	}

	if err := h.posts.Delete(r.Context(), post.ID); err != nil {
		render.ServerError(w, r, err)
		return
	}

	if h.objects != nil {
		for _, img := range images {
			deleteObjects(r, h.objects, img)
		}
	}

	slog.Info("post deleted", "post_id", post.ID, "images", len(images))
	render.NoContent(w)
}

// load fetches the post named by the {id} URL parameter, writing 404 when
// it does not exist.
func (h *Posts) load(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, ok := idParam(r)
	if !ok {
		render.NotFound(w)
		return nil, false
	}

	post, err := h.posts.FindByID(r.Context(), id)
	if err != nil {
		render.ServerError(w, r, err)
		return nil, false
	}
	if post == nil {
		render.NotFound(w)
		return nil, false
	}
	return post, true
}

// apply validates in and copies it onto post. When partial is false the
// title and text fields are required. Writes a 400 and returns false on
// invalid input.
func (h *Posts) apply(w http.ResponseWriter, r *http.Request, post *models.Post, in postInput, partial bool) bool {
	errs := render.FieldErrors{}

	fields := postFields{Title: post.Title, Text: post.Text}
	if in.Title != nil {
		fields.Title = strings.TrimSpace(*in.Title)
	} else if !partial {
		errs.Add("title", msgRequired)
	}
	if in.Text != nil {
		fields.Text = strings.TrimSpace(*in.Text)
	} else if !partial {
		errs.Add("text", msgRequired)
	}

	if verrs := validateStruct(fields); verrs != nil {
		for field, msgs := range verrs {
			if _, missing := errs[field]; !missing {
				errs[field] = msgs
			}
		}
	}

	category := post.CategoryID
	if in.Category.Set {
		switch {
		case in.Category.Invalid:
			errs.Add("category", invalidPK(in.Category.Raw))
		case in.Category.Value == nil:
			category = nil
		default:
			found, err := h.categories.FindByID(r.Context(), *in.Category.Value)
			if err != nil {
				render.ServerError(w, r, err)
				return false
			}
			if found == nil {
				errs.Add("category", invalidPK(in.Category.Raw))
			}
			category = in.Category.Value
		}
	}

	if len(errs) > 0 {
		render.Fields(w, errs)
		return false
	}

	post.Title = fields.Title
	post.Text = fields.Text
	post.CategoryID = category
	return true
}
