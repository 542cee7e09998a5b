// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"blogapi/internal/access"
	"blogapi/internal/imaging"
	"blogapi/internal/models"
	"blogapi/internal/render"
)

const (
	// MaxImageSize is the largest accepted upload (10 MB).
	MaxImageSize = 10 << 20

	// multipartOverhead leaves room for form fields and part headers on
	// top of the file itself.
	multipartOverhead = 1 << 20
)

const (
	msgNoFile       = "No file was submitted."
	msgEmptyFile    = "The submitted file is empty."
	msgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	msgStorageOff   = "Image storage is not configured."
)

var msgFileTooLarge = fmt.Sprintf("Image must be %d MB or smaller.", MaxImageSize>>20)

// postImageView is the JSON representation of an image attached to a post.
type postImageView struct {
	ID          uuid.UUID `json:"id"`
	Post        uuid.UUID `json:"post"`
	Image       string    `json:"image"`
	Thumbnail   *string   `json:"thumbnail"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Size        string    `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

func newPostImageView(img *models.PostImage, objects ObjectStorage) postImageView {
	v := postImageView{
		ID:          img.ID,
		Post:        img.PostID,
		Image:       img.S3Key,
		ContentType: img.ContentType,
		SizeBytes:   img.SizeBytes,
		Size:        img.HumanSize(),
		CreatedAt:   img.CreatedAt,
	}
	if objects != nil {
		v.Image = objects.FileURL(img.S3Key)
	}
	if img.ThumbS3Key != nil {
		thumb := *img.ThumbS3Key
		if objects != nil {
			thumb = objects.FileURL(thumb)
		}
		v.Thumbnail = &thumb
	}
	return v
}

func imageViews(images []models.PostImage, objects ObjectStorage) []postImageView {
	views := make([]postImageView, len(images))
	for i := range images {
		views[i] = newPostImageView(&images[i], objects)
	}
	return views
}

// deleteObjects removes the stored files of img, logging failures.
func deleteObjects(r *http.Request, objects ObjectStorage, img models.PostImage) {
	keys := []string{img.S3Key}
	if img.ThumbS3Key != nil {
		keys = append(keys, *img.ThumbS3Key)
	}
	for _, key := range keys {
		if err := objects.Delete(r.Context(), key); err != nil {
			slog.Warn("delete image object failed", "key", key, "error", err)
		}
	}
}

// PostImages groups the post image handlers.
type PostImages struct {
	images  PostImageRepo
	posts   PostRepo
	objects ObjectStorage
}

// NewPostImages creates a PostImages handler group. objects may be nil, in
// which case uploads are refused with 503.
func NewPostImages(images PostImageRepo, posts PostRepo, objects ObjectStorage) *PostImages {
	return &PostImages{
		images:  images,
		posts:   posts,
		objects: objects,
	}
}

// List returns every post image, newest first.
func (h *PostImages) List(w http.ResponseWriter, r *http.Request) {
	if !allowRequest(w, r, access.PostImages, access.List) {
		return
	}

	images, err := h.images.List(r.Context())
	if err != nil {
		render.ServerError(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, imageViews(images, h.objects))
}

// Create accepts a multipart upload with a post field holding the post ID
// and an image field holding the file. The original is stored as-is and a
// JPEG thumbnail is generated for wide JPEG, PNG and WebP images.
func (h *PostImages) Create(w http.ResponseWriter, r *http.Request) {
	if !allowRequest(w, r, access.PostImages, access.Create) {
		return
	}
	if h.objects == nil {
		render.Detail(w, http.StatusServiceUnavailable, msgStorageOff)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+multipartOverhead)
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			render.Fields(w, render.FieldErrors{"image": {msgFileTooLarge}})
			return
		}
		render.Detail(w, http.StatusBadRequest, "Expected a multipart/form-data body.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	errs := render.FieldErrors{}

	post, ok := h.lookupPost(w, r, errs)
	if !ok {
		return
	}

	data, contentType := readImage(r, errs)

	if len(errs) > 0 {
		render.Fields(w, errs)
		return
	}

	key := fmt.Sprintf("posts/%s/%s%s", post.ID, uuid.New(), imaging.Extension(contentType))

	var thumb []byte
	if imaging.Thumbnailable(contentType) {
		var err error
		thumb, err = imaging.Thumbnail(data, imaging.ThumbMaxWidth)
		if err != nil {
			slog.Warn("thumbnail failed", "error", err)
			render.Fields(w, render.FieldErrors{"image": {msgInvalidImage}})
			return
		}
	}

	if err := h.objects.Upload(r.Context(), key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		render.ServerError(w, r, err)
		return
	}

	img := &models.PostImage{
		PostID:      post.ID,
		Bucket:      h.objects.Bucket(),
		S3Key:       key,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}

	if thumb != nil {
		thumbKey := strings.TrimSuffix(key, imaging.Extension(contentType)) + "_thumb.jpg"
		if err := h.objects.Upload(r.Context(), thumbKey, "image/jpeg", bytes.NewReader(thumb), int64(len(thumb))); err != nil {
			slog.Warn("thumbnail upload failed", "key", thumbKey, "error", err)
		} else {
			img.ThumbS3Key = &thumbKey
		}
	}

	created, err := h.images.Create(r.Context(), img)
	if err != nil {
		deleteObjects(r, h.objects, *img)
		render.ServerError(w, r, err)
		return
	}

	slog.Info("post image uploaded",
		"image_id", created.ID,
		"post_id", created.PostID,
		"content_type", created.ContentType,
		"size", created.HumanSize(),
	)
	render.JSON(w, http.StatusCreated, newPostImageView(created, h.objects))
}

// lookupPost resolves the post form field. Field problems are recorded in
// errs; only storage failures end the request.
func (h *PostImages) lookupPost(w http.ResponseWriter, r *http.Request, errs render.FieldErrors) (*models.Post, bool) {
	raw := strings.TrimSpace(r.FormValue("post"))
	if raw == "" {
		errs.Add("post", msgRequired)
		return nil, true
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		errs.Add("post", invalidPK(raw))
		return nil, true
	}

	post, err := h.posts.FindByID(r.Context(), id)
	if err != nil {
		render.ServerError(w, r, err)
		return nil, false
	}
	if post == nil {
		errs.Add("post", invalidPK(raw))
	}
	return post, true
}

// readImage reads the image form file and sniffs its type. Problems are
// recorded in errs.
func readImage(r *http.Request, errs render.FieldErrors) ([]byte, string) {
	file, header, err := r.FormFile("image")
	if err != nil {
		errs.Add("image", msgNoFile)
		return nil, ""
	}
	defer file.Close()

	if header.Size > MaxImageSize {
		errs.Add("image", msgFileTooLarge)
		return nil, ""
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		errs.Add("image", msgInvalidImage)
		return nil, ""
	}
	if len(data) == 0 {
		errs.Add("image", msgEmptyFile)
		return nil, ""
	}
	if len(data) > MaxImageSize {
		errs.Add("image", msgFileTooLarge)
		return nil, ""
	}

	contentType := imaging.DetectType(data)
	if !imaging.Allowed(contentType) {
		errs.Add("image", msgInvalidImage)
		return nil, ""
	}
	return data, contentType
}
