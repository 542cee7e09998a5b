// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// blog API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"blogapi/internal/handlers"
	"blogapi/internal/middleware"
	"blogapi/internal/render"
)

// Handlers bundles the handler groups mounted by New.
type Handlers struct {
	Auth       *handlers.Auth
	Categories *handlers.Categories
	Posts      *handlers.Posts
	PostImages *handlers.PostImages
}

// New creates and returns the configured Chi router with all middleware
// and routes wired up. loginLimiter throttles POST /auth/login per client.
func New(sessions middleware.SessionGetter, loginLimiter *middleware.RateLimiter, h Handlers) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	// LoadSession runs before Logger so request logs carry the user id.
	r.Use(middleware.Recoverer)
	r.Use(middleware.LoadSession(sessions))
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFound(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Detail(w, http.StatusMethodNotAllowed, `Method "`+r.Method+`" not allowed.`)
	})

	r.Get("/health", healthHandler)

	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimiter.Middleware).Post("/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/me", h.Auth.Me)
			r.Post("/2fa/setup", h.Auth.TwoFASetup)
			r.Post("/2fa/verify", h.Auth.TwoFAVerify)
		})
	})

	// Resource handlers enforce their own per-operation authorization.
	r.Get("/categories", h.Categories.List)

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", h.Posts.List)
		r.Post("/", h.Posts.Create)
		r.Get("/own", h.Posts.Own)
		r.Get("/search", h.Posts.Search)
		r.Get("/{id}", h.Posts.Retrieve)
		r.Put("/{id}", h.Posts.Update)
		r.Patch("/{id}", h.Posts.PartialUpdate)
		r.Delete("/{id}", h.Posts.Delete)
	})

	r.Route("/post-images", func(r chi.Router) {
		r.Get("/", h.PostImages.List)
		r.Post("/", h.PostImages.Create)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
