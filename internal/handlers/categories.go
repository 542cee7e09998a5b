// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"blogapi/internal/access"
	"blogapi/internal/models"
	"blogapi/internal/render"
)

// Categories serves the read-only category listing.
type Categories struct {
	categories CategoryRepo
}

// NewCategories creates a Categories handler group.
func NewCategories(categories CategoryRepo) *Categories {
	return &Categories{categories: categories}
}

// List returns every category ordered by name.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	if !allowRequest(w, r, access.Categories, access.List) {
		return
	}

	items, err := h.categories.List(r.Context())
	if err != nil {
		render.ServerError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Category{}
	}

	render.JSON(w, http.StatusOK, items)
}
