// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is a blog entry owned by a single author. The author is fixed at
// creation; only that user may change or remove the post.
type Post struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Text       string     `json:"text"`
	AuthorID   uuid.UUID  `json:"author"`
	CategoryID *uuid.UUID `json:"category"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsAuthoredBy reports whether userID owns the post.
func (p *Post) IsAuthoredBy(userID uuid.UUID) bool {
	return userID != uuid.Nil && p.AuthorID == userID
}
