// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"blogapi/internal/models"
)

// PostImageStore handles image metadata for posts.
type PostImageStore struct {
	db *sql.DB
}

// NewPostImageStore creates a new PostImageStore with the given database connection.
func NewPostImageStore(db *sql.DB) *PostImageStore {
	return &PostImageStore{db: db}
}

const postImageColumns = `id, post_id, bucket, s3_key, thumb_s3_key, content_type, size_bytes, created_at`

func scanPostImage(scanner interface{ Scan(...any) error }) (*models.PostImage, error) {
	var m models.PostImage
	err := scanner.Scan(
		&m.ID, &m.PostID, &m.Bucket, &m.S3Key, &m.ThumbS3Key,
		&m.ContentType, &m.SizeBytes, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new image record and returns it with the generated ID.
func (s *PostImageStore) Create(ctx context.Context, m *models.PostImage) (*models.PostImage, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO post_images (post_id, bucket, s3_key, thumb_s3_key, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+postImageColumns,
		m.PostID, m.Bucket, m.S3Key, m.ThumbS3Key, m.ContentType, m.SizeBytes,
	)
	created, err := scanPostImage(row)
	if err != nil {
		return nil, fmt.Errorf("create post image: %w", err)
	}
	return created, nil
}

// List returns every image, newest first.
func (s *PostImageStore) List(ctx context.Context) ([]models.PostImage, error) {
	return s.query(ctx, `SELECT `+postImageColumns+` FROM post_images ORDER BY created_at DESC, id`)
}

// ListByPost returns the images attached to a post in upload order.
func (s *PostImageStore) ListByPost(ctx context.Context, postID uuid.UUID) ([]models.PostImage, error) {
	return s.query(ctx,
		`SELECT `+postImageColumns+` FROM post_images WHERE post_id = $1 ORDER BY created_at, id`,
		postID)
}

func (s *PostImageStore) query(ctx context.Context, q string, args ...any) ([]models.PostImage, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list post images: %w", err)
	}
	defer rows.Close()

	items := []models.PostImage{}
	for rows.Next() {
		m, err := scanPostImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post image: %w", err)
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}
