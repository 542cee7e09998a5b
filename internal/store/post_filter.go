// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostFilter narrows a post query. Unset fields apply no restriction and
// set fields are combined with AND.
type PostFilter struct {
	// Since keeps posts created at or after this instant.
	Since *time.Time
	// AuthorID keeps posts owned by this user.
	AuthorID *uuid.UUID
	// Search keeps posts whose title or text contains the term,
	// case-insensitively. An empty term matches everything.
	Search string
}

// where renders the filter as a SQL WHERE clause (with leading space) and
// its positional arguments. It returns "" when no predicate applies.
func (f PostFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.Since != nil {
		args = append(args, *f.Since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.AuthorID != nil {
		args = append(args, *f.AuthorID)
		conds = append(conds, fmt.Sprintf("author_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR text ILIKE $%d)", n, n))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// likeEscaper escapes the LIKE wildcards so a search term matches literally.
// Backslash is PostgreSQL's default LIKE escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
