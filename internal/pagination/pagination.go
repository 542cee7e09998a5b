// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pagination parses page requests and assembles the
// {count, next, previous, results} envelope returned by list endpoints.
package pagination

import (
	"errors"
	"net/url"
	"strconv"
	"unicode/utf8"
)

// PageParam is the query parameter holding the 1-based page number.
const PageParam = "page"

// Ellipsis is appended to truncated previews.
const Ellipsis = "..."

// ErrInvalidPage is returned for a page number that is not a positive
// integer or lies past the last page.
var ErrInvalidPage = errors.New("invalid page")

// Request is a parsed page request.
type Request struct {
	Number int
	Size   int
}

// Offset returns the number of rows to skip.
func (r Request) Offset() int {
	return (r.Number - 1) * r.Size
}

// Limit returns the maximum number of rows on the page.
func (r Request) Limit() int {
	return r.Size
}

// ParseRequest reads the page number from q. A missing or empty page
// parameter selects page 1.
func ParseRequest(q url.Values, size int) (Request, error) {
	raw := q.Get(PageParam)
	if raw == "" {
		return Request{Number: 1, Size: size}, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return Request{}, ErrInvalidPage
	}
	return Request{Number: n, Size: size}, nil
}

// Page is the paginated response envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// LastPage returns the highest valid page number for total rows. An empty
// result set still has one (empty) page.
func LastPage(total, size int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Assemble builds the page envelope for items, the rows fetched for req out
// of total matching rows. base is the request URL used to build the
// next/previous links; other query parameters on it are preserved. preview,
// when non-nil, is applied to each item present on the page.
func Assemble[T any](base *url.URL, req Request, items []T, total int, preview func(T) T) (*Page[T], error) {
	last := LastPage(total, req.Size)
	if req.Number < 1 || req.Number > last {
		return nil, ErrInvalidPage
	}

	results := make([]T, len(items))
	for i, item := range items {
		if preview != nil {
			item = preview(item)
		}
		results[i] = item
	}

	page := &Page[T]{Count: total, Results: results}
	if req.Number < last {
		page.Next = pageLink(base, req.Number+1)
	}
	if req.Number > 1 {
		page.Previous = pageLink(base, req.Number-1)
	}
	return page, nil
}

// pageLink returns base with its page parameter set to n. The link to the
// first page drops the parameter entirely.
func pageLink(base *url.URL, n int) *string {
	u := *base
	q := u.Query()
	if n <= 1 {
		q.Del(PageParam)
	} else {
		q.Set(PageParam, strconv.Itoa(n))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

// Truncate shortens s to its first n runes followed by Ellipsis when s is
// longer than n runes. Shorter strings are returned unchanged.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + Ellipsis
}
