// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render writes JSON API responses. Every handler and middleware
// goes through it so success bodies, {"detail": ...} errors and field
// validation errors share one shape.
package render

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Standard detail messages.
const (
	MsgNotAuthenticated = "Authentication credentials were not provided."
	MsgPermissionDenied = "You do not have permission to perform this action."
	MsgNotFound         = "Not found."
	MsgInvalidPage      = "Invalid page."
	MsgServerError      = "A server error occurred."
	MsgRateLimited      = "Request was throttled."
	MsgUnavailable      = "Service temporarily unavailable."
)

// FieldErrors maps a JSON field name to its validation messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// JSON writes data as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Detail writes a {"detail": msg} error body.
func Detail(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"detail": msg})
}

// Fields writes a 400 response listing per-field validation errors.
func Fields(w http.ResponseWriter, errs FieldErrors) {
	JSON(w, http.StatusBadRequest, errs)
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter) {
	Detail(w, http.StatusUnauthorized, MsgNotAuthenticated)
}

// Forbidden writes a 403 response.
func Forbidden(w http.ResponseWriter) {
	Detail(w, http.StatusForbidden, MsgPermissionDenied)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter) {
	Detail(w, http.StatusNotFound, MsgNotFound)
}

// ServerError logs err and writes a generic 500 response. Internal error
// text never reaches the client.
func ServerError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
	)
	Detail(w, http.StatusInternalServerError, MsgServerError)
}
