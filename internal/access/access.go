// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package access holds the per-operation authorization table for the API.
// Every handler consults Check before it reads or writes anything, so the
// rules for a resource live in one place instead of being spread across
// middleware and handlers.
package access

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Resource names an API collection.
type Resource string

const (
	Categories Resource = "categories"
	Posts      Resource = "posts"
	PostImages Resource = "post_images"
)

// Action names an operation on a resource.
type Action string

const (
	List          Action = "list"
	Retrieve      Action = "retrieve"
	Create        Action = "create"
	Update        Action = "update"
	PartialUpdate Action = "partial_update"
	Delete        Action = "delete"
	Own           Action = "own"
	Search        Action = "search"
)

// Rule is the condition a requester must satisfy for an operation.
type Rule int

const (
	// AllowAny admits anonymous requests.
	AllowAny Rule = iota
	// Authenticated admits any logged-in user.
	Authenticated
	// Owner admits only the logged-in user who owns the target record.
	Owner
)

func (r Rule) String() string {
	switch r {
	case AllowAny:
		return "allow_any"
	case Authenticated:
		return "authenticated"
	case Owner:
		return "owner"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// Errors returned by Check. Handlers map them to 401 and 403.
var (
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
)

type operation struct {
	resource Resource
	action   Action
}

// policy is the authorization table. Operations missing from it are denied.
var policy = map[operation]Rule{
	{Categories, List}: AllowAny,

	{Posts, List}:          Authenticated,
	{Posts, Retrieve}:      Authenticated,
	{Posts, Create}:        Authenticated,
	{Posts, Own}:           Authenticated,
	{Posts, Search}:        Authenticated,
	{Posts, Update}:        Owner,
	{Posts, PartialUpdate}: Owner,
	{Posts, Delete}:        Owner,

	{PostImages, List}:   AllowAny,
	{PostImages, Create}: Authenticated,
}

// RuleFor returns the rule for an operation and whether one is defined.
func RuleFor(res Resource, act Action) (Rule, bool) {
	r, ok := policy[operation{res, act}]
	return r, ok
}

// CheckRequest is the record-independent half of Check: it rejects
// requests that can never pass, before the target record is loaded.
// Owner rules only require an authenticated requester at this stage.
func CheckRequest(res Resource, act Action, requester uuid.UUID) error {
	rule, ok := RuleFor(res, act)
	if !ok {
		return ErrForbidden
	}
	if rule != AllowAny && requester == uuid.Nil {
		return ErrUnauthenticated
	}
	return nil
}

// Check decides whether requester may perform act on res. requester is
// uuid.Nil for anonymous requests. owner is the user that owns the target
// record and is only consulted for Owner rules.
func Check(res Resource, act Action, requester, owner uuid.UUID) error {
	rule, ok := RuleFor(res, act)
	if !ok {
		return ErrForbidden
	}

	switch rule {
	case AllowAny:
		return nil
	case Authenticated:
		if requester == uuid.Nil {
			return ErrUnauthenticated
		}
		return nil
	case Owner:
		if requester == uuid.Nil {
			return ErrUnauthenticated
		}
		if owner == uuid.Nil || requester != owner {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}
