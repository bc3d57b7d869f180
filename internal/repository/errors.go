// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without string matching. For example, ErrForbidden
// indicates that the current user is not allowed to perform a
// tier-gated operation, while ErrPostNotFound signals that a
// referenced post does not exist.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// reserved for premium accounts. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrPostNotFound is returned when a post referenced by id does not
// exist. Handlers should translate this into an HTTP 404 response.
var ErrPostNotFound = errors.New("post not found")
