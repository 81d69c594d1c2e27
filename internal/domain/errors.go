// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates a caller-supplied value failed validation and no
// recovery is attempted.
var ErrValidation = errors.New("validation failed")

// ErrUnavailable indicates an optional collaborator (embedder, cloud
// adapter, external sink) is not usable; callers degrade gracefully rather
// than failing the whole operation.
var ErrUnavailable = errors.New("collaborator unavailable")
