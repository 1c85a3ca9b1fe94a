// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a credential or user with the same
// email is already registered. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when an insert collides with a unique key
// other than the email (for example a duplicated auth id).
var ErrConflict = errors.New("conflict")

// isDuplicate reports whether err is a MySQL duplicate-key error (1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
