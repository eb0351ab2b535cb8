package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when a user with the same email already
// exists. The users table carries a unique constraint, so a racing
// check-then-create still surfaces as this error rather than a second row.
var ErrDuplicateEmail = errors.New("email already exists")
