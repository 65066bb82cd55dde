package store

import (
	"errors"
	"strings"
)

var (
	// ErrTargetNotFound is returned when a target ID resolves to nothing.
	ErrTargetNotFound = errors.New("store: target not found")

	// ErrDuplicateTarget is returned when a target name is already taken.
	ErrDuplicateTarget = errors.New("store: target name already exists")

	// ErrDuplicateURL is returned when a URL is already registered,
	// on this target or any other. URL uniqueness is global.
	ErrDuplicateURL = errors.New("store: url already registered")

	// ErrDuplicateWatch is returned when a user already watches the
	// keyword.
	ErrDuplicateWatch = errors.New("store: watch already exists")
)

// isUniqueViolation reports whether an error is a sqlite UNIQUE
// constraint failure. modernc.org/sqlite exposes no typed constraint
// error, so the message is matched.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
