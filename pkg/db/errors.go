package db

import "errors"

var (
	// ErrNotFound is returned by Find methods when no row matches the dedup key
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned by Create methods when a unique constraint rejects the row
	ErrAlreadyExists = errors.New("record already exists")

	// ErrUnavailable marks connectivity failures; the migration treats these as fatal
	ErrUnavailable = errors.New("store unavailable")
)
