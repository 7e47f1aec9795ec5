package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a write is rejected before reaching the store.
	ErrInvalidInput = errors.New("invalid input")
)
