package storage

import "errors"

// Common storage errors
var (
	// ErrTodoNotFound indicates that todo record was not found (or is a tombstone)
	ErrTodoNotFound = errors.New("todo not found")

	// ErrTodoAlreadyExists indicates an id collision on insert
	ErrTodoAlreadyExists = errors.New("todo already exists")
)
